package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Tomlord1122/space-todo/internal/domain"
	"github.com/Tomlord1122/space-todo/internal/policy"
)

type SpaceRepository interface {
	FindBySlug(ctx context.Context, slug string) (*domain.Space, error)
	FindByID(ctx context.Context, id string) (*domain.Space, error)
	// FindFirst returns the oldest visible space.
	FindFirst(ctx context.Context) (*domain.Space, error)
	// Create inserts the space and makes its owner an admin member.
	Create(ctx context.Context, space *domain.Space) error
	AddMember(ctx context.Context, spaceID, userID string, role domain.Role) error
}

type gormSpaceRepository struct {
	db *gorm.DB
}

func NewGormSpaceRepository(db *gorm.DB) SpaceRepository {
	return &gormSpaceRepository{db: db}
}

func (r *gormSpaceRepository) FindBySlug(ctx context.Context, slug string) (*domain.Space, error) {
	db, p := enhanced(ctx, r.db)
	var space domain.Space
	if err := db.Scopes(policy.Spaces(p)).Where("spaces.slug = ?", slug).First(&space).Error; err != nil {
		return nil, translate(err)
	}
	return &space, nil
}

func (r *gormSpaceRepository) FindByID(ctx context.Context, id string) (*domain.Space, error) {
	db, p := enhanced(ctx, r.db)
	var space domain.Space
	if err := db.Scopes(policy.Spaces(p)).Where("spaces.id = ?", id).First(&space).Error; err != nil {
		return nil, translate(err)
	}
	return &space, nil
}

func (r *gormSpaceRepository) FindFirst(ctx context.Context) (*domain.Space, error) {
	db, p := enhanced(ctx, r.db)
	var space domain.Space
	if err := db.Scopes(policy.Spaces(p)).Order("spaces.created_at ASC").First(&space).Error; err != nil {
		return nil, translate(err)
	}
	return &space, nil
}

func (r *gormSpaceRepository) Create(ctx context.Context, space *domain.Space) error {
	db, p := enhanced(ctx, r.db)
	if !p.System && p.UserID != space.OwnerID {
		return domain.ErrForbidden
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(space).Error; err != nil {
			return err
		}
		member := &domain.SpaceUser{SpaceID: space.ID, UserID: space.OwnerID, Role: domain.RoleAdmin}
		return tx.Omit(clause.Associations).Create(member).Error
	})
	return translate(err)
}

// AddMember may be called by the system principal or the space owner.
func (r *gormSpaceRepository) AddMember(ctx context.Context, spaceID, userID string, role domain.Role) error {
	db, p := enhanced(ctx, r.db)
	if !p.System {
		var owned int64
		err := db.Model(&domain.Space{}).Where("spaces.id = ? AND spaces.owner_id = ?", spaceID, p.UserID).Count(&owned).Error
		if err != nil {
			return translate(err)
		}
		if owned == 0 {
			return domain.ErrForbidden
		}
	}
	member := &domain.SpaceUser{SpaceID: spaceID, UserID: userID, Role: role}
	return translate(db.Omit(clause.Associations).Create(member).Error)
}
