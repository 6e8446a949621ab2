package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Tomlord1122/space-todo/internal/domain"
	"github.com/Tomlord1122/space-todo/internal/policy"
)

type ListRepository interface {
	FindByID(ctx context.Context, id string) (*domain.List, error)
	FindBySpace(ctx context.Context, spaceID string) ([]domain.List, error)
	Create(ctx context.Context, list *domain.List) error
}

type gormListRepository struct {
	db *gorm.DB
}

func NewGormListRepository(db *gorm.DB) ListRepository {
	return &gormListRepository{db: db}
}

func (r *gormListRepository) FindByID(ctx context.Context, id string) (*domain.List, error) {
	db, p := enhanced(ctx, r.db)
	var list domain.List
	if err := db.Scopes(policy.Lists(p)).Where("lists.id = ?", id).First(&list).Error; err != nil {
		return nil, translate(err)
	}
	return &list, nil
}

func (r *gormListRepository) FindBySpace(ctx context.Context, spaceID string) ([]domain.List, error) {
	db, p := enhanced(ctx, r.db)
	var lists []domain.List
	err := db.Scopes(policy.Lists(p)).
		Where("lists.space_id = ?", spaceID).
		Order(NewestFirst.clause("lists")).
		Find(&lists).Error
	if err != nil {
		return nil, translate(err)
	}
	return lists, nil
}

// Create requires the principal to see the target space; the owner is the principal.
func (r *gormListRepository) Create(ctx context.Context, list *domain.List) error {
	db, p := enhanced(ctx, r.db)
	var visible int64
	if err := db.Model(&domain.Space{}).Scopes(policy.Spaces(p)).Where("spaces.id = ?", list.SpaceID).Count(&visible).Error; err != nil {
		return translate(err)
	}
	if visible == 0 {
		return domain.ErrForbidden
	}
	if !p.System {
		list.OwnerID = p.UserID
	}
	return translate(db.Omit(clause.Associations).Create(list).Error)
}
