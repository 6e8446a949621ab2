package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Tomlord1122/space-todo/internal/domain"
	"github.com/Tomlord1122/space-todo/internal/policy"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
}

type gormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

func (r *gormUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	db, p := enhanced(ctx, r.db)
	var user domain.User
	if err := db.Scopes(policy.Users(p)).Where("users.id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// Create is reserved for the system principal; users sign up elsewhere.
func (r *gormUserRepository) Create(ctx context.Context, user *domain.User) error {
	db, p := enhanced(ctx, r.db)
	if !p.System {
		return domain.ErrForbidden
	}
	return translate(db.Create(user).Error)
}
