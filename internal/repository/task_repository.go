package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Tomlord1122/space-todo/internal/domain"
	"github.com/Tomlord1122/space-todo/internal/policy"
)

// TaskQuery filters a find-many over tasks.
type TaskQuery struct {
	SpaceID string
	Order   Order
}

type TaskRepository interface {
	FindMany(ctx context.Context, q TaskQuery) ([]domain.Task, error)
	FindByID(ctx context.Context, id string) (*domain.Task, error)
	Create(ctx context.Context, task *domain.Task) error
}

type gormTaskRepository struct {
	db *gorm.DB
}

func NewGormTaskRepository(db *gorm.DB) TaskRepository {
	return &gormTaskRepository{db: db}
}

func (r *gormTaskRepository) FindMany(ctx context.Context, q TaskQuery) ([]domain.Task, error) {
	db, p := enhanced(ctx, r.db)
	tx := db.Scopes(policy.Tasks(p))
	if q.SpaceID != "" {
		tx = tx.Where("tasks.space_id = ?", q.SpaceID)
	}
	var tasks []domain.Task
	if err := tx.Order(q.Order.clause("tasks")).Find(&tasks).Error; err != nil {
		return nil, translate(err)
	}
	return tasks, nil
}

func (r *gormTaskRepository) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	db, p := enhanced(ctx, r.db)
	var task domain.Task
	if err := db.Scopes(policy.Tasks(p)).Where("tasks.id = ?", id).First(&task).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

// Create connects the task to its space and owner by id. The space must be
// visible to the principal.
func (r *gormTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	db, p := enhanced(ctx, r.db)
	var visible int64
	if err := db.Model(&domain.Space{}).Scopes(policy.Spaces(p)).Where("spaces.id = ?", task.SpaceID).Count(&visible).Error; err != nil {
		return translate(err)
	}
	if visible == 0 {
		return domain.ErrForbidden
	}
	return translate(db.Omit(clause.Associations).Create(task).Error)
}
