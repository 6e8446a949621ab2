package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Tomlord1122/space-todo/internal/domain"
	"github.com/Tomlord1122/space-todo/internal/policy"
)

// Include names the relations loaded alongside todos.
type Include struct {
	Owner bool
	Task  bool
}

// TodoQuery filters a find-many over todos.
type TodoQuery struct {
	ListID  string
	Include Include
	Order   Order
}

// TodoRepository defines the todo data operations.
type TodoRepository interface {
	FindMany(ctx context.Context, q TodoQuery) ([]domain.Todo, error)
	FindByID(ctx context.Context, id string, include Include) (*domain.Todo, error)
	Create(ctx context.Context, todo *domain.Todo) error
	// SetCompletedAt stores at (nil clears it) and returns the todo with owner and task.
	SetCompletedAt(ctx context.Context, id string, at *time.Time) (*domain.Todo, error)
	Delete(ctx context.Context, id string) error
}

type gormTodoRepository struct {
	db *gorm.DB
}

func NewGormTodoRepository(db *gorm.DB) TodoRepository {
	return &gormTodoRepository{db: db}
}

func preload(tx *gorm.DB, include Include) *gorm.DB {
	if include.Owner {
		tx = tx.Preload("Owner")
	}
	if include.Task {
		tx = tx.Preload("Task")
	}
	return tx
}

func (r *gormTodoRepository) FindMany(ctx context.Context, q TodoQuery) ([]domain.Todo, error) {
	db, p := enhanced(ctx, r.db)
	tx := preload(db.Scopes(policy.Todos(p)), q.Include)
	if q.ListID != "" {
		tx = tx.Where("todos.list_id = ?", q.ListID)
	}
	var todos []domain.Todo
	if err := tx.Order(q.Order.clause("todos")).Find(&todos).Error; err != nil {
		return nil, translate(err)
	}
	return todos, nil
}

func (r *gormTodoRepository) FindByID(ctx context.Context, id string, include Include) (*domain.Todo, error) {
	db, p := enhanced(ctx, r.db)
	var todo domain.Todo
	err := preload(db.Scopes(policy.Todos(p)), include).Where("todos.id = ?", id).First(&todo).Error
	if err != nil {
		return nil, translate(err)
	}
	return &todo, nil
}

// Create connects an existing list and task. The list must be visible, the
// task must be visible and belong to the list's space, and the owner is the
// principal.
func (r *gormTodoRepository) Create(ctx context.Context, todo *domain.Todo) error {
	db, p := enhanced(ctx, r.db)

	var list domain.List
	if err := db.Scopes(policy.Lists(p)).Where("lists.id = ?", todo.ListID).First(&list).Error; err != nil {
		if err = translate(err); errors.Is(err, domain.ErrNotFound) {
			return domain.ErrForbidden
		}
		return err
	}
	var task domain.Task
	if err := db.Scopes(policy.Tasks(p)).Where("tasks.id = ?", todo.TaskID).First(&task).Error; err != nil {
		return translate(err)
	}
	if task.SpaceID != list.SpaceID {
		return domain.ErrForbidden
	}
	if !p.System {
		todo.OwnerID = p.UserID
	}
	return translate(db.Omit(clause.Associations).Create(todo).Error)
}

func (r *gormTodoRepository) SetCompletedAt(ctx context.Context, id string, at *time.Time) (*domain.Todo, error) {
	db, p := enhanced(ctx, r.db)
	var value any = gorm.Expr("NULL")
	if at != nil {
		value = *at
	}
	res := db.Model(&domain.Todo{}).Scopes(policy.Todos(p)).Where("todos.id = ?", id).Update("completed_at", value)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return r.FindByID(ctx, id, Include{Owner: true, Task: true})
}

func (r *gormTodoRepository) Delete(ctx context.Context, id string) error {
	db, p := enhanced(ctx, r.db)
	res := db.Scopes(policy.Todos(p)).Where("todos.id = ?", id).Delete(&domain.Todo{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
