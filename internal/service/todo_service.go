package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Tomlord1122/space-todo/internal/domain"
	"github.com/Tomlord1122/space-todo/internal/events"
	"github.com/Tomlord1122/space-todo/internal/policy"
	"github.com/Tomlord1122/space-todo/internal/repository"
)

// TodoService defines the operations for managing todos.
type TodoService interface {
	// FindByList returns the list's todos with owner and task, newest first.
	FindByList(ctx context.Context, listID string) ([]TodoResponse, error)

	// Create places an existing task on an existing list.
	Create(ctx context.Context, req CreateTodoRequest) (*TodoResponse, error)

	// Update sets completedAt to the server clock, or clears it.
	Update(ctx context.Context, id string, req UpdateTodoRequest) (*TodoResponse, error)

	Delete(ctx context.Context, id string) error
}

type todoService struct {
	repo      repository.TodoRepository
	lists     repository.ListRepository
	publisher events.Publisher
	now       func() time.Time
}

func NewTodoService(repo repository.TodoRepository, lists repository.ListRepository, pub events.Publisher) TodoService {
	return &todoService{repo: repo, lists: lists, publisher: pub, now: time.Now}
}

var withOwnerAndTask = repository.Include{Owner: true, Task: true}

func (s *todoService) FindByList(ctx context.Context, listID string) ([]TodoResponse, error) {
	if _, err := s.lists.FindByID(ctx, listID); err != nil {
		return nil, fmt.Errorf("list %s: %w", listID, err)
	}
	todos, err := s.repo.FindMany(ctx, repository.TodoQuery{
		ListID:  listID,
		Include: withOwnerAndTask,
		Order:   repository.NewestFirst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve todos of list %s: %w", listID, err)
	}
	responses := make([]TodoResponse, 0, len(todos))
	for _, todo := range todos {
		responses = append(responses, toTodoResponse(todo))
	}
	return responses, nil
}

func (s *todoService) Create(ctx context.Context, req CreateTodoRequest) (*TodoResponse, error) {
	if req.ListID == "" || req.TaskID == "" {
		return nil, fmt.Errorf("%w: listId and taskId are required", domain.ErrValidation)
	}
	todo := &domain.Todo{ListID: req.ListID, TaskID: req.TaskID}
	if err := s.repo.Create(ctx, todo); err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}
	created, err := s.repo.FindByID(ctx, todo.ID, withOwnerAndTask)
	if err != nil {
		return nil, fmt.Errorf("todo %s: %w", todo.ID, err)
	}

	publish(ctx, s.publisher, events.Event{
		Type:     events.TodoCreated,
		EntityID: created.ID,
		ListID:   created.ListID,
		UserID:   policy.FromContext(ctx).UserID,
		At:       created.CreatedAt,
	})

	resp := toTodoResponse(*created)
	return &resp, nil
}

func (s *todoService) Update(ctx context.Context, id string, req UpdateTodoRequest) (*TodoResponse, error) {
	if req.Completed == nil {
		existing, err := s.repo.FindByID(ctx, id, withOwnerAndTask)
		if err != nil {
			return nil, fmt.Errorf("todo %s: %w", id, err)
		}
		resp := toTodoResponse(*existing)
		return &resp, nil
	}

	var at *time.Time
	evType := events.TodoReopened
	if *req.Completed {
		now := s.now().UTC()
		at = &now
		evType = events.TodoCompleted
	}
	updated, err := s.repo.SetCompletedAt(ctx, id, at)
	if err != nil {
		return nil, fmt.Errorf("failed to update todo %s: %w", id, err)
	}

	publish(ctx, s.publisher, events.Event{
		Type:     evType,
		EntityID: updated.ID,
		ListID:   updated.ListID,
		UserID:   policy.FromContext(ctx).UserID,
		At:       updated.UpdatedAt,
	})

	resp := toTodoResponse(*updated)
	return &resp, nil
}

func (s *todoService) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.FindByID(ctx, id, repository.Include{})
	if err != nil {
		return fmt.Errorf("todo %s: %w", id, err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete todo %s: %w", id, err)
	}
	publish(ctx, s.publisher, events.Event{
		Type:     events.TodoDeleted,
		EntityID: id,
		ListID:   existing.ListID,
		UserID:   policy.FromContext(ctx).UserID,
		At:       s.now().UTC(),
	})
	return nil
}
