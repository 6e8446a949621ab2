package web

import (
	"context"
	"errors"

	"github.com/Tomlord1122/space-todo/internal/listpage"
	"github.com/Tomlord1122/space-todo/internal/service"
)

// taskSource scopes the task service to one space.
type taskSource struct {
	tasks   service.TaskService
	spaceID string
}

func (s taskSource) Find(ctx context.Context) ([]service.TaskResponse, error) {
	return s.tasks.FindBySpace(ctx, s.spaceID)
}

func (s taskSource) Create(ctx context.Context, req service.CreateTaskRequest) (service.TaskResponse, error) {
	task, err := s.tasks.Create(ctx, req)
	if err != nil {
		return service.TaskResponse{}, err
	}
	return *task, nil
}

// Tasks cannot be edited or removed from the list page.
func (s taskSource) Update(context.Context, string, listpage.NoUpdate) (service.TaskResponse, error) {
	return service.TaskResponse{}, errors.ErrUnsupported
}

func (s taskSource) Delete(context.Context, string) error {
	return errors.ErrUnsupported
}

// todoSource scopes the todo service to one list.
type todoSource struct {
	todos  service.TodoService
	listID string
}

func (s todoSource) Find(ctx context.Context) ([]service.TodoResponse, error) {
	return s.todos.FindByList(ctx, s.listID)
}

func (s todoSource) Create(ctx context.Context, req service.CreateTodoRequest) (service.TodoResponse, error) {
	todo, err := s.todos.Create(ctx, req)
	if err != nil {
		return service.TodoResponse{}, err
	}
	return *todo, nil
}

func (s todoSource) Update(ctx context.Context, id string, req service.UpdateTodoRequest) (service.TodoResponse, error) {
	todo, err := s.todos.Update(ctx, id, req)
	if err != nil {
		return service.TodoResponse{}, err
	}
	return *todo, nil
}

func (s todoSource) Delete(ctx context.Context, id string) error {
	return s.todos.Delete(ctx, id)
}
