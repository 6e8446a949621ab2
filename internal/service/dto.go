package service

import (
	"time"

	"github.com/Tomlord1122/space-todo/internal/domain"
)

// Data transfer objects decouple the HTTP layer and the page controller from
// the gorm models.

type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

type SpaceResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	OwnerID string `json:"ownerId"`
}

type ListResponse struct {
	ID      string `json:"id"`
	SpaceID string `json:"spaceId"`
	OwnerID string `json:"ownerId"`
	Title   string `json:"title"`
	Private bool   `json:"private"`
}

// ListPageProps is what the list page needs before it can render.
type ListPageProps struct {
	Space SpaceResponse `json:"space"`
	List  ListResponse  `json:"list"`
}

// SpacePageProps is the space overview: the space and the lists the
// principal can see.
type SpacePageProps struct {
	Space SpaceResponse  `json:"space"`
	Lists []ListResponse `json:"lists"`
}

type TaskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	SpaceID     string    `json:"spaceId"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Key identifies the task in client collections.
func (t TaskResponse) Key() string { return t.ID }

// CreateTaskRequest creates a task in a space. The owner is the space owner.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	SpaceID     string `json:"spaceId"`
}

type TodoResponse struct {
	ID          string        `json:"id"`
	ListID      string        `json:"listId"`
	TaskID      string        `json:"taskId"`
	OwnerID     string        `json:"ownerId"`
	CompletedAt *time.Time    `json:"completedAt"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	Owner       *UserResponse `json:"owner,omitempty"`
	Task        *TaskResponse `json:"task,omitempty"`
}

// Key identifies the todo in client collections.
func (t TodoResponse) Key() string { return t.ID }

// CreateTodoRequest connects an existing task to an existing list.
type CreateTodoRequest struct {
	ListID string `json:"listId"`
	TaskID string `json:"taskId"`
}

// UpdateTodoRequest toggles completion. The server stamps the time; a nil
// Completed leaves the todo unchanged.
type UpdateTodoRequest struct {
	Completed *bool `json:"completed"`
}

func toUserResponse(u domain.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name, Image: u.Image}
}

func toSpaceResponse(s domain.Space) SpaceResponse {
	return SpaceResponse{ID: s.ID, Name: s.Name, Slug: s.Slug, OwnerID: s.OwnerID}
}

func toListResponse(l domain.List) ListResponse {
	return ListResponse{ID: l.ID, SpaceID: l.SpaceID, OwnerID: l.OwnerID, Title: l.Title, Private: l.Private}
}

func toTaskResponse(t domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:        t.ID,
		Title:     t.Title,
		SpaceID:   t.SpaceID,
		OwnerID:   t.OwnerID,
		CreatedAt: t.CreatedAt,
	}
	if t.Description != nil {
		resp.Description = *t.Description
	}
	return resp
}

func toTodoResponse(t domain.Todo) TodoResponse {
	resp := TodoResponse{
		ID:          t.ID,
		ListID:      t.ListID,
		TaskID:      t.TaskID,
		OwnerID:     t.OwnerID,
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.Owner.ID != "" {
		owner := toUserResponse(t.Owner)
		resp.Owner = &owner
	}
	if t.Task.ID != "" {
		task := toTaskResponse(t.Task)
		resp.Task = &task
	}
	return resp
}
