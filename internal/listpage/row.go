package listpage

import (
	"strings"
	"time"

	"github.com/Tomlord1122/space-todo/internal/hooks"
	"github.com/Tomlord1122/space-todo/internal/service"
)

const untitledTask = "Untitled Task"

// TodoRow is the render contract of one todo.
type TodoRow struct {
	ID          string
	Title       string
	Description string
	CompletedAt *time.Time
	CreatedAt   time.Time
	Owner       *service.UserResponse
	// Optimistic is set while a mutation on the row is unconfirmed. Such a
	// row accepts neither toggles nor deletes.
	Optimistic bool
}

func newTodoRow(row hooks.Row[service.TodoResponse], claimed bool) TodoRow {
	todo := row.Value
	r := TodoRow{
		ID:          todo.ID,
		Title:       untitledTask,
		CompletedAt: todo.CompletedAt,
		CreatedAt:   todo.CreatedAt,
		Owner:       todo.Owner,
		Optimistic:  row.Optimistic || claimed,
	}
	if todo.Task != nil {
		if todo.Task.Title != "" {
			r.Title = todo.Task.Title
		}
		r.Description = todo.Task.Description
	}
	return r
}

func (r TodoRow) Completed() bool { return r.CompletedAt != nil }

func (r TodoRow) CheckboxDisabled() bool { return r.Optimistic }

func (r TodoRow) DeleteEnabled() bool { return !r.Optimistic }

// Initials of the owner, for the avatar fallback.
func (r TodoRow) Initials() string {
	if r.Owner == nil {
		return "?"
	}
	name := r.Owner.Name
	if name == "" {
		name = r.Owner.Email
	}
	var initials []rune
	for _, f := range strings.Fields(name) {
		initials = append(initials, []rune(strings.ToUpper(f))[0])
		if len(initials) == 2 {
			break
		}
	}
	if len(initials) == 0 {
		return "?"
	}
	return string(initials)
}
