// Package listpage is the state of one viewer's list page: the cached tasks
// and todos, the task typeahead, and the optimistic mutation rules.
package listpage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Tomlord1122/space-todo/internal/hooks"
	"github.com/Tomlord1122/space-todo/internal/service"
	"github.com/Tomlord1122/space-todo/internal/typeahead"
)

// NoUpdate is the update payload of tasks, which are immutable here.
type NoUpdate struct{}

type (
	TaskSource = hooks.Source[service.TaskResponse, service.CreateTaskRequest, NoUpdate]
	TodoSource = hooks.Source[service.TodoResponse, service.CreateTodoRequest, service.UpdateTodoRequest]
)

// Mutation is a validated mutation ready to run. The rows it targets count as
// optimistic from the moment it is returned, so it must be run exactly once.
type Mutation func(ctx context.Context) error

// Page is safe for concurrent use.
type Page struct {
	props  service.ListPageProps
	viewer service.UserResponse
	now    func() time.Time

	tasks *hooks.Collection[service.TaskResponse, service.CreateTaskRequest, NoUpdate]
	todos *hooks.Collection[service.TodoResponse, service.CreateTodoRequest, service.UpdateTodoRequest]

	mu         sync.Mutex
	search     *typeahead.Model[service.TaskResponse]
	claimed    map[string]bool
	submitting bool
	toast      string
}

type Option func(*Page)

// WithClock overrides the clock used for provisional timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Page) { p.now = now }
}

func taskTitle(t service.TaskResponse) string { return t.Title }

func New(props service.ListPageProps, viewer service.UserResponse, tasks TaskSource, todos TodoSource, opts ...Option) *Page {
	p := &Page{
		props:   props,
		viewer:  viewer,
		now:     time.Now,
		search:  typeahead.New(taskTitle),
		claimed: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.tasks = hooks.New(tasks, hooks.Options[service.TaskResponse, service.CreateTaskRequest, NoUpdate]{
		Optimistic: true,
		Draft: func(id string, req service.CreateTaskRequest) service.TaskResponse {
			return service.TaskResponse{
				ID:          id,
				Title:       req.Title,
				Description: req.Description,
				SpaceID:     req.SpaceID,
				OwnerID:     p.props.Space.OwnerID,
				CreatedAt:   p.now(),
			}
		},
		OnError: p.onError,
	})
	p.todos = hooks.New(todos, hooks.Options[service.TodoResponse, service.CreateTodoRequest, service.UpdateTodoRequest]{
		Optimistic: true,
		Draft:      p.draftTodo,
		Apply: func(cur service.TodoResponse, req service.UpdateTodoRequest) service.TodoResponse {
			if req.Completed == nil {
				return cur
			}
			if *req.Completed {
				now := p.now()
				cur.CompletedAt = &now
			} else {
				cur.CompletedAt = nil
			}
			return cur
		},
		OnError: p.onError,
	})
	return p
}

func (p *Page) draftTodo(id string, req service.CreateTodoRequest) service.TodoResponse {
	now := p.now()
	viewer := p.viewer
	draft := service.TodoResponse{
		ID:        id,
		ListID:    req.ListID,
		TaskID:    req.TaskID,
		OwnerID:   viewer.ID,
		CreatedAt: now,
		UpdatedAt: now,
		Owner:     &viewer,
	}
	if row, ok := p.tasks.Get(req.TaskID); ok {
		task := row.Value
		draft.Task = &task
	}
	return draft
}

func (p *Page) onError(op hooks.Op, _ string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toast = fmt.Sprintf("Could not %s: %v", op, err)
}

// Props returns the space and list the page was loaded for.
func (p *Page) Props() service.ListPageProps {
	return p.props
}

// Refresh reloads tasks and todos concurrently. Rows from earlier loads are
// kept when a load fails.
func (p *Page) Refresh(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.tasks.Refresh(gctx) })
	g.Go(func() error { return p.todos.Refresh(gctx) })
	return g.Wait()
}

func (p *Page) taskValues() []service.TaskResponse {
	rows := p.tasks.Rows()
	out := make([]service.TaskResponse, len(rows))
	for i, r := range rows {
		out[i] = r.Value
	}
	return out
}

// SetQuery edits the typeahead text, clearing any selection. Resubmitting
// the current text is not an edit.
func (p *Page) SetQuery(q string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if q != p.search.Query() {
		p.search.SetQuery(q)
	}
}

func (p *Page) SetDescription(d string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if d != p.search.Description() {
		p.search.SetDescription(d)
	}
}

// Select picks an existing task. Unknown tasks and tasks still being created
// cannot be selected.
func (p *Page) Select(taskID string) bool {
	row, ok := p.tasks.Get(taskID)
	if !ok || row.Optimistic {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.search.Select(row.Value)
	return true
}

// claim marks id as busy unless it already is.
func (p *Page) claim(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.claimed[id] {
		return false
	}
	p.claimed[id] = true
	return true
}

func (p *Page) release(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.claimed, id)
}

// PrepareToggle returns nil when the toggle is a no-op: the row is unknown,
// optimistic, or already in the requested state.
func (p *Page) PrepareToggle(todoID string, completed bool) Mutation {
	row, ok := p.todos.Get(todoID)
	if !ok || row.Optimistic {
		return nil
	}
	if completed == (row.Value.CompletedAt != nil) {
		return nil
	}
	if !p.claim(todoID) {
		return nil
	}
	return func(ctx context.Context) error {
		defer p.release(todoID)
		_, err := p.todos.Update(ctx, todoID, service.UpdateTodoRequest{Completed: &completed})
		return err
	}
}

// Toggle sets the completion state of a todo and waits for the server.
func (p *Page) Toggle(ctx context.Context, todoID string, completed bool) error {
	if m := p.PrepareToggle(todoID, completed); m != nil {
		return m(ctx)
	}
	return nil
}

// PrepareDelete returns nil for unknown or optimistic rows.
func (p *Page) PrepareDelete(todoID string) Mutation {
	row, ok := p.todos.Get(todoID)
	if !ok || row.Optimistic || !p.claim(todoID) {
		return nil
	}
	return func(ctx context.Context) error {
		defer p.release(todoID)
		return p.todos.Delete(ctx, todoID)
	}
}

// Delete removes a todo and waits for the server.
func (p *Page) Delete(ctx context.Context, todoID string) error {
	if m := p.PrepareDelete(todoID); m != nil {
		return m(ctx)
	}
	return nil
}

// PrepareSubmit captures the typeahead input. In the Selected state the
// mutation attaches the selected task; in the Creating state it creates the
// task and, only once that succeeded, attaches it. Otherwise, or while
// another submit runs, it returns nil.
func (p *Page) PrepareSubmit() Mutation {
	tasks := p.taskValues()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.submitting {
		return nil
	}
	rev := p.search.Revision()
	switch p.search.State(tasks) {
	case typeahead.Selected:
		task := *p.search.Selected()
		p.submitting = true
		return func(ctx context.Context) error {
			defer p.endSubmit()
			if err := p.attach(ctx, task); err != nil {
				return err
			}
			p.mu.Lock()
			p.search.Attached(rev)
			p.mu.Unlock()
			return nil
		}
	case typeahead.Creating:
		req := service.CreateTaskRequest{
			Title:       p.search.Query(),
			Description: p.search.Description(),
			SpaceID:     p.props.Space.ID,
		}
		p.submitting = true
		return func(ctx context.Context) error {
			defer p.endSubmit()
			task, err := p.tasks.Create(ctx, req)
			if err != nil {
				return err
			}
			if err := p.attach(ctx, task); err != nil {
				return err
			}
			p.mu.Lock()
			p.search.Created(rev)
			p.mu.Unlock()
			return nil
		}
	}
	return nil
}

// Submit runs PrepareSubmit's mutation and waits for it.
func (p *Page) Submit(ctx context.Context) error {
	if m := p.PrepareSubmit(); m != nil {
		return m(ctx)
	}
	return nil
}

func (p *Page) endSubmit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitting = false
}

func (p *Page) attach(ctx context.Context, task service.TaskResponse) error {
	_, err := p.todos.Create(ctx, service.CreateTodoRequest{ListID: p.props.List.ID, TaskID: task.ID})
	return err
}

// TaskOption is one typeahead match.
type TaskOption struct {
	Task service.TaskResponse
	// Pending tasks are still being created and cannot be picked.
	Pending bool
}

// View is everything the list page template renders.
type View struct {
	Space       service.SpaceResponse
	List        service.ListResponse
	Viewer      service.UserResponse
	Query       string
	Description string
	State       typeahead.State
	Matches     []TaskOption
	CanCreate   bool
	Selected    *service.TaskResponse
	Todos       []TodoRow
	Submitting  bool
	// Toast is the last mutation error. Reading the view clears it.
	Toast string
}

// Pending reports whether anything on the page awaits the server.
func (v View) Pending() bool {
	if v.Submitting {
		return true
	}
	for _, r := range v.Todos {
		if r.Optimistic {
			return true
		}
	}
	return false
}

// View snapshots the page.
func (p *Page) View() View {
	taskRows := p.tasks.Rows()
	todoRows := p.todos.Rows()
	tasks := make([]service.TaskResponse, len(taskRows))
	pendingTask := make(map[string]bool, len(taskRows))
	for i, r := range taskRows {
		tasks[i] = r.Value
		pendingTask[r.Value.ID] = r.Optimistic
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	v := View{
		Space:       p.props.Space,
		List:        p.props.List,
		Viewer:      p.viewer,
		Query:       p.search.Query(),
		Description: p.search.Description(),
		State:       p.search.State(tasks),
		CanCreate:   typeahead.CanCreate(tasks, taskTitle, p.search.Query()),
		Submitting:  p.submitting,
		Toast:       p.toast,
	}
	p.toast = ""
	if sel := p.search.Selected(); sel != nil {
		selected := *sel
		v.Selected = &selected
	}
	for _, t := range p.search.Matches(tasks) {
		v.Matches = append(v.Matches, TaskOption{Task: t, Pending: pendingTask[t.ID]})
	}
	v.Todos = make([]TodoRow, len(todoRows))
	for i, r := range todoRows {
		v.Todos[i] = newTodoRow(r, p.claimed[r.Value.ID])
	}
	return v
}
