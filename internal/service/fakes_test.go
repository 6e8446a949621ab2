package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Tomlord1122/space-todo/internal/domain"
	"github.com/Tomlord1122/space-todo/internal/events"
	"github.com/Tomlord1122/space-todo/internal/repository"
)

// In-memory repositories. They ignore the access policy; the gorm
// implementations are covered by the repository integration tests.

type fakeSpaces struct {
	bySlug map[string]domain.Space
}

func (f *fakeSpaces) FindBySlug(_ context.Context, slug string) (*domain.Space, error) {
	if s, ok := f.bySlug[slug]; ok {
		return &s, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSpaces) FindByID(_ context.Context, id string) (*domain.Space, error) {
	for _, s := range f.bySlug {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSpaces) FindFirst(context.Context) (*domain.Space, error) {
	for _, s := range f.bySlug {
		return &s, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSpaces) Create(_ context.Context, s *domain.Space) error {
	f.bySlug[s.Slug] = *s
	return nil
}

func (f *fakeSpaces) AddMember(context.Context, string, string, domain.Role) error { return nil }

type fakeLists struct {
	byID map[string]domain.List
}

func (f *fakeLists) FindByID(_ context.Context, id string) (*domain.List, error) {
	if l, ok := f.byID[id]; ok {
		return &l, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeLists) FindBySpace(_ context.Context, spaceID string) ([]domain.List, error) {
	var out []domain.List
	for _, l := range f.byID {
		if l.SpaceID == spaceID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLists) Create(_ context.Context, l *domain.List) error {
	f.byID[l.ID] = *l
	return nil
}

type fakeTasks struct {
	mu        sync.Mutex
	tasks     []domain.Task
	findCalls int
	createErr error

	findGate    chan struct{}
	findStarted chan struct{}
}

func (f *fakeTasks) FindMany(_ context.Context, q repository.TaskQuery) ([]domain.Task, error) {
	f.mu.Lock()
	f.findCalls++
	var out []domain.Task
	for _, t := range f.tasks {
		if q.SpaceID == "" || t.SpaceID == q.SpaceID {
			out = append(out, t)
		}
	}
	gate, started := f.findGate, f.findStarted
	f.mu.Unlock()

	if gate != nil {
		started <- struct{}{}
		<-gate
	}
	return out, nil
}

// holdFinds makes the next FindMany wait, after reading, until the returned
// func is called.
func (f *fakeTasks) holdFinds() (started <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	ch := make(chan struct{}, 1)
	f.findGate, f.findStarted = gate, ch
	return ch, func() {
		f.mu.Lock()
		f.findGate, f.findStarted = nil, nil
		f.mu.Unlock()
		close(gate)
	}
}

func (f *fakeTasks) FindByID(_ context.Context, id string) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTasks) Create(_ context.Context, t *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	t.ID = fmt.Sprintf("task-%d", len(f.tasks)+1)
	t.CreatedAt = time.Now()
	f.tasks = append([]domain.Task{*t}, f.tasks...)
	return nil
}

type fakeTodos struct {
	todos       map[string]domain.Todo
	tasks       *fakeTasks
	setCalls    int
	lastSetAt   *time.Time
	deleteCalls int
}

func (f *fakeTodos) withRelations(t domain.Todo) domain.Todo {
	if task, err := f.tasks.FindByID(context.Background(), t.TaskID); err == nil {
		t.Task = *task
	}
	t.Owner = domain.User{Model: domain.Model{ID: t.OwnerID}, Name: "Owner"}
	return t
}

func (f *fakeTodos) FindMany(_ context.Context, q repository.TodoQuery) ([]domain.Todo, error) {
	var out []domain.Todo
	for _, t := range f.todos {
		if t.ListID == q.ListID {
			out = append(out, f.withRelations(t))
		}
	}
	return out, nil
}

func (f *fakeTodos) FindByID(_ context.Context, id string, _ repository.Include) (*domain.Todo, error) {
	t, ok := f.todos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	t = f.withRelations(t)
	return &t, nil
}

func (f *fakeTodos) Create(_ context.Context, t *domain.Todo) error {
	if _, err := f.tasks.FindByID(context.Background(), t.TaskID); err != nil {
		return err
	}
	t.ID = fmt.Sprintf("todo-%d", len(f.todos)+1)
	t.OwnerID = "user-1"
	f.todos[t.ID] = *t
	return nil
}

func (f *fakeTodos) SetCompletedAt(_ context.Context, id string, at *time.Time) (*domain.Todo, error) {
	f.setCalls++
	f.lastSetAt = at
	t, ok := f.todos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	t.CompletedAt = at
	f.todos[id] = t
	t = f.withRelations(t)
	return &t, nil
}

func (f *fakeTodos) Delete(_ context.Context, id string) error {
	f.deleteCalls++
	if _, ok := f.todos[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.todos, id)
	return nil
}

type mapCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	invalidated []string
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[key]
	return b, ok
}

func (c *mapCache) Set(_ context.Context, key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

func (c *mapCache) Invalidate(_ context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		c.invalidated = append(c.invalidated, k)
	}
}

type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type world struct {
	spaces *fakeSpaces
	lists  *fakeLists
	tasks  *fakeTasks
	todos  *fakeTodos
	cache  *mapCache
	pub    *recordingPublisher
}

// List ids are UUIDs like the real ones; malformed ids never reach a repository.
const (
	listOne     = "3f6c2a9e-5b1d-4e7a-8c0f-1a2b3c4d5e6f"
	listTwo     = "9d8e7f6a-4b3c-4d2e-8f1a-0b9c8d7e6f5a"
	listMissing = "00000000-0000-4000-8000-000000000404"
)

func newWorld() *world {
	space := domain.Space{Model: domain.Model{ID: "space-1"}, Name: "Home", Slug: "home", OwnerID: "owner-1"}
	other := domain.Space{Model: domain.Model{ID: "space-2"}, Name: "Work", Slug: "work", OwnerID: "owner-2"}
	tasks := &fakeTasks{}
	return &world{
		spaces: &fakeSpaces{bySlug: map[string]domain.Space{"home": space, "work": other}},
		lists: &fakeLists{byID: map[string]domain.List{
			listOne: {Model: domain.Model{ID: listOne}, SpaceID: "space-1", Title: "Groceries"},
			listTwo: {Model: domain.Model{ID: listTwo}, SpaceID: "space-2", Title: "Sprint"},
		}},
		tasks: tasks,
		todos: &fakeTodos{todos: map[string]domain.Todo{}, tasks: tasks},
		cache: newMapCache(),
		pub:   &recordingPublisher{},
	}
}
