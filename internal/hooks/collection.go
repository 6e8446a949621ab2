// Package hooks is the client-side data layer of the list page: a cached
// find-many result per entity plus the mutation entry points, optionally
// reflecting mutations before the server confirms them.
package hooks

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Entity is anything with a stable identifier.
type Entity interface {
	Key() string
}

// Source performs the network side of a collection: one find-many query and
// the create, update and delete mutations.
type Source[T Entity, C, U any] interface {
	Find(ctx context.Context) ([]T, error)
	Create(ctx context.Context, data C) (T, error)
	Update(ctx context.Context, id string, data U) (T, error)
	Delete(ctx context.Context, id string) error
}

// Op names a mutation kind.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Options configure a Collection.
type Options[T Entity, C, U any] struct {
	// Optimistic reflects mutations in Rows before the server confirms them.
	Optimistic bool
	// Draft builds the provisional row shown while a create is in flight.
	// Without it creates are not reflected early.
	Draft func(id string, data C) T
	// Apply computes the provisional row while an update is in flight.
	// Without it updates are not reflected early.
	Apply func(current T, data U) T
	// OnError is called after a failed mutation has been rolled back.
	OnError func(op Op, id string, err error)
	// NewID generates temporary ids for drafts. Defaults to uuid.NewString.
	NewID func() string
}

// Row is one rendered entity.
type Row[T any] struct {
	Value T
	// Optimistic is set while a mutation targeting this row is in flight.
	Optimistic bool
}

type pending[T any, U any] struct {
	op    Op
	id    string
	draft T
	data  U
}

// Collection caches one query result. The server rows are kept as the base and
// pending operations are folded over them on every read, so dropping a failed
// operation is the rollback.
type Collection[T Entity, C, U any] struct {
	src     Source[T, C, U]
	opts    Options[T, C, U]
	tracker *Tracker

	mu      sync.Mutex
	base    []T
	loaded  bool
	pending []*pending[T, U]
	// gen counts confirmed mutations. A query that overlapped one is stale.
	gen uint64
}

func New[T Entity, C, U any](src Source[T, C, U], opts Options[T, C, U]) *Collection[T, C, U] {
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Collection[T, C, U]{src: src, opts: opts, tracker: NewTracker()}
}

// Tracker exposes the in-flight counts.
func (c *Collection[T, C, U]) Tracker() *Tracker {
	return c.tracker
}

// Refresh re-runs the query. On failure the previous rows are kept, and so
// are they when a mutation was confirmed while the query ran.
func (c *Collection[T, C, U]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	rows, err := c.src.Find(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return nil
	}
	c.base = rows
	c.loaded = true
	return nil
}

// Loaded reports whether a Refresh has succeeded.
func (c *Collection[T, C, U]) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Rows returns the current view: server rows with pending operations applied.
func (c *Collection[T, C, U]) Rows() []Row[T] {
	c.mu.Lock()
	values := c.fold()
	c.mu.Unlock()

	rows := make([]Row[T], len(values))
	for i, v := range values {
		rows[i] = Row[T]{Value: v, Optimistic: c.tracker.Pending(v.Key())}
	}
	return rows
}

// Get returns the current view of one row.
func (c *Collection[T, C, U]) Get(id string) (Row[T], bool) {
	for _, row := range c.Rows() {
		if row.Value.Key() == id {
			return row, true
		}
	}
	return Row[T]{}, false
}

// Pending reports whether any mutation is in flight.
func (c *Collection[T, C, U]) Pending() bool {
	return c.tracker.Any()
}

// fold must be called with c.mu held.
func (c *Collection[T, C, U]) fold() []T {
	values := slices.Clone(c.base)
	for _, p := range c.pending {
		idx := indexOf(values, p.id)
		switch p.op {
		case OpCreate:
			if idx < 0 {
				values = slices.Insert(values, 0, p.draft)
			}
		case OpUpdate:
			if idx >= 0 {
				values[idx] = c.opts.Apply(values[idx], p.data)
			}
		case OpDelete:
			if idx >= 0 {
				values = slices.Delete(values, idx, idx+1)
			}
		}
	}
	return values
}

func indexOf[T Entity](values []T, id string) int {
	return slices.IndexFunc(values, func(v T) bool { return v.Key() == id })
}

func (c *Collection[T, C, U]) push(p *pending[T, U]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, p)
}

// settle removes p and, when the mutation succeeded, folds its result into base.
func (c *Collection[T, C, U]) settle(p *pending[T, U], commit func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p != nil {
		if i := slices.Index(c.pending, p); i >= 0 {
			c.pending = slices.Delete(c.pending, i, i+1)
		}
	}
	if commit != nil {
		commit()
		c.gen++
	}
}

func (c *Collection[T, C, U]) fail(op Op, id string, err error) {
	if c.opts.OnError != nil {
		c.opts.OnError(op, id, err)
	}
}

// Create inserts data. The created row is placed first, matching the
// newest-first ordering of the queries this package serves.
func (c *Collection[T, C, U]) Create(ctx context.Context, data C) (T, error) {
	var p *pending[T, U]
	if c.opts.Optimistic && c.opts.Draft != nil {
		id := c.opts.NewID()
		p = &pending[T, U]{op: OpCreate, id: id, draft: c.opts.Draft(id, data)}
		c.tracker.Begin(id)
		c.push(p)
		defer c.tracker.End(id)
	}

	created, err := c.src.Create(ctx, data)
	if err != nil {
		c.settle(p, nil)
		id := ""
		if p != nil {
			id = p.id
		}
		c.fail(OpCreate, id, err)
		var zero T
		return zero, err
	}
	c.settle(p, func() {
		if indexOf(c.base, created.Key()) < 0 {
			c.base = slices.Insert(c.base, 0, created)
		}
	})
	return created, nil
}

// Update changes the row id. The row is optimistic until the server answers.
func (c *Collection[T, C, U]) Update(ctx context.Context, id string, data U) (T, error) {
	c.tracker.Begin(id)
	defer c.tracker.End(id)

	var p *pending[T, U]
	if c.opts.Optimistic && c.opts.Apply != nil {
		p = &pending[T, U]{op: OpUpdate, id: id, data: data}
		c.push(p)
	}

	updated, err := c.src.Update(ctx, id, data)
	if err != nil {
		c.settle(p, nil)
		c.fail(OpUpdate, id, err)
		var zero T
		return zero, err
	}
	c.settle(p, func() {
		if i := indexOf(c.base, id); i >= 0 {
			c.base[i] = updated
		}
	})
	return updated, nil
}

// Delete removes the row id. Optimistically the row disappears at once and
// reappears if the server rejects the delete.
func (c *Collection[T, C, U]) Delete(ctx context.Context, id string) error {
	c.tracker.Begin(id)
	defer c.tracker.End(id)

	var p *pending[T, U]
	if c.opts.Optimistic {
		p = &pending[T, U]{op: OpDelete, id: id}
		c.push(p)
	}

	if err := c.src.Delete(ctx, id); err != nil {
		c.settle(p, nil)
		c.fail(OpDelete, id, err)
		return err
	}
	c.settle(p, func() {
		if i := indexOf(c.base, id); i >= 0 {
			c.base = slices.Delete(c.base, i, i+1)
		}
	})
	return nil
}
