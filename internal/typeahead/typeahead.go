// Package typeahead implements the pick-or-create flow used to attach a task
// to a list.
package typeahead

import "strings"

// State of the flow.
type State int

const (
	// Searching: free-text query, nothing selected and nothing to create.
	Searching State = iota
	// Selected: an existing candidate was picked.
	Selected
	// Creating: the query matches no existing title exactly.
	Creating
)

func (s State) String() string {
	switch s {
	case Selected:
		return "selected"
	case Creating:
		return "creating"
	default:
		return "searching"
	}
}

// Filter returns the candidates whose title contains query, ignoring case.
// An empty query matches nothing.
func Filter[T any](candidates []T, title func(T) string, query string) []T {
	if query == "" {
		return nil
	}
	needle := strings.ToLower(query)
	var out []T
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(title(c)), needle) {
			out = append(out, c)
		}
	}
	return out
}

// CanCreate reports whether the create affordance is offered: the query is
// non-empty and equals no candidate title, ignoring case.
func CanCreate[T any](candidates []T, title func(T) string, query string) bool {
	if query == "" {
		return false
	}
	for _, c := range candidates {
		if strings.EqualFold(title(c), query) {
			return false
		}
	}
	return true
}

// Model holds the query, the optional description for a new candidate and the
// current selection. Selection and query edits are mutually exclusive: every
// query edit clears the selection. Model is not safe for concurrent use.
type Model[T any] struct {
	title       func(T) string
	query       string
	description string
	selected    *T
	revision    uint64
}

func New[T any](title func(T) string) *Model[T] {
	return &Model[T]{title: title}
}

func (m *Model[T]) Query() string       { return m.query }
func (m *Model[T]) Description() string { return m.description }

// Selected returns the picked candidate, or nil.
func (m *Model[T]) Selected() *T {
	return m.selected
}

// Revision increases on every edit so a slow submit can tell whether the
// input it acted on is still current.
func (m *Model[T]) Revision() uint64 {
	return m.revision
}

// SetQuery replaces the query text and clears the selection.
func (m *Model[T]) SetQuery(q string) {
	m.query = q
	m.selected = nil
	m.revision++
}

func (m *Model[T]) SetDescription(d string) {
	m.description = d
	m.revision++
}

// Select picks a candidate.
func (m *Model[T]) Select(c T) {
	m.selected = &c
	m.revision++
}

// State derives the flow state from the selection and the candidates.
func (m *Model[T]) State(candidates []T) State {
	switch {
	case m.selected != nil:
		return Selected
	case CanCreate(candidates, m.title, m.query):
		return Creating
	default:
		return Searching
	}
}

// Matches filters candidates by the current query.
func (m *Model[T]) Matches(candidates []T) []T {
	return Filter(candidates, m.title, m.query)
}

// Attached finishes an attach: the selection is cleared, the query kept.
// It is a no-op when the model was edited after revision rev.
func (m *Model[T]) Attached(rev uint64) {
	if m.revision != rev {
		return
	}
	m.selected = nil
	m.revision++
}

// Created finishes a create-and-attach: query, description and selection are
// cleared. It is a no-op when the model was edited after revision rev.
func (m *Model[T]) Created(rev uint64) {
	if m.revision != rev {
		return
	}
	m.query = ""
	m.description = ""
	m.selected = nil
	m.revision++
}
