package workspace

import (
	"bytes"
	"context"
	"html/template"
	"net/url"

	"sw360-console/listing"
	"sw360-console/querybridge"
	"sw360-console/session"
	"sw360-console/table"
)

// Screen is the state behind one list page of one session. It outlives the
// request that created it so paging, sorting and in-flight fetches carry over
// between page loads.
type Screen interface {
	// Sync feeds the request's query string to the list and reports whether
	// a fetch was started.
	Sync(values url.Values) (bool, error)
	Start(ctx context.Context) error
	Reload() error
	Wait(ctx context.Context) error
	// Location is the canonical query string of the screen's current state.
	Location() url.Values
	Snapshot(viewer session.User, basePath string) (Snapshot, error)
	Close()
}

// Snapshot is a rendered view of a screen at one instant.
type Snapshot struct {
	Table    template.HTML
	Query    listing.PageableQuery
	Filters  map[string]string
	Total    int
	Fetching bool
	Loaded   bool
	Outcome  listing.Outcome
}

// ListScreen binds a controller, its URL bridge and the table that draws it.
type ListScreen[T any] struct {
	controller *listing.Controller[T]
	bridge     *querybridge.Bridge[T]
	table      table.Table[T]
}

func NewListScreen[T any](c *listing.Controller[T], b *querybridge.Bridge[T], t table.Table[T]) *ListScreen[T] {
	return &ListScreen[T]{controller: c, bridge: b, table: t}
}

func (s *ListScreen[T]) Sync(values url.Values) (bool, error) {
	return s.bridge.Sync(values)
}

func (s *ListScreen[T]) Start(ctx context.Context) error {
	return s.controller.Start(ctx)
}

func (s *ListScreen[T]) Reload() error {
	return s.controller.Reload()
}

func (s *ListScreen[T]) Wait(ctx context.Context) error {
	return s.controller.Wait(ctx)
}

func (s *ListScreen[T]) Location() url.Values {
	state := s.controller.State()
	return querybridge.Encode(state.Query, state.Filters)
}

func (s *ListScreen[T]) Snapshot(viewer session.User, basePath string) (Snapshot, error) {
	state := s.controller.State()
	var buf bytes.Buffer
	if err := s.table.Render(&buf, table.FromState(state, viewer, basePath)); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Table:    template.HTML(buf.String()),
		Query:    state.Query,
		Filters:  state.Filters,
		Total:    state.Meta.TotalElements,
		Fetching: state.Lifecycle == listing.Fetching,
		Loaded:   state.Loaded,
		Outcome:  state.Outcome,
	}, nil
}

func (s *ListScreen[T]) Close() {
	s.controller.Close()
}
