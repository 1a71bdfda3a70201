package listing

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"sw360-console/logger"
	"sw360-console/notify"
	"sw360-console/session"
)

// GenericErrorMessage is shown when a fetch fails for a reason the backend
// did not explain.
const GenericErrorMessage = "Unexpected error while loading data"

var ErrClosed = errors.New("list controller is closed")

type Lifecycle int

const (
	Idle Lifecycle = iota
	Fetching
)

func (l Lifecycle) String() string {
	if l == Fetching {
		return "fetching"
	}
	return "idle"
}

// Outcome is how the most recent fetch cycle ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSettled
	OutcomeAborted
	OutcomeFailed
	OutcomeUnauthenticated
	// OutcomeSuspended means the session was still loading and no request was sent.
	OutcomeSuspended
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSettled:
		return "settled"
	case OutcomeAborted:
		return "aborted"
	case OutcomeFailed:
		return "failed"
	case OutcomeUnauthenticated:
		return "unauthenticated"
	case OutcomeSuspended:
		return "suspended"
	default:
		return "none"
	}
}

// State is a snapshot of a controller. Rows is shared with the controller and
// must not be modified.
type State[T any] struct {
	Query      PageableQuery
	Filters    map[string]string
	Rows       []T
	Meta       PaginationMeta
	Loaded     bool
	Processing bool
	Lifecycle  Lifecycle
	Outcome    Outcome
	Err        error
}

type options struct {
	query    PageableQuery
	filters  map[string]string
	delay    time.Duration
	onChange []func()
}

type Option func(*options)

func WithQuery(q PageableQuery) Option {
	return func(o *options) { o.query = q }
}

func WithFilters(filters map[string]string) Option {
	return func(o *options) { o.filters = maps.Clone(filters) }
}

func WithProcessingDelay(d time.Duration) Option {
	return func(o *options) { o.delay = d }
}

// OnChange registers fn to run after every state change. fn runs on the
// controller's goroutines and may call State but not the mutators.
func OnChange(fn func()) Option {
	return func(o *options) { o.onChange = append(o.onChange, fn) }
}

// Controller keeps one remote list in sync with its query. Every change to
// the query or the filters starts a fetch cycle; a new cycle cancels the
// previous one and only the latest cycle may touch the state.
type Controller[T any] struct {
	fetcher  Fetcher[T]
	guard    session.Guard
	notifier notify.Notifier
	flag     *DelayedFlag
	onChange []func()

	// launch serialises arming the flag with starting the cycle goroutine.
	launch sync.Mutex

	mu         sync.Mutex
	initial    PageableQuery
	query      PageableQuery
	filters    map[string]string
	rows       []T
	meta       PaginationMeta
	loaded     bool
	lifecycle  Lifecycle
	outcome    Outcome
	err        error
	parent     context.Context
	started    bool
	closed     bool
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
}

func New[T any](fetcher Fetcher[T], guard session.Guard, notifier notify.Notifier, opts ...Option) *Controller[T] {
	o := options{query: DefaultQuery(), delay: DefaultProcessingDelay}
	for _, opt := range opts {
		opt(&o)
	}
	if o.query.Validate() != nil {
		o.query = DefaultQuery()
	}
	if notifier == nil {
		notifier = notify.Discard
	}
	if o.filters == nil {
		o.filters = map[string]string{}
	}

	c := &Controller[T]{
		fetcher:  fetcher,
		guard:    guard,
		notifier: notifier,
		onChange: o.onChange,
		initial:  PageableQuery{Page: o.query.Page, PageEntries: o.query.PageEntries},
		query:    o.query,
		filters:  o.filters,
		rows:     []T{},
	}
	c.flag = NewDelayedFlag(o.delay, func(bool) { c.emit() })
	return c
}

// Start binds the controller to ctx and issues the first fetch. Cancelling
// ctx aborts every cycle.
func (c *Controller[T]) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.parent = ctx
	c.started = true
	c.mu.Unlock()

	c.trigger()
	return nil
}

// Close cancels the in-flight cycle. Later mutations are rejected.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	c.flag.Reset()
}

// Wait blocks until no cycle is live or ctx is done.
func (c *Controller[T]) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		done := c.done
		idle := c.lifecycle == Idle
		c.mu.Unlock()
		if idle || done == nil {
			return nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State[T]{
		Query:      c.query,
		Filters:    maps.Clone(c.filters),
		Rows:       c.rows,
		Meta:       c.meta,
		Loaded:     c.loaded,
		Processing: c.flag.On(),
		Lifecycle:  c.lifecycle,
		Outcome:    c.outcome,
		Err:        c.err,
	}
}

func (c *Controller[T]) SetPage(n int) error {
	if n < 0 {
		return ErrInvalidPage
	}
	return c.mutate(func() bool {
		if c.query.Page == n {
			return false
		}
		c.query.Page = n
		return true
	})
}

// SetPageSize changes the page size and keeps the current page.
func (c *Controller[T]) SetPageSize(n int) error {
	if n <= 0 {
		return ErrInvalidPageSize
	}
	return c.mutate(func() bool {
		if c.query.PageEntries == n {
			return false
		}
		c.query.PageEntries = n
		return true
	})
}

// SetSort replaces the active sort token.
func (c *Controller[T]) SetSort(field string, dir Direction) error {
	if field == "" {
		return ErrInvalidSort
	}
	if _, ok := ParseDirection(string(dir)); !ok {
		return ErrInvalidSort
	}
	token := SortToken(field, dir)
	return c.mutate(func() bool {
		if c.query.Sort == token {
			return false
		}
		c.query.Sort = token
		return true
	})
}

func (c *Controller[T]) ClearSort() error {
	return c.mutate(func() bool {
		if c.query.Sort == "" {
			return false
		}
		c.query.Sort = ""
		return true
	})
}

// OnExternalFilterChange replaces the filters, moves back to the initial page
// and fetches once. Sort is left alone.
func (c *Controller[T]) OnExternalFilterChange(filters map[string]string) error {
	next := maps.Clone(filters)
	if next == nil {
		next = map[string]string{}
	}
	return c.mutate(func() bool {
		c.filters = next
		c.query.Page = c.initial.Page
		return true
	})
}

// Apply sets query and filters together and fetches once if either changed.
// It reports whether anything changed.
func (c *Controller[T]) Apply(q PageableQuery, filters map[string]string) (bool, error) {
	if err := q.Validate(); err != nil {
		return false, err
	}
	next := maps.Clone(filters)
	if next == nil {
		next = map[string]string{}
	}
	changed := false
	err := c.mutate(func() bool {
		if c.query == q && maps.Equal(c.filters, next) {
			return false
		}
		c.query = q
		c.filters = next
		changed = true
		return true
	})
	return changed, err
}

// Reload fetches again with the current query.
func (c *Controller[T]) Reload() error {
	return c.mutate(func() bool { return true })
}

func (c *Controller[T]) mutate(change func() bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	changed := change()
	c.mu.Unlock()

	if changed {
		c.trigger()
	}
	return nil
}

type cycle struct {
	ctx        context.Context
	generation uint64
	query      PageableQuery
	filters    map[string]string
	hasData    bool
	token      uint64
	done       chan struct{}
}

func (c *Controller[T]) trigger() {
	c.launch.Lock()
	defer c.launch.Unlock()

	c.mu.Lock()
	if !c.started || c.closed {
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	ctx, cancel := context.WithCancel(c.parent)
	cy := &cycle{
		ctx:        ctx,
		generation: c.generation,
		query:      c.query,
		filters:    maps.Clone(c.filters),
		hasData:    len(c.rows) > 0,
		done:       make(chan struct{}),
	}
	c.cancel = cancel
	c.done = cy.done
	c.lifecycle = Fetching
	c.mu.Unlock()

	cy.token = c.flag.Arm(cy.hasData)
	c.emit()
	go c.run(cy, cancel)
}

func (c *Controller[T]) run(cy *cycle, cancel context.CancelFunc) {
	defer close(cy.done)
	defer cancel()

	page, outcome, err := c.fetch(cy)
	current := c.settle(cy, page, outcome, err)
	if !current {
		return
	}

	if outcome == OutcomeFailed {
		var be *BackendError
		if errors.As(err, &be) {
			c.notifier.Error(be.Message)
		} else {
			logger.ErrorWithFields("list fetch failed", logger.Fields{
				"query": cy.query.Values().Encode(),
				"error": err.Error(),
			})
			c.notifier.Error(GenericErrorMessage)
		}
	}
	c.flag.Disarm(cy.token)
	c.emit()
}

func (c *Controller[T]) fetch(cy *cycle) (Page[T], Outcome, error) {
	cred, status := c.guard.Resolve(cy.ctx)
	switch status {
	case session.StatusLoading:
		return Page[T]{}, OutcomeSuspended, nil
	case session.StatusUnauthenticated:
		c.guard.SignOut(context.WithoutCancel(cy.ctx), session.ReasonExpired)
		return Page[T]{}, OutcomeUnauthenticated, nil
	}

	page, err := c.fetcher.Fetch(cy.ctx, Request{
		Params:     BuildParams(cy.filters, cy.query),
		Credential: cred,
	})
	switch {
	case err == nil:
		if cy.ctx.Err() != nil {
			return Page[T]{}, OutcomeAborted, nil
		}
		return page, OutcomeSettled, nil
	case errors.Is(err, context.Canceled) || cy.ctx.Err() != nil:
		return Page[T]{}, OutcomeAborted, nil
	case errors.Is(err, ErrUnauthenticated):
		c.guard.SignOut(context.WithoutCancel(cy.ctx), session.ReasonRejected)
		return Page[T]{}, OutcomeUnauthenticated, err
	default:
		return Page[T]{}, OutcomeFailed, err
	}
}

// settle applies a finished cycle. It reports false when a newer cycle has
// started, in which case nothing is touched.
func (c *Controller[T]) settle(cy *cycle, page Page[T], outcome Outcome, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cy.generation != c.generation {
		return false
	}
	c.lifecycle = Idle
	c.cancel = nil
	if outcome == OutcomeAborted {
		return true
	}
	c.outcome = outcome
	c.err = err
	if outcome == OutcomeSettled {
		rows := page.Rows
		if rows == nil {
			rows = []T{}
		}
		c.rows = rows
		c.meta = page.Meta
		c.loaded = true
	}
	return true
}

func (c *Controller[T]) emit() {
	for _, fn := range c.onChange {
		fn()
	}
}
