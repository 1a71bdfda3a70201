// Package workspace keeps the list screens of every signed-in session alive
// between requests and tears them down when the session ends.
package workspace

import (
	"context"
	"errors"
	"sync"
	"time"

	"sw360-console/logger"
	"sw360-console/session"
)

var ErrClosed = errors.New("workspace is closed")

// Key identifies one screen: a resource list as seen by one session.
type Key struct {
	Session  session.ID
	Resource string
}

type Workspace struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	screens  map[Key]Screen
	lastSeen map[session.ID]time.Time
	closed   bool
	now      func() time.Time

	unsubscribe func()
}

// New returns a workspace whose screens are closed when events reports the
// owning session signed out. events may be nil.
func New(events *session.Events) *Workspace {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Workspace{
		ctx:      ctx,
		cancel:   cancel,
		screens:  make(map[Key]Screen),
		lastSeen: make(map[session.ID]time.Time),
		now:      time.Now,
	}
	if events != nil {
		w.unsubscribe = events.Subscribe(func(ev session.Event) {
			n := w.CloseSession(ev.SessionID)
			logger.InfoWithFields("session screens closed", logger.Fields{
				"session_id": string(ev.SessionID),
				"reason":     string(ev.Reason),
				"screens":    n,
			})
		})
	}
	return w
}

// Open returns the screen for key, building and starting it on first use.
// prepare runs on a freshly built screen before it starts so the first fetch
// already carries the request's query. created reports whether build ran.
// Neither build nor prepare may block.
func (w *Workspace) Open(key Key, build func() Screen, prepare func(Screen) error) (s Screen, created bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, false, ErrClosed
	}
	w.lastSeen[key.Session] = w.now()
	if s, ok := w.screens[key]; ok {
		return s, false, nil
	}
	s = build()
	if prepare != nil {
		if err := prepare(s); err != nil {
			s.Close()
			return nil, false, err
		}
	}
	if err := s.Start(w.ctx); err != nil {
		s.Close()
		return nil, false, err
	}
	w.screens[key] = s
	return s, true, nil
}

// Lookup returns an existing screen without creating one.
func (w *Workspace) Lookup(key Key) (Screen, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.screens[key]
	if ok {
		w.lastSeen[key.Session] = w.now()
	}
	return s, ok
}

// Reload refetches key's screen if it is open.
func (w *Workspace) Reload(key Key) error {
	s, ok := w.Lookup(key)
	if !ok {
		return nil
	}
	return s.Reload()
}

// CloseSession closes every screen owned by id and reports how many there were.
func (w *Workspace) CloseSession(id session.ID) int {
	w.mu.Lock()
	var victims []Screen
	for key, s := range w.screens {
		if key.Session == id {
			victims = append(victims, s)
			delete(w.screens, key)
		}
	}
	delete(w.lastSeen, id)
	w.mu.Unlock()

	for _, s := range victims {
		s.Close()
	}
	return len(victims)
}

func (w *Workspace) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.screens)
}

// Close stops every screen and detaches from the session events.
func (w *Workspace) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	screens := w.screens
	w.screens = make(map[Key]Screen)
	w.lastSeen = make(map[session.ID]time.Time)
	w.mu.Unlock()

	if w.unsubscribe != nil {
		w.unsubscribe()
	}
	w.cancel()
	for _, s := range screens {
		s.Close()
	}
}

// Liveness reports whether a session may keep its screens.
type Liveness func(ctx context.Context, id session.ID) bool

// Sweep closes the screens of every session that alive rejects or that has
// not been used for longer than idle, and returns those sessions. A zero idle
// disables the idle check. alive runs without the workspace lock held, so it
// may sign the session out.
func (w *Workspace) Sweep(ctx context.Context, alive Liveness, idle time.Duration) []session.ID {
	w.mu.Lock()
	now := w.now()
	seen := make(map[session.ID]time.Time, len(w.lastSeen))
	for id, at := range w.lastSeen {
		seen[id] = at
	}
	w.mu.Unlock()

	var swept []session.ID
	for id, at := range seen {
		stale := idle > 0 && now.Sub(at) > idle
		if !stale && (alive == nil || alive(ctx, id)) {
			continue
		}
		if stale && !w.idleSince(id, at) {
			continue
		}
		w.CloseSession(id)
		swept = append(swept, id)
	}
	return swept
}

// idleSince reports whether id has not been used since at.
func (w *Workspace) idleSince(id session.ID, at time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	last, ok := w.lastSeen[id]
	return ok && !last.After(at)
}

// RunSweeper calls Sweep every interval until ctx ends. afterSweep, when
// set, runs after every sweep with the sessions it released.
func (w *Workspace) RunSweeper(ctx context.Context, interval, idle time.Duration, alive Liveness, afterSweep func([]session.ID)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept := w.Sweep(ctx, alive, idle)
			if len(swept) > 0 {
				logger.InfoWithFields("session screens swept", logger.Fields{"sessions": len(swept)})
			}
			if afterSweep != nil {
				afterSweep(swept)
			}
		}
	}
}

// ManagerLiveness keeps the sessions m still knows about. An expired entry is
// signed out so the store and every event subscriber release it as well.
func ManagerLiveness(m *session.Manager) Liveness {
	return func(ctx context.Context, id session.ID) bool {
		entry, status := m.Lookup(ctx, id)
		if status != session.StatusUnauthenticated {
			return true
		}
		if entry.ID != "" {
			m.SignOut(ctx, id, session.ReasonExpired)
		}
		return false
	}
}
