package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sw360-console/logger"

	"github.com/google/uuid"
)

// Manager owns the lifecycle of browser sessions: a pending entry while the
// token exchange runs, the credential once it completes, and removal on
// sign-out.
type Manager struct {
	store  Store
	ttl    time.Duration
	events *Events
	now    func() time.Time
}

func NewManager(store Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Manager{
		store:  store,
		ttl:    ttl,
		events: NewEvents(),
		now:    time.Now,
	}
}

func (m *Manager) Events() *Events {
	return m.events
}

// Begin stores a pending entry for user. Until Complete is called the session
// resolves as loading.
func (m *Manager) Begin(ctx context.Context, user User) (Entry, error) {
	now := m.now()
	entry := Entry{
		ID:        ID(uuid.NewString()),
		User:      user,
		Pending:   true,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, entry); err != nil {
		return Entry{}, fmt.Errorf("failed to save session: %w", err)
	}
	return entry, nil
}

// Complete attaches cred and the user's profile to a pending session. The
// session never outlives the credential.
func (m *Manager) Complete(ctx context.Context, id ID, user User, cred Credential) (Entry, error) {
	if cred.IsZero() {
		return Entry{}, errors.New("empty credential")
	}
	entry, err := m.store.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	entry.User = user
	entry.Credential = cred
	entry.Pending = false
	if !cred.ExpiresAt.IsZero() && cred.ExpiresAt.Before(entry.ExpiresAt) {
		entry.ExpiresAt = cred.ExpiresAt
	}
	if err := m.store.Save(ctx, entry); err != nil {
		return Entry{}, fmt.Errorf("failed to save session: %w", err)
	}
	return entry, nil
}

// Fail drops a pending session whose token exchange did not succeed.
func (m *Manager) Fail(ctx context.Context, id ID) error {
	return m.store.Delete(ctx, id)
}

func (m *Manager) Get(ctx context.Context, id ID) (Entry, error) {
	return m.store.Get(ctx, id)
}

func (m *Manager) Resolve(ctx context.Context, id ID) (Credential, Status) {
	entry, status := m.Lookup(ctx, id)
	return entry.Credential, status
}

// Lookup returns the entry behind id together with its status. The entry is
// zero when the id is unknown, and carries no credential unless authenticated.
func (m *Manager) Lookup(ctx context.Context, id ID) (Entry, Status) {
	if id == "" {
		return Entry{}, StatusUnauthenticated
	}
	entry, err := m.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.ErrorWithFields("session lookup failed", logger.Fields{
				"session_id": string(id),
				"error":      err.Error(),
			})
		}
		return Entry{}, StatusUnauthenticated
	}
	if entry.Pending {
		entry.Credential = Credential{}
		return entry, StatusLoading
	}
	if !entry.IsValid(m.now()) || entry.Credential.IsZero() {
		entry.Credential = Credential{}
		return entry, StatusUnauthenticated
	}
	return entry, StatusAuthenticated
}

// SignOut removes the session and announces it on the event channel.
func (m *Manager) SignOut(ctx context.Context, id ID, reason Reason) {
	if id != "" {
		if err := m.store.Delete(ctx, id); err != nil {
			logger.ErrorWithFields("session delete failed", logger.Fields{
				"session_id": string(id),
				"error":      err.Error(),
			})
		}
	}
	m.events.Publish(Event{SessionID: id, Reason: reason, At: m.now()})
}

// Guard binds the manager to one session id.
func (m *Manager) Guard(id ID) Guard {
	return &managerGuard{manager: m, id: id}
}

type managerGuard struct {
	manager *Manager
	id      ID
}

func (g *managerGuard) Resolve(ctx context.Context) (Credential, Status) {
	return g.manager.Resolve(ctx, g.id)
}

func (g *managerGuard) SignOut(ctx context.Context, reason Reason) {
	g.manager.SignOut(ctx, g.id, reason)
}
