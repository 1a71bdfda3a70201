package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// Status is what a Guard knows about the caller's session.
type Status int

const (
	StatusLoading Status = iota
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Reason says why a session ended.
type Reason string

const (
	ReasonSignedOut Reason = "signed_out"
	ReasonExpired   Reason = "session_expired"
	// ReasonRejected means the backend answered 401 to the session's credential.
	ReasonRejected Reason = "credential_rejected"
)

// Credential is the access token attached to every backend request.
type Credential struct {
	AccessToken string
	TokenType   string
	// ExpiresAt is zero when the token does not expire on its own.
	ExpiresAt time.Time
}

func (c Credential) IsZero() bool {
	return strings.TrimSpace(c.AccessToken) == ""
}

func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Header renders the Authorization header value. Token type defaults to Bearer.
func (c Credential) Header() string {
	if c.IsZero() {
		return ""
	}
	tokenType := strings.TrimSpace(c.TokenType)
	if tokenType == "" || strings.EqualFold(tokenType, "bearer") {
		tokenType = "Bearer"
	}
	return tokenType + " " + strings.TrimSpace(c.AccessToken)
}

// Guard supplies the current credential to anything that talks to the backend.
//
// Resolve never blocks on user interaction. While the status is loading no
// request should be sent; on unauthenticated the caller must not send one
// either and should call SignOut so the sign-in flow takes over.
type Guard interface {
	Resolve(ctx context.Context) (Credential, Status)
	SignOut(ctx context.Context, reason Reason)
}

// User group names as the backend reports them.
const (
	GroupUser         = "USER"
	GroupAdmin        = "ADMIN"
	GroupSW360Admin   = "SW360_ADMIN"
	GroupClearingAdm  = "CLEARING_ADMIN"
	GroupSecurityUser = "SECURITY_USER"
)

type User struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// IsRestricted reports whether the user may only look, not act.
func (u User) IsRestricted() bool {
	return strings.EqualFold(u.Group, GroupSecurityUser)
}

func (u User) IsAdmin() bool {
	return strings.EqualFold(u.Group, GroupAdmin) || strings.EqualFold(u.Group, GroupSW360Admin)
}

// ID identifies a stored session.
type ID string

type Entry struct {
	ID         ID
	User       User
	Credential Credential
	// Pending is set between sign-in and the end of the token exchange.
	Pending   bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (e Entry) IsValid(now time.Time) bool {
	return now.Before(e.ExpiresAt) && !e.Credential.Expired(now)
}

var ErrNotFound = errors.New("session not found")

type Store interface {
	Save(ctx context.Context, entry Entry) error
	Get(ctx context.Context, id ID) (Entry, error)
	Delete(ctx context.Context, id ID) error
}

type MemoryStore struct {
	values map[ID]Entry
	mutex  sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[ID]Entry)}
}

func (store *MemoryStore) Save(_ context.Context, entry Entry) error {
	store.mutex.Lock()
	store.values[entry.ID] = entry
	store.mutex.Unlock()
	return nil
}

func (store *MemoryStore) Get(_ context.Context, id ID) (Entry, error) {
	store.mutex.Lock()
	entry, ok := store.values[id]
	store.mutex.Unlock()
	if !ok {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

func (store *MemoryStore) Delete(_ context.Context, id ID) error {
	store.mutex.Lock()
	delete(store.values, id)
	store.mutex.Unlock()
	return nil
}
