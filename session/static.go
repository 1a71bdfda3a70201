package session

import (
	"context"
	"sync"
)

// Static is a Guard over a fixed credential. SignOut flips it to
// unauthenticated and publishes on Events when set.
type Static struct {
	mu       sync.Mutex
	cred     Credential
	status   Status
	signOuts []Reason
	Events   *Events
}

func NewStatic(cred Credential, status Status) *Static {
	return &Static{cred: cred, status: status}
}

func (s *Static) Resolve(_ context.Context) (Credential, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusAuthenticated {
		return Credential{}, s.status
	}
	return s.cred, s.status
}

func (s *Static) SignOut(_ context.Context, reason Reason) {
	s.mu.Lock()
	s.status = StatusUnauthenticated
	s.signOuts = append(s.signOuts, reason)
	events := s.Events
	s.mu.Unlock()

	if events != nil {
		events.Publish(Event{Reason: reason})
	}
}

// Set replaces the credential and status.
func (s *Static) Set(cred Credential, status Status) {
	s.mu.Lock()
	s.cred = cred
	s.status = status
	s.mu.Unlock()
}

// SignOuts returns the reasons passed to SignOut so far.
func (s *Static) SignOuts() []Reason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Reason(nil), s.signOuts...)
}
