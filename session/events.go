package session

import (
	"sync"
	"time"
)

type Event struct {
	SessionID ID
	Reason    Reason
	At        time.Time
}

// Events fans sign-out notifications out to every subscriber. Subscribers are
// called synchronously from Publish and must not block.
type Events struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(Event)
}

func NewEvents() *Events {
	return &Events{subs: make(map[int]func(Event))}
}

func (e *Events) Subscribe(fn func(Event)) (unsubscribe func()) {
	e.mu.Lock()
	id := e.next
	e.next++
	e.subs[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}
}

func (e *Events) Publish(ev Event) {
	e.mu.RLock()
	subs := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}
