package eventbus

import (
	"context"
	"sync"
)

// MemoryBus delivers events to subscribers of the same process. Every
// subscriber sees every event regardless of group.
type MemoryBus struct {
	mu     sync.Mutex
	subs   map[string][]chan Event
	closed bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: map[string][]chan Event{}}
}

func (b *MemoryBus) Publish(ctx context.Context, topic Topic, event Event) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	subs := append([]chan Event(nil), b.subs[topic.Base()]...)
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, _ string, topic Topic, handler EventHandler) error {
	ch := make(chan Event, 16)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.subs[topic.Base()] = append(b.subs[topic.Base()], ch)
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		subs := b.subs[topic.Base()]
		for i, c := range subs {
			if c == ch {
				b.subs[topic.Base()] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-ch:
			_ = handler(ctx, evt)
		}
	}
}

// Subscribers reports how many subscriptions topic currently has.
func (b *MemoryBus) Subscribers(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic.Base()])
}

func (b *MemoryBus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}
