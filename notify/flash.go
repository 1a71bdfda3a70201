package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Flash keeps pending messages per session until they are dismissed, drained
// or older than the ttl.
type Flash struct {
	mu      sync.Mutex
	pending map[string][]Message
	limit   int
	ttl     time.Duration
	now     func() time.Time
}

// NewFlash keeps at most limit messages per key. A zero ttl keeps them until
// dismissed.
func NewFlash(limit int, ttl time.Duration) *Flash {
	if limit <= 0 {
		limit = 5
	}
	return &Flash{pending: make(map[string][]Message), limit: limit, ttl: ttl, now: time.Now}
}

// For returns a Notifier that queues onto key.
func (f *Flash) For(key string) Notifier {
	return flashNotifier{flash: f, key: key}
}

func (f *Flash) Push(key string, msg Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.At.IsZero() {
		msg.At = f.now()
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	queue := append(f.liveLocked(key), msg)
	if len(queue) > f.limit {
		queue = queue[len(queue)-f.limit:]
	}
	f.pending[key] = queue
}

// Peek returns the pending messages for key without consuming them.
func (f *Flash) Peek(key string) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.liveLocked(key)...)
}

// Drain returns and removes the pending messages for key.
func (f *Flash) Drain(key string) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.liveLocked(key)
	delete(f.pending, key)
	return out
}

// Dismiss removes the pending message with the given id. It reports false
// when key has no such message.
func (f *Flash) Dismiss(key, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	queue := f.liveLocked(key)
	index := -1
	for i, m := range queue {
		if m.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return false
	}
	queue = append(queue[:index:index], queue[index+1:]...)
	if len(queue) == 0 {
		delete(f.pending, key)
	} else {
		f.pending[key] = queue
	}
	return true
}

func (f *Flash) Forget(key string) {
	f.mu.Lock()
	delete(f.pending, key)
	f.mu.Unlock()
}

// Prune drops expired messages under every key and every queue whose key
// keep rejects. keep may be nil. It returns how many keys were removed.
func (f *Flash) Prune(keep func(key string) bool) int {
	f.mu.Lock()
	keys := make([]string, 0, len(f.pending))
	for key := range f.pending {
		keys = append(keys, key)
	}
	f.mu.Unlock()

	removed := 0
	for _, key := range keys {
		if keep != nil && !keep(key) {
			f.Forget(key)
			removed++
			continue
		}
		f.mu.Lock()
		if len(f.liveLocked(key)) == 0 {
			removed++
		}
		f.mu.Unlock()
	}
	return removed
}

func (f *Flash) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// liveLocked drops expired messages for key and returns the rest.
func (f *Flash) liveLocked(key string) []Message {
	queue := f.pending[key]
	if f.ttl <= 0 || len(queue) == 0 {
		return queue
	}
	cutoff := f.now().Add(-f.ttl)
	live := queue[:0]
	for _, m := range queue {
		if m.At.After(cutoff) {
			live = append(live, m)
		}
	}
	if len(live) == 0 {
		delete(f.pending, key)
		return nil
	}
	f.pending[key] = live
	return live
}

type flashNotifier struct {
	flash *Flash
	key   string
}

func (n flashNotifier) Error(msg string) {
	n.flash.Push(n.key, Message{Level: LevelError, Text: msg})
}

func (n flashNotifier) Success(msg string) {
	n.flash.Push(n.key, Message{Level: LevelSuccess, Text: msg})
}
