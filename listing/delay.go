package listing

import (
	"sync"
	"time"
)

// DefaultProcessingDelay is how long a refresh of an already populated list
// may run before the processing flag shows.
const DefaultProcessingDelay = 700 * time.Millisecond

// DelayedFlag is a boolean that turns on after a threshold, or at once when
// there is nothing on screen yet. Each Arm supersedes the previous one, and
// Disarm only clears the flag for the most recent Arm.
type DelayedFlag struct {
	mu       sync.Mutex
	delay    time.Duration
	on       bool
	token    uint64
	timer    *time.Timer
	onChange func(bool)
}

// NewDelayedFlag returns a flag with the given threshold. onChange, when set,
// is called outside the flag's lock every time the value flips.
func NewDelayedFlag(delay time.Duration, onChange func(bool)) *DelayedFlag {
	return &DelayedFlag{delay: delay, onChange: onChange}
}

func (f *DelayedFlag) Arm(hasData bool) uint64 {
	f.mu.Lock()
	f.stopLocked()
	f.token++
	token := f.token

	if !hasData || f.delay <= 0 {
		changed := !f.on
		f.on = true
		f.mu.Unlock()
		if changed {
			f.notify(true)
		}
		return token
	}

	f.timer = time.AfterFunc(f.delay, func() {
		f.mu.Lock()
		if f.token != token || f.on {
			f.mu.Unlock()
			return
		}
		f.on = true
		f.mu.Unlock()
		f.notify(true)
	})
	f.mu.Unlock()
	return token
}

// Disarm clears the flag if token is from the latest Arm.
func (f *DelayedFlag) Disarm(token uint64) {
	f.mu.Lock()
	if token != f.token {
		f.mu.Unlock()
		return
	}
	f.stopLocked()
	changed := f.on
	f.on = false
	f.mu.Unlock()
	if changed {
		f.notify(false)
	}
}

// Reset clears the flag regardless of which Arm set it.
func (f *DelayedFlag) Reset() {
	f.mu.Lock()
	f.token++
	f.stopLocked()
	changed := f.on
	f.on = false
	f.mu.Unlock()
	if changed {
		f.notify(false)
	}
}

func (f *DelayedFlag) On() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

func (f *DelayedFlag) stopLocked() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

func (f *DelayedFlag) notify(on bool) {
	if f.onChange != nil {
		f.onChange(on)
	}
}
