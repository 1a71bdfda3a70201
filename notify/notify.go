// Package notify carries transient, user-visible messages from background
// work to whatever renders them.
package notify

import (
	"sync"
	"time"
)

type Level string

const (
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

type Message struct {
	// ID stays fixed while the message is pending so it can be dismissed
	// even after other messages expire or arrive.
	ID    string
	Level Level
	Text  string
	At    time.Time
}

type Notifier interface {
	Error(msg string)
	Success(msg string)
}

// Discard drops every message.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Error(string)   {}
func (discard) Success(string) {}

// Recorder keeps every message in order.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Error(msg string)   { r.add(LevelError, msg) }
func (r *Recorder) Success(msg string) { r.add(LevelSuccess, msg) }

func (r *Recorder) add(level Level, msg string) {
	r.mu.Lock()
	r.messages = append(r.messages, Message{Level: level, Text: msg, At: time.Now()})
	r.mu.Unlock()
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Errors returns the text of every error message.
func (r *Recorder) Errors() []string {
	var out []string
	for _, m := range r.Messages() {
		if m.Level == LevelError {
			out = append(out, m.Text)
		}
	}
	return out
}
