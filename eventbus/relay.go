package eventbus

import (
	"context"
	"time"

	"sw360-console/logger"
	"sw360-console/session"
)

const relayQueue = 64

// SessionRelay mirrors sign-out events between console instances sharing a
// session store. Local sign-outs are published; sign-outs published by other
// instances are handed to apply so their screens and notifications go too.
type SessionRelay struct {
	bus      EventBus
	topic    Topic
	instance string
}

type sessionPayload struct {
	SessionID string    `json:"session_id"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

func NewSessionRelay(bus EventBus, topic Topic, instance string) *SessionRelay {
	return &SessionRelay{bus: bus, topic: topic, instance: instance}
}

// Forward publishes every local sign-out until ctx ends or stop is called.
// Publishing happens on its own goroutine; sign-out never waits on the broker.
func (r *SessionRelay) Forward(ctx context.Context, events *session.Events) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	queue := make(chan session.Event, relayQueue)
	unsubscribe := events.Subscribe(func(ev session.Event) {
		if ev.SessionID == "" {
			return
		}
		select {
		case queue <- ev:
		default:
			logger.WarnWithFields("session relay queue full, event dropped", logger.Fields{
				"session_id": string(ev.SessionID),
			})
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-queue:
				r.publish(ctx, ev)
			}
		}
	}()

	return func() {
		unsubscribe()
		cancel()
		<-done
	}
}

func (r *SessionRelay) publish(ctx context.Context, ev session.Event) {
	evt, err := NewJSONEvent("", r.instance, sessionPayload{
		SessionID: string(ev.SessionID),
		Reason:    string(ev.Reason),
		At:        ev.At,
	})
	if err == nil {
		err = r.bus.Publish(ctx, r.topic, evt)
	}
	if err != nil && ctx.Err() == nil {
		logger.ErrorWithFields("session relay publish failed", logger.Fields{
			"session_id": string(ev.SessionID),
			"error":      err.Error(),
		})
	}
}

// Run consumes sign-outs of other instances until ctx ends. Every instance
// needs its own groupID so each one sees every event.
func (r *SessionRelay) Run(ctx context.Context, groupID string, apply func(session.Event)) error {
	return SubscribeJSON(ctx, r.bus, groupID, r.topic, func(_ context.Context, p sessionPayload, meta Event) error {
		if meta.Source == r.instance || p.SessionID == "" {
			return nil
		}
		logger.DebugWithFields("remote sign-out received", logger.Fields{
			"session_id": p.SessionID,
			"source":     meta.Source,
		})
		apply(session.Event{SessionID: session.ID(p.SessionID), Reason: session.Reason(p.Reason), At: p.At})
		return nil
	})
}
