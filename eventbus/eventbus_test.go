package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sw360-console/session"
)

func TestJSONEventRoundTrip(t *testing.T) {
	evt, err := NewJSONEvent("", "node-a", sessionPayload{SessionID: "s1", Reason: "signed_out"})
	require.NoError(t, err)
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, "node-a", evt.Source)

	p, err := DecodeJSON[sessionPayload](evt)
	require.NoError(t, err)
	assert.Equal(t, "s1", p.SessionID)

	_, err = DecodeJSON[sessionPayload](Event{Payload: []byte("{")})
	assert.Error(t, err)
}

func TestMemoryBusClosed(t *testing.T) {
	bus := NewMemoryBus()
	bus.Close()
	assert.ErrorIs(t, bus.Publish(context.Background(), TopicSessionEvents, Event{}), ErrClosed)
	assert.ErrorIs(t, bus.Subscribe(context.Background(), "g", TopicSessionEvents, nil), ErrClosed)
}

func TestSessionRelayMirrorsRemoteSignOuts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := NewMemoryBus()

	type node struct {
		events  *session.Events
		relay   *SessionRelay
		applied chan session.Event
	}
	start := func(name string) *node {
		n := &node{
			events:  session.NewEvents(),
			relay:   NewSessionRelay(bus, TopicSessionEvents, name),
			applied: make(chan session.Event, 4),
		}
		stop := n.relay.Forward(ctx, n.events)
		t.Cleanup(stop)
		go func() {
			_ = n.relay.Run(ctx, "console-"+name, func(ev session.Event) { n.applied <- ev })
		}()
		return n
	}
	a, b := start("a"), start("b")
	require.Eventually(t, func() bool { return bus.Subscribers(TopicSessionEvents) == 2 }, time.Second, 5*time.Millisecond)

	a.events.Publish(session.Event{SessionID: "s1", Reason: session.ReasonSignedOut})
	// Sign-outs without a session, such as a static guard's, stay local.
	a.events.Publish(session.Event{Reason: session.ReasonRejected})

	select {
	case ev := <-b.applied:
		assert.Equal(t, session.ID("s1"), ev.SessionID)
		assert.Equal(t, session.ReasonSignedOut, ev.Reason)
	case <-time.After(time.Second):
		t.Fatal("remote sign-out never arrived")
	}
	select {
	case ev := <-a.applied:
		t.Fatalf("instance applied its own event %v", ev)
	case ev := <-b.applied:
		t.Fatalf("unexpected second event %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
