package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewJSONEvent 는 payload 를 JSON 으로 인코딩해 Event 를 만든다.
// id 가 비어 있으면 새로 만든다.
func NewJSONEvent(id, source string, payload any) (Event, error) {
	if id == "" {
		id = uuid.NewString()
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("payload marshal 실패: %w", err)
	}
	return Event{
		ID:      id,
		Source:  source,
		At:      time.Now().UTC(),
		Payload: b,
	}, nil
}

// DecodeJSON 은 Event.Payload 를 제네릭 타입으로 언마샬한다.
func DecodeJSON[T any](evt Event) (T, error) {
	var out T
	if err := json.Unmarshal(evt.Payload, &out); err != nil {
		var zero T
		return zero, fmt.Errorf("payload unmarshal 실패: %w", err)
	}
	return out, nil
}

// SubscribeJSON 은 JSON 페이로드를 디코딩해 주는 Subscribe 헬퍼이다.
// handler 는 디코딩된 payload 와 원본 메타(Event)를 함께 받는다.
func SubscribeJSON[T any](ctx context.Context, bus EventBus, groupID string, topic Topic, handler func(ctx context.Context, payload T, meta Event) error) error {
	return bus.Subscribe(ctx, groupID, topic, func(ctx context.Context, evt Event) error {
		v, err := DecodeJSON[T](evt)
		if err != nil {
			return err
		}
		return handler(ctx, v, evt)
	})
}
