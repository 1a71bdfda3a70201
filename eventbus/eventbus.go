// Package eventbus carries console events between console instances.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Topic 은 이벤트 토픽 이름을 감싼다.
type Topic struct {
	base string
}

func NewTopic(base string) Topic {
	return Topic{base: base}
}

func (t Topic) Base() string {
	return t.base
}

// Event 는 Kafka 메시지의 페이로드로 사용되는 구조체이다.
// Source 는 발행한 인스턴스로, 자신이 보낸 이벤트를 걸러내는 데 쓴다.
type Event struct {
	ID      string          `json:"id"`
	Source  string          `json:"source"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// EventHandler 는 이벤트 처리 함수의 시그니처이다.
type EventHandler func(ctx context.Context, event Event) error

// EventBus 는 이벤트 발행 및 구독의 추상화이다.
type EventBus interface {
	Publish(ctx context.Context, topic Topic, event Event) error
	// Subscribe 는 ctx 가 끝날 때까지 topic 을 읽으며 handler 를 실행한다.
	Subscribe(ctx context.Context, groupID string, topic Topic, handler EventHandler) error
	Close()
}

var ErrClosed = errors.New("event bus closed")
