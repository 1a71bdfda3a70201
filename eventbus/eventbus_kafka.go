package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"sw360-console/logger"
)

// KafkaEventBus 는 confluent-kafka-go 를 사용한 EventBus 구현체이다.
type KafkaEventBus struct {
	Producer *kafka.Producer
	Brokers  string
}

// NewKafkaEventBus 는 Kafka Producer 를 초기화한다.
func NewKafkaEventBus(brokers string) (*KafkaEventBus, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
		"retries":           5,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka Producer 생성 실패: %w", err)
	}

	// 전달 보고서 등 Producer 이벤트 처리
	go func() {
		for e := range p.Events() {
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					logger.ErrorWithFields("kafka delivery failed", logger.Fields{
						"topic": ev.TopicPartition.String(),
						"error": ev.TopicPartition.Error.Error(),
					})
				}
			case kafka.Error:
				logger.ErrorWithFields("kafka error", logger.Fields{"error": ev.Error()})
			}
		}
	}()

	return &KafkaEventBus{
		Producer: p,
		Brokers:  brokers,
	}, nil
}

// Close 는 남은 메시지를 5초 동안 플러시한 뒤 Producer 를 닫는다.
func (k *KafkaEventBus) Close() {
	if k.Producer == nil {
		return
	}
	if remaining := k.Producer.Flush(5000); remaining > 0 {
		logger.WarnWithFields("kafka messages left after flush", logger.Fields{"remaining": remaining})
	}
	k.Producer.Close()
	logger.InfoWithFields("kafka producer closed", nil)
}

// Publish 는 지정된 토픽에 이벤트를 발행하고 전달 보고를 기다린다.
func (k *KafkaEventBus) Publish(ctx context.Context, topic Topic, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("이벤트 마샬링 실패: %w", err)
	}

	name := topic.Base()
	deliveryChan := make(chan kafka.Event, 1)
	err = k.Producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &name, Partition: kafka.PartitionAny},
		Value:          data,
		Key:            []byte(event.ID),
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("메시지 발행 실패: %w", err)
	}

	select {
	case ev := <-deliveryChan:
		m, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event %v", ev)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("메시지 전달 실패: %w", m.TopicPartition.Error)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Subscribe 는 topic 을 구독해 handler 를 실행한다. handler 가 실패해도 오프셋은
// 커밋한다. 세션 이벤트는 지나간 뒤 다시 처리할 가치가 없다.
func (k *KafkaEventBus) Subscribe(ctx context.Context, groupID string, topic Topic, handler EventHandler) error {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":             k.Brokers,
		"group.id":                      groupID,
		"auto.offset.reset":             "latest",
		"enable.auto.commit":            false,
		"partition.assignment.strategy": "range",
	})
	if err != nil {
		return fmt.Errorf("kafka Consumer 생성 실패: %w", err)
	}
	defer c.Close()

	if err := c.SubscribeTopics([]string{topic.Base()}, nil); err != nil {
		return fmt.Errorf("토픽 구독 실패 %s: %w", topic.Base(), err)
	}
	logger.InfoWithFields("kafka consumer started", logger.Fields{"group_id": groupID, "topic": topic.Base()})

	for {
		select {
		case <-ctx.Done():
			logger.InfoWithFields("kafka consumer stopping", logger.Fields{"group_id": groupID})
			return ctx.Err()
		default:
		}

		msg, err := c.ReadMessage(100 * time.Millisecond)
		if err != nil {
			var kerr kafka.Error
			if errors.As(err, &kerr) {
				if kerr.Code() == kafka.ErrTimedOut {
					continue
				}
				if kerr.IsFatal() {
					return fmt.Errorf("kafka 컨슈머 치명적 오류: %w", err)
				}
			}
			logger.ErrorWithFields("kafka read failed", logger.Fields{"error": err.Error()})
			time.Sleep(500 * time.Millisecond)
			continue
		}

		var evt Event
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.ErrorWithFields("kafka event payload invalid, skipping", logger.Fields{
				"topic": topic.Base(),
				"error": err.Error(),
			})
		} else if err := handler(ctx, evt); err != nil {
			logger.ErrorWithFields("kafka event handler failed", logger.Fields{
				"event_id": evt.ID,
				"error":    err.Error(),
			})
		}
		if _, err := c.CommitMessage(msg); err != nil {
			logger.ErrorWithFields("kafka offset commit failed", logger.Fields{"error": err.Error()})
		}
	}
}
