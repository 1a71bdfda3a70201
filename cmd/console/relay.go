package main

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"sw360-console/config"
	"sw360-console/eventbus"
	"sw360-console/logger"
	"sw360-console/session"
)

// startSessionRelay 는 다른 인스턴스의 로그아웃을 받아 apply 로 넘기고,
// 이 인스턴스의 로그아웃을 Kafka 로 발행한다.
func startSessionRelay(ctx context.Context, cfg config.EventsConfig, events *session.Events, apply func(session.Event)) (func(), error) {
	topic := eventbus.NewTopic(cfg.Topic)
	if err := eventbus.EnsureTopics(ctx, cfg.Brokers, cfg.Partitions, topic); err != nil {
		return nil, err
	}
	bus, err := eventbus.NewKafkaEventBus(cfg.Brokers)
	if err != nil {
		return nil, err
	}

	instance := uuid.NewString()
	relay := eventbus.NewSessionRelay(bus, topic, instance)
	stopForward := relay.Forward(ctx, events)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		// 인스턴스마다 그룹이 달라야 모든 인스턴스가 모든 이벤트를 받는다.
		err := relay.Run(runCtx, "sw360-console-"+instance, apply)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorWithFields("session relay stopped", logger.Fields{"error": err.Error()})
		}
	}()

	logger.InfoWithFields("session relay started", logger.Fields{
		"brokers":  cfg.Brokers,
		"topic":    topic.Base(),
		"instance": instance,
	})
	return func() {
		stopForward()
		cancel()
		<-done
		bus.Close()
	}, nil
}
