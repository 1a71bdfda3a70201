package eventbus

// 전역 토픽 선언. config.yaml 의 events.topic 으로 바꿀 수 있다.
var (
	TopicSessionEvents = NewTopic("sw360-console.session.events")
)
