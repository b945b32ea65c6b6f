// Package messaging 交易引擎事件发布实现
package messaging

import (
	"context"
	"time"

	"github.com/wyfcoding/perptrading/internal/trading/domain"
	"github.com/wyfcoding/perptrading/pkg/mq"
)

const topic = "perptrading.trading.events"

// envelope 统一事件信封，type 字段区分事件类别
type envelope struct {
	Type       string    `json:"type"`
	OccurredOn time.Time `json:"occurred_on"`
	Payload    any       `json:"payload"`
}

// KafkaEventPublisher 把引擎事件发布到 Kafka。
// 以仓位键为分区键，同一仓位的事件保持有序。
type KafkaEventPublisher struct {
	producer *mq.KafkaProducer
}

func NewKafkaEventPublisher(producer *mq.KafkaProducer) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer}
}

func (p *KafkaEventPublisher) publish(ctx context.Context, eventType, key string, occurredOn time.Time, payload any) error {
	return p.producer.SendMessage(ctx, topic, key, envelope{
		Type:       eventType,
		OccurredOn: occurredOn,
		Payload:    payload,
	})
}

func (p *KafkaEventPublisher) PublishNewStopOrder(ctx context.Context, event domain.NewStopOrderEvent) error {
	return p.publish(ctx, domain.NewStopOrderEventType, event.Key.Hex(), event.OccurredOn, event)
}

func (p *KafkaEventPublisher) PublishNewTakeOrder(ctx context.Context, event domain.NewTakeOrderEvent) error {
	return p.publish(ctx, domain.NewTakeOrderEventType, event.Key.Hex(), event.OccurredOn, event)
}

func (p *KafkaEventPublisher) PublishPositionStopUpdated(ctx context.Context, event domain.PositionStopUpdatedEvent) error {
	return p.publish(ctx, domain.PositionStopUpdatedEventType, event.Key.Hex(), event.OccurredOn, event)
}

func (p *KafkaEventPublisher) PublishPositionTakeUpdated(ctx context.Context, event domain.PositionTakeUpdatedEvent) error {
	return p.publish(ctx, domain.PositionTakeUpdatedEventType, event.Key.Hex(), event.OccurredOn, event)
}

func (p *KafkaEventPublisher) PublishClosePosition(ctx context.Context, event domain.ClosePositionEvent) error {
	return p.publish(ctx, domain.ClosePositionEventType, event.Key.Hex(), event.OccurredOn, event)
}
