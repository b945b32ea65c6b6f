// Package messaging 接入机构事件发布实现
package messaging

import (
	"context"
	"sync"

	"github.com/wyfcoding/perptrading/internal/factory/domain"
	"github.com/wyfcoding/perptrading/pkg/mq"
)

const (
	topic = "perptrading.factory.events"

	TokenAddedEventType                 = "TokenAdded"
	SetRouterForPoolAndRewardsEventType = "SetRouterForPoolAndRewards"
	UpdateParamsEventType               = "UpdateParams"
)

type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// KafkaEventPublisher 把接入事件发布到 Kafka，以币种地址为分区键
type KafkaEventPublisher struct {
	producer *mq.KafkaProducer
}

func NewKafkaEventPublisher(producer *mq.KafkaProducer) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer}
}

func (p *KafkaEventPublisher) PublishTokenAdded(ctx context.Context, event domain.TokenAddedEvent) error {
	return p.producer.SendMessage(ctx, topic, event.Currency.Hex(), envelope{Type: TokenAddedEventType, Payload: event})
}

func (p *KafkaEventPublisher) PublishSetRouterForPoolAndRewards(ctx context.Context, event domain.SetRouterForPoolAndRewardsEvent) error {
	return p.producer.SendMessage(ctx, topic, event.Currency.Hex(), envelope{Type: SetRouterForPoolAndRewardsEventType, Payload: event})
}

func (p *KafkaEventPublisher) PublishUpdateParams(ctx context.Context, event domain.UpdateParamsEvent) error {
	return p.producer.SendMessage(ctx, topic, event.Currency.Hex(), envelope{Type: UpdateParamsEventType, Payload: event})
}

// Record 内存事件日志中的一条记录
type Record struct {
	Type    string
	Payload any
}

// MemoryEventPublisher 内存事件日志，用于测试与单机部署
type MemoryEventPublisher struct {
	mu      sync.Mutex
	records []Record
}

func NewMemoryEventPublisher() *MemoryEventPublisher {
	return &MemoryEventPublisher{}
}

func (p *MemoryEventPublisher) append(eventType string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, Record{Type: eventType, Payload: payload})
	return nil
}

// Records 返回当前日志的快照
func (p *MemoryEventPublisher) Records() []Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Record, len(p.records))
	copy(out, p.records)
	return out
}

func (p *MemoryEventPublisher) PublishTokenAdded(ctx context.Context, event domain.TokenAddedEvent) error {
	return p.append(TokenAddedEventType, event)
}

func (p *MemoryEventPublisher) PublishSetRouterForPoolAndRewards(ctx context.Context, event domain.SetRouterForPoolAndRewardsEvent) error {
	return p.append(SetRouterForPoolAndRewardsEventType, event)
}

func (p *MemoryEventPublisher) PublishUpdateParams(ctx context.Context, event domain.UpdateParamsEvent) error {
	return p.append(UpdateParamsEventType, event)
}
