// Package messaging 价格中继网关事件发布实现
package messaging

import (
	"context"
	"sync"

	"github.com/wyfcoding/perptrading/internal/oracle/domain"
	"github.com/wyfcoding/perptrading/pkg/mq"
)

const topic = "perptrading.oracle.events"

// KafkaEventPublisher 把结算失败事件发布到 Kafka，以批次号为分区键
type KafkaEventPublisher struct {
	producer *mq.KafkaProducer
}

func NewKafkaEventPublisher(producer *mq.KafkaProducer) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer}
}

func (p *KafkaEventPublisher) PublishSettlementError(ctx context.Context, event domain.SettlementErrorEvent) error {
	return p.producer.SendMessage(ctx, topic, event.BatchID, event)
}

// MemoryEventPublisher 内存事件日志，用于测试与单机部署
type MemoryEventPublisher struct {
	mu     sync.Mutex
	events []domain.SettlementErrorEvent
}

func NewMemoryEventPublisher() *MemoryEventPublisher {
	return &MemoryEventPublisher{}
}

func (p *MemoryEventPublisher) PublishSettlementError(ctx context.Context, event domain.SettlementErrorEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events 返回已发布事件的快照
func (p *MemoryEventPublisher) Events() []domain.SettlementErrorEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.SettlementErrorEvent, len(p.events))
	copy(out, p.events)
	return out
}
