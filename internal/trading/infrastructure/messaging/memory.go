package messaging

import (
	"context"
	"sync"

	"github.com/wyfcoding/perptrading/internal/trading/domain"
)

// Record 内存事件日志中的一条记录
type Record struct {
	Type    string
	Payload any
}

// MemoryEventPublisher 追加式内存事件日志，用于测试与单机部署
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

// ByType 按事件类别过滤日志
func (p *MemoryEventPublisher) ByType(eventType string) []Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Record
	for _, r := range p.records {
		if r.Type == eventType {
			out = append(out, r)
		}
	}
	return out
}

func (p *MemoryEventPublisher) PublishNewStopOrder(ctx context.Context, event domain.NewStopOrderEvent) error {
	return p.append(domain.NewStopOrderEventType, event)
}

func (p *MemoryEventPublisher) PublishNewTakeOrder(ctx context.Context, event domain.NewTakeOrderEvent) error {
	return p.append(domain.NewTakeOrderEventType, event)
}

func (p *MemoryEventPublisher) PublishPositionStopUpdated(ctx context.Context, event domain.PositionStopUpdatedEvent) error {
	return p.append(domain.PositionStopUpdatedEventType, event)
}

func (p *MemoryEventPublisher) PublishPositionTakeUpdated(ctx context.Context, event domain.PositionTakeUpdatedEvent) error {
	return p.append(domain.PositionTakeUpdatedEventType, event)
}

func (p *MemoryEventPublisher) PublishClosePosition(ctx context.Context, event domain.ClosePositionEvent) error {
	return p.append(domain.ClosePositionEventType, event)
}
