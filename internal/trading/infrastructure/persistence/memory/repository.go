// Package memory 交易引擎仓储的内存实现，用于测试与单机部署
package memory

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wyfcoding/perptrading/internal/trading/domain"
)

type triggerKey struct {
	key  common.Hash
	kind domain.TriggerKind
}

// Repository 内存仓储。所有读写返回副本，调用方的修改不会穿透。
type Repository struct {
	mu        sync.RWMutex
	products  map[common.Hash]domain.Product
	positions map[common.Hash]domain.Position
	orders    map[common.Hash]domain.Order
	triggers  map[triggerKey]domain.TriggerOrder
}

func NewRepository() *Repository {
	return &Repository{
		products:  make(map[common.Hash]domain.Product),
		positions: make(map[common.Hash]domain.Position),
		orders:    make(map[common.Hash]domain.Order),
		triggers:  make(map[triggerKey]domain.TriggerOrder),
	}
}

func (r *Repository) GetProduct(ctx context.Context, id common.Hash) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *Repository) SaveProduct(ctx context.Context, id common.Hash, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[id] = *product
	return nil
}

func (r *Repository) GetPosition(ctx context.Context, key common.Hash) (*domain.Position, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.positions[key]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *Repository) SavePosition(ctx context.Context, position *domain.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions[position.Key] = *position
	return nil
}

func (r *Repository) DeletePosition(ctx context.Context, key common.Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.positions, key)
	return nil
}

func (r *Repository) GetOrder(ctx context.Context, key common.Hash) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[key]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *Repository) SaveOrder(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.Key] = *order
	return nil
}

func (r *Repository) DeleteOrder(ctx context.Context, key common.Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orders, key)
	return nil
}

func (r *Repository) GetTriggerOrder(ctx context.Context, key common.Hash, kind domain.TriggerKind) (*domain.TriggerOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.triggers[triggerKey{key: key, kind: kind}]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *Repository) SaveTriggerOrder(ctx context.Context, order *domain.TriggerOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers[triggerKey{key: order.Key, kind: order.Kind}] = *order
	return nil
}

func (r *Repository) DeleteTriggerOrder(ctx context.Context, key common.Hash, kind domain.TriggerKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.triggers, triggerKey{key: key, kind: kind})
	return nil
}
