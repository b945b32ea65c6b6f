package memory

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wyfcoding/perptrading/internal/registry/domain"
)

type inMemoryRepository struct {
	entries map[common.Address]*domain.CurrencyEntry
	mu      sync.RWMutex
}

func NewRepository() domain.Repository {
	return &inMemoryRepository{entries: make(map[common.Address]*domain.CurrencyEntry)}
}

func (r *inMemoryRepository) Get(ctx context.Context, currency common.Address) (*domain.CurrencyEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[currency]
	if !ok {
		return nil, nil
	}
	cp := *entry
	return &cp, nil
}

func (r *inMemoryRepository) Save(ctx context.Context, entry *domain.CurrencyEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries[entry.Currency] = &cp
	return nil
}

func (r *inMemoryRepository) ListSupported(ctx context.Context) ([]*domain.CurrencyEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.CurrencyEntry
	for _, entry := range r.entries {
		if entry.Supported {
			cp := *entry
			out = append(out, &cp)
		}
	}
	return out, nil
}
