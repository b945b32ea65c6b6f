// Package redis 仓位读缓存：装饰底层仓储，读路径命中即返回，
// 写路径同步失效。缓存故障一律退回底层仓储，不影响正确性。
package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/wyfcoding/perptrading/internal/trading/domain"
)

const (
	positionKeyPrefix = "perptrading:position:"
	positionTTL       = 5 * time.Minute
)

// CachedRepository 带 Redis 仓位缓存的仓储装饰器
type CachedRepository struct {
	domain.Repository
	client *redis.Client
	logger *slog.Logger
}

func NewCachedRepository(inner domain.Repository, client *redis.Client, logger *slog.Logger) *CachedRepository {
	return &CachedRepository{Repository: inner, client: client, logger: logger}
}

func (r *CachedRepository) GetPosition(ctx context.Context, key common.Hash) (*domain.Position, error) {
	cacheKey := positionKeyPrefix + key.Hex()
	data, err := r.client.Get(ctx, cacheKey).Bytes()
	if err == nil {
		var position domain.Position
		if err := json.Unmarshal(data, &position); err == nil {
			return &position, nil
		}
		// 缓存里的坏数据直接丢弃
		r.client.Del(ctx, cacheKey)
	} else if err != redis.Nil {
		r.logger.WarnContext(ctx, "position cache read failed", "key", key.Hex(), "error", err)
	}

	position, err := r.Repository.GetPosition(ctx, key)
	if err != nil || position == nil {
		return position, err
	}
	if data, err := json.Marshal(position); err == nil {
		if err := r.client.Set(ctx, cacheKey, data, positionTTL).Err(); err != nil {
			r.logger.WarnContext(ctx, "position cache write failed", "key", key.Hex(), "error", err)
		}
	}
	return position, nil
}

func (r *CachedRepository) SavePosition(ctx context.Context, position *domain.Position) error {
	if err := r.Repository.SavePosition(ctx, position); err != nil {
		return err
	}
	r.invalidate(ctx, position.Key)
	return nil
}

func (r *CachedRepository) DeletePosition(ctx context.Context, key common.Hash) error {
	if err := r.Repository.DeletePosition(ctx, key); err != nil {
		return err
	}
	r.invalidate(ctx, key)
	return nil
}

func (r *CachedRepository) invalidate(ctx context.Context, key common.Hash) {
	if err := r.client.Del(ctx, positionKeyPrefix+key.Hex()).Err(); err != nil {
		r.logger.WarnContext(ctx, "position cache invalidate failed", "key", key.Hex(), "error", err)
	}
}
