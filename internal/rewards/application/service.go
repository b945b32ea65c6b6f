// Package application 奖励分发边界。结算完成后以尽力而为的方式
// 通知对应币种的奖励追踪器，这里的失败不会影响结算本身。
package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// 手续费在池奖励与资产奖励追踪器之间按固定份额（bps）分配
const poolRewardShare = 7000

type tracker struct {
	address common.Address
	accrued decimal.Decimal
}

type Service struct {
	mu          sync.Mutex
	assetReward map[common.Address]*tracker
	poolReward  map[common.Address]*tracker
	logger      *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	return &Service{
		assetReward: make(map[common.Address]*tracker),
		poolReward:  make(map[common.Address]*tracker),
		logger:      logger,
	}
}

func deriveAddress(kind string, router, currency common.Address) common.Address {
	h := crypto.Keccak256([]byte(kind), router.Bytes(), currency.Bytes())
	return common.BytesToAddress(h[12:])
}

// CreateParifiRewards 为币种建立资产奖励追踪器，返回派生地址
func (s *Service) CreateParifiRewards(ctx context.Context, router, currency common.Address) common.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.assetReward[currency]; ok {
		return t.address
	}
	addr := deriveAddress("parifi-rewards", router, currency)
	s.assetReward[currency] = &tracker{address: addr, accrued: decimal.Zero}
	return addr
}

// CreatePoolRewards 为币种建立池奖励追踪器，返回派生地址
func (s *Service) CreatePoolRewards(ctx context.Context, router, currency common.Address) common.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.poolReward[currency]; ok {
		return t.address
	}
	addr := deriveAddress("pool-rewards", router, currency)
	s.poolReward[currency] = &tracker{address: addr, accrued: decimal.Zero}
	return addr
}

// NotifySettled 结算事件通知：把手续费按份额累计进池奖励与
// 资产奖励两个追踪器。未接入的币种只记一条日志，绝不向调用方返回错误。
func (s *Service) NotifySettled(ctx context.Context, currency, account common.Address, fee decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool, ok := s.poolReward[currency]
	if !ok {
		s.logger.DebugContext(ctx, "no reward tracker for currency", "currency", currency.Hex())
		return
	}
	poolPart := fee.Mul(decimal.NewFromInt(poolRewardShare)).Div(decimal.NewFromInt(10000))
	pool.accrued = pool.accrued.Add(poolPart)

	// 余数归资产奖励，避免拆分丢失精度
	if asset, ok := s.assetReward[currency]; ok {
		asset.accrued = asset.accrued.Add(fee.Sub(poolPart))
	}
}

// PoolAccrued 查询池奖励追踪器累计额
func (s *Service) PoolAccrued(currency common.Address) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.poolReward[currency]; ok {
		return t.accrued
	}
	return decimal.Zero
}

// AssetAccrued 查询资产奖励追踪器累计额
func (s *Service) AssetAccrued(currency common.Address) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.assetReward[currency]; ok {
		return t.accrued
	}
	return decimal.Zero
}
