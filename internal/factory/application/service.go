// Package application 币种接入机构：驱动注册表走完四阶段接入状态机
package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/perptrading/internal/factory/domain"
	pooldomain "github.com/wyfcoding/perptrading/internal/pool/domain"
	regdomain "github.com/wyfcoding/perptrading/internal/registry/domain"
)

// Registry 接入机构对注册表的依赖面。
// 写操作传接入机构自身的注册地址，由注册表做 ownerOrFactory 判定。
type Registry interface {
	RequireOwner(caller common.Address) error
	Factory() common.Address
	Pool(ctx context.Context, currency common.Address) (common.Address, error)
	ParifiRewards(ctx context.Context, currency common.Address) (common.Address, error)
	PoolRewards(ctx context.Context, currency common.Address) (common.Address, error)
	IsSupportedCurrency(ctx context.Context, currency common.Address) (bool, error)
	SetPool(ctx context.Context, caller, currency, pool common.Address) error
	SetParifiRewards(ctx context.Context, caller, currency, rewards common.Address) error
	SetPoolRewards(ctx context.Context, caller, currency, rewards common.Address) error
	SetCurrencySupported(ctx context.Context, caller, currency common.Address, supported bool) error
}

// Pools 池的创建与管理边界
type Pools interface {
	Create(ctx context.Context, router, currency common.Address, decimals uint8, params pooldomain.Params) common.Address
	SetRouter(ctx context.Context, currency, router common.Address) error
	UpdateParams(ctx context.Context, currency common.Address, params pooldomain.Params) error
}

// Rewards 奖励跟踪器的创建边界
type Rewards interface {
	CreateParifiRewards(ctx context.Context, router, currency common.Address) common.Address
	CreatePoolRewards(ctx context.Context, router, currency common.Address) common.Address
}

// Service 接入机构。AddToken 的四个阶段各自独立落盘，
// 半途失败后重试会从第一个未完成的阶段继续。
type Service struct {
	mu       sync.Mutex
	registry Registry
	router   common.Address
	pools    Pools
	rewards  Rewards
	events   domain.EventPublisher
	logger   *slog.Logger
}

func NewService(registry Registry, pools Pools, rewards Rewards, events domain.EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		registry: registry,
		pools:    pools,
		rewards:  rewards,
		events:   events,
		logger:   logger,
	}
}

// SetRouter 装配注册表句柄地址。派生的池与奖励地址都以它为盐。
func (s *Service) SetRouter(router common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.router = router
}

// Router 当前装配的注册表句柄地址
func (s *Service) Router() common.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.router
}

// AddToken 接入新币种：池 → 资产奖励 → 池奖励 → 置为受支持。
// 阶段按序推进；本次调用尚未执行过任何阶段时，已完成的阶段被跳过；
// 一旦有阶段执行过，再遇到已完成的阶段即以该阶段的守卫错误失败。
// param 作为初始池参数中的提现费率（bps）。
func (s *Service) AddToken(ctx context.Context, caller, currency common.Address, decimals uint8, param decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if currency == (common.Address{}) {
		return domain.ErrZeroCurrency
	}
	if s.router == (common.Address{}) {
		return domain.ErrNotWired
	}
	if err := s.registry.RequireOwner(caller); err != nil {
		return err
	}
	self := s.registry.Factory()

	pool, err := s.registry.Pool(ctx, currency)
	if err != nil {
		return err
	}
	parifiRewards, err := s.registry.ParifiRewards(ctx, currency)
	if err != nil {
		return err
	}
	poolRewards, err := s.registry.PoolRewards(ctx, currency)
	if err != nil {
		return err
	}
	supported, err := s.registry.IsSupportedCurrency(ctx, currency)
	if err != nil {
		return err
	}

	executed := false

	if pool == (common.Address{}) {
		pool = s.pools.Create(ctx, s.router, currency, decimals, pooldomain.Params{
			UtilizationMultiplier: decimal.NewFromInt(10000),
			MaxParifi:             decimal.Zero,
			WithdrawFee:           param,
		})
		if err := s.registry.SetPool(ctx, self, currency, pool); err != nil {
			return err
		}
		executed = true
	}

	if parifiRewards == (common.Address{}) {
		parifiRewards = s.rewards.CreateParifiRewards(ctx, s.router, currency)
		if err := s.registry.SetParifiRewards(ctx, self, currency, parifiRewards); err != nil {
			return err
		}
		executed = true
	} else if executed {
		return regdomain.ErrParifiRewardsAlreadyExist
	}

	if poolRewards == (common.Address{}) {
		poolRewards = s.rewards.CreatePoolRewards(ctx, s.router, currency)
		if err := s.registry.SetPoolRewards(ctx, self, currency, poolRewards); err != nil {
			return err
		}
		executed = true
	} else if executed {
		return regdomain.ErrPoolRewardsAlreadyExist
	}

	if supported {
		return regdomain.ErrCurrencyAlreadyAdded
	}
	if err := s.registry.SetCurrencySupported(ctx, self, currency, true); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "token added", "currency", currency.Hex(),
		"pool", pool.Hex(), "pool_rewards", poolRewards.Hex(), "parifi_rewards", parifiRewards.Hex())
	return s.events.PublishTokenAdded(ctx, domain.TokenAddedEvent{
		Currency:      currency,
		Pool:          pool,
		PoolRewards:   poolRewards,
		ParifiRewards: parifiRewards,
	})
}

// SetRouterForPoolAndRewards 把已接入币种的后备模块重新指向新句柄，仅所有者可调用
func (s *Service) SetRouterForPoolAndRewards(ctx context.Context, caller, currency, newRouter common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.registry.RequireOwner(caller); err != nil {
		return err
	}
	if err := s.pools.SetRouter(ctx, currency, newRouter); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "pool and rewards re-pointed", "currency", currency.Hex(), "router", newRouter.Hex())
	return s.events.PublishSetRouterForPoolAndRewards(ctx, domain.SetRouterForPoolAndRewardsEvent{
		Currency: currency,
		Router:   newRouter,
	})
}

// SetParamsPool 重新配置已接入币种的池参数，仅所有者可调用
func (s *Service) SetParamsPool(ctx context.Context, caller, currency common.Address, params pooldomain.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.registry.RequireOwner(caller); err != nil {
		return err
	}
	if err := s.pools.UpdateParams(ctx, currency, params); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "pool params updated", "currency", currency.Hex())
	return s.events.PublishUpdateParams(ctx, domain.UpdateParamsEvent{
		Currency:              currency,
		MinDepositTime:        params.MinDepositTime,
		UtilizationMultiplier: params.UtilizationMultiplier,
		MaxParifi:             params.MaxParifi,
		WithdrawFee:           params.WithdrawFee,
	})
}
