// Package application 注册表（Router）应用服务：全局地址装配与授权判定
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wyfcoding/perptrading/internal/registry/domain"
)

// Service 是系统的地址簿。对等模块通过它互相发现，
// 币种到 pool/rewards 的映射也只由它持有。
type Service struct {
	mu        sync.RWMutex
	owner     common.Address
	contracts domain.Contracts
	repo      domain.Repository
	logger    *slog.Logger
}

func NewService(owner common.Address, repo domain.Repository, logger *slog.Logger) *Service {
	return &Service{owner: owner, repo: repo, logger: logger}
}

// Require 集中式角色校验：每个入口调用一次
func (s *Service) Require(caller common.Address, role domain.Role) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch role {
	case RolePublic:
		return nil
	case RoleOwner:
		if caller != s.owner {
			return domain.ErrNotOwner
		}
	case RoleOracle:
		if caller != s.contracts.Oracle || caller == (common.Address{}) {
			return domain.ErrNotOracle
		}
	case RoleRelay:
		if caller != s.contracts.DarkOracle || caller == (common.Address{}) {
			return domain.ErrNotRelay
		}
	case RoleFactory:
		if caller != s.contracts.Factory || caller == (common.Address{}) {
			return domain.ErrNotOwnerOrFactory
		}
	case RoleOwnerOrFactory:
		if caller != s.owner && (caller != s.contracts.Factory || caller == (common.Address{})) {
			return domain.ErrNotOwnerOrFactory
		}
	}
	return nil
}

// 角色常量转发，调用方不必单独引入 domain 包
const (
	RolePublic         = domain.RolePublic
	RoleOwner          = domain.RoleOwner
	RoleOracle         = domain.RoleOracle
	RoleRelay          = domain.RoleRelay
	RoleFactory        = domain.RoleFactory
	RoleOwnerOrFactory = domain.RoleOwnerOrFactory
)

// SetContracts 装配对等模块地址。仅所有者可调用，可重复调用以重新指向。
func (s *Service) SetContracts(ctx context.Context, caller common.Address, c domain.Contracts) error {
	if err := s.Require(caller, RoleOwner); err != nil {
		return err
	}
	s.mu.Lock()
	s.contracts = c
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "registry contracts set",
		"treasury", c.Treasury.Hex(), "trading", c.Trading.Hex(),
		"oracle", c.Oracle.Hex(), "dark_oracle", c.DarkOracle.Hex(),
		"factory", c.Factory.Hex())
	return nil
}

func (s *Service) Owner() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

func (s *Service) Contracts() domain.Contracts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contracts
}

// 角色便捷封装，供各上下文以窄接口消费
func (s *Service) RequireOwner(caller common.Address) error   { return s.Require(caller, RoleOwner) }
func (s *Service) RequireOracle(caller common.Address) error  { return s.Require(caller, RoleOracle) }
func (s *Service) RequireRelay(caller common.Address) error   { return s.Require(caller, RoleRelay) }
func (s *Service) RequireFactory(caller common.Address) error { return s.Require(caller, RoleFactory) }

func (s *Service) Treasury() common.Address    { return s.Contracts().Treasury }
func (s *Service) Trading() common.Address     { return s.Contracts().Trading }
func (s *Service) DefaultPool() common.Address { return s.Contracts().Pool }
func (s *Service) Oracle() common.Address      { return s.Contracts().Oracle }
func (s *Service) DarkOracle() common.Address  { return s.Contracts().DarkOracle }
func (s *Service) Factory() common.Address     { return s.Contracts().Factory }

// SetPool 记录币种的流动性池地址。接入期间只允许写入一次；
// 已有映射只能由所有者显式覆盖（重新指向新实现）。
func (s *Service) SetPool(ctx context.Context, caller, currency, pool common.Address) error {
	return s.setMapping(ctx, caller, currency, "pool", pool, func(e *domain.CurrencyEntry) (*common.Address, error) {
		if e.Pool != (common.Address{}) && caller != s.owner {
			return nil, domain.ErrPoolAlreadyExists
		}
		return &e.Pool, nil
	})
}

// SetParifiRewards 记录币种的资产奖励合约地址
func (s *Service) SetParifiRewards(ctx context.Context, caller, currency, rewards common.Address) error {
	return s.setMapping(ctx, caller, currency, "parifi_rewards", rewards, func(e *domain.CurrencyEntry) (*common.Address, error) {
		if e.ParifiRewards != (common.Address{}) && caller != s.owner {
			return nil, domain.ErrParifiRewardsAlreadyExist
		}
		return &e.ParifiRewards, nil
	})
}

// SetPoolRewards 记录币种的池奖励合约地址
func (s *Service) SetPoolRewards(ctx context.Context, caller, currency, rewards common.Address) error {
	return s.setMapping(ctx, caller, currency, "pool_rewards", rewards, func(e *domain.CurrencyEntry) (*common.Address, error) {
		if e.PoolRewards != (common.Address{}) && caller != s.owner {
			return nil, domain.ErrPoolRewardsAlreadyExist
		}
		return &e.PoolRewards, nil
	})
}

func (s *Service) setMapping(ctx context.Context, caller, currency common.Address, field string, value common.Address, slot func(*domain.CurrencyEntry) (*common.Address, error)) error {
	if err := s.Require(caller, RoleOwnerOrFactory); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.entry(ctx, currency)
	if err != nil {
		return err
	}
	target, err := slot(entry)
	if err != nil {
		return err
	}
	*target = value
	if err := s.repo.Save(ctx, entry); err != nil {
		return fmt.Errorf("save currency entry: %w", err)
	}

	s.logger.InfoContext(ctx, "currency mapping set", "currency", currency.Hex(), "field", field, "value", value.Hex())
	return nil
}

// SetCurrencySupported 打开或关闭币种的可交易开关
func (s *Service) SetCurrencySupported(ctx context.Context, caller, currency common.Address, supported bool) error {
	if err := s.Require(caller, RoleOwnerOrFactory); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.entry(ctx, currency)
	if err != nil {
		return err
	}
	entry.Supported = supported
	if err := s.repo.Save(ctx, entry); err != nil {
		return fmt.Errorf("save currency entry: %w", err)
	}
	return nil
}

func (s *Service) entry(ctx context.Context, currency common.Address) (*domain.CurrencyEntry, error) {
	entry, err := s.repo.Get(ctx, currency)
	if err != nil {
		return nil, fmt.Errorf("load currency entry: %w", err)
	}
	if entry == nil {
		entry = &domain.CurrencyEntry{Currency: currency}
	}
	return entry, nil
}

// Entry 读取币种条目，不存在时返回零值条目
func (s *Service) Entry(ctx context.Context, currency common.Address) (*domain.CurrencyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entry(ctx, currency)
}

func (s *Service) Pool(ctx context.Context, currency common.Address) (common.Address, error) {
	entry, err := s.Entry(ctx, currency)
	if err != nil {
		return common.Address{}, err
	}
	return entry.Pool, nil
}

func (s *Service) PoolRewards(ctx context.Context, currency common.Address) (common.Address, error) {
	entry, err := s.Entry(ctx, currency)
	if err != nil {
		return common.Address{}, err
	}
	return entry.PoolRewards, nil
}

func (s *Service) ParifiRewards(ctx context.Context, currency common.Address) (common.Address, error) {
	entry, err := s.Entry(ctx, currency)
	if err != nil {
		return common.Address{}, err
	}
	return entry.ParifiRewards, nil
}

func (s *Service) IsSupportedCurrency(ctx context.Context, currency common.Address) (bool, error) {
	entry, err := s.Entry(ctx, currency)
	if err != nil {
		return false, err
	}
	return entry.Supported, nil
}

// OnboardingState 返回币种接入状态机的当前状态
func (s *Service) OnboardingState(ctx context.Context, currency common.Address) (domain.OnboardingState, error) {
	entry, err := s.Entry(ctx, currency)
	if err != nil {
		return domain.Unregistered, err
	}
	return entry.State(), nil
}
