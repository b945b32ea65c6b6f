// Package application 流动性池应用服务。按币种管理池实例，
// 对结算核心只暴露 存入/取出/锁定/释放/可用流动性 这一组边界。
package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/perptrading/internal/pool/domain"
)

type Service struct {
	mu     sync.RWMutex
	pools  map[common.Address]*domain.Pool
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	return &Service{pools: make(map[common.Address]*domain.Pool), logger: logger}
}

// DeriveAddress 为币种派生确定性的池地址
func DeriveAddress(kind string, router, currency common.Address) common.Address {
	h := crypto.Keccak256([]byte(kind), router.Bytes(), currency.Bytes())
	return common.BytesToAddress(h[12:])
}

// Create 为币种建立流动性池，返回派生地址。重复建立返回既有地址。
func (s *Service) Create(ctx context.Context, router, currency common.Address, decimals uint8, params domain.Params) common.Address {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pools[currency]; ok {
		return p.Address
	}
	addr := DeriveAddress("pool", router, currency)
	s.pools[currency] = domain.NewPool(addr, currency, router, decimals, params)
	s.logger.InfoContext(ctx, "pool created", "currency", currency.Hex(), "pool", addr.Hex())
	return addr
}

func (s *Service) get(currency common.Address) (*domain.Pool, error) {
	p, ok := s.pools[currency]
	if !ok {
		return nil, domain.ErrPoolNotFound
	}
	return p, nil
}

// Get 返回池的一个拷贝用于读取
func (s *Service) Get(ctx context.Context, currency common.Address) (*domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := s.get(currency)
	if err != nil {
		return nil, err
	}
	cp := *p
	return &cp, nil
}

func (s *Service) Deposit(ctx context.Context, currency common.Address, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.get(currency)
	if err != nil {
		return err
	}
	return p.Deposit(amount)
}

func (s *Service) Withdraw(ctx context.Context, currency common.Address, amount decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.get(currency)
	if err != nil {
		return decimal.Zero, err
	}
	return p.Withdraw(amount)
}

// Lock 开仓前锁定名义敞口；流动性不足的失败原样上抛
func (s *Service) Lock(ctx context.Context, currency common.Address, size decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.get(currency)
	if err != nil {
		return err
	}
	return p.Lock(size)
}

// Release 平仓后释放名义敞口
func (s *Service) Release(ctx context.Context, currency common.Address, size decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.get(currency)
	if err != nil {
		return err
	}
	p.Release(size)
	return nil
}

// SetRouter 重新指向注册表（Factory 管理操作）
func (s *Service) SetRouter(ctx context.Context, currency, router common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.get(currency)
	if err != nil {
		return err
	}
	p.Router = router
	return nil
}

// UpdateParams 重新配置池参数（Factory 管理操作）
func (s *Service) UpdateParams(ctx context.Context, currency common.Address, params domain.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.get(currency)
	if err != nil {
		return err
	}
	p.Params = params
	s.logger.InfoContext(ctx, "pool params updated", "currency", currency.Hex(),
		"utilization_multiplier", params.UtilizationMultiplier.String(), "withdraw_fee", params.WithdrawFee.String())
	return nil
}
