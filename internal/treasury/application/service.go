// Package application 托管（Treasury）应用服务：保证金与手续费的收付边界
package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/perptrading/internal/treasury/domain"
)

type Service struct {
	mu     sync.Mutex
	ledger *domain.Ledger
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	return &Service{ledger: domain.NewLedger(), logger: logger}
}

// PayIn 从账户收入资金（开仓时锁定保证金）
func (s *Service) PayIn(ctx context.Context, from common.Address, currency common.Address, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.Credit(currency, amount); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "treasury pay in", "from", from.Hex(), "currency", currency.Hex(), "amount", amount.String())
	return nil
}

// PayOut 向接收方支付资金（平仓时返还扣费后的保证金）。
// 余额不足的失败向上传播，调用方决定如何处理。
func (s *Service) PayOut(ctx context.Context, to common.Address, currency common.Address, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.Debit(currency, amount); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "treasury pay out", "to", to.Hex(), "currency", currency.Hex(), "amount", amount.String())
	return nil
}

// Balance 查询某币种的托管余额
func (s *Service) Balance(currency common.Address) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Balance(currency)
}
