package domain

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds = errors.New("insufficient treasury funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// Ledger 托管账本：按币种记录锁入的保证金与手续费。
// 余额变动永远是显式的成功或失败，不允许静默吞掉不足。
type Ledger struct {
	balances map[common.Address]decimal.Decimal
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[common.Address]decimal.Decimal)}
}

func (l *Ledger) Balance(currency common.Address) decimal.Decimal {
	if b, ok := l.balances[currency]; ok {
		return b
	}
	return decimal.Zero
}

// Credit 收入一笔资金
func (l *Ledger) Credit(currency common.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	l.balances[currency] = l.Balance(currency).Add(amount)
	return nil
}

// Debit 支出一笔资金，余额不足是硬失败
func (l *Ledger) Debit(currency common.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	balance := l.Balance(currency)
	if balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	l.balances[currency] = balance.Sub(amount)
	return nil
}
