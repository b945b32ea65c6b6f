package domain

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	ErrPoolNotFound          = errors.New("pool not found")
	ErrInsufficientLiquidity = errors.New("insufficient pool liquidity")
	ErrInvalidAmount         = errors.New("amount must be positive")
)

var bps = decimal.NewFromInt(10000)

// Params 池参数，由接入系统通过 Factory 配置
type Params struct {
	MinDepositTime        int64           `json:"min_deposit_time"`
	UtilizationMultiplier decimal.Decimal `json:"utilization_multiplier"`
	MaxParifi             decimal.Decimal `json:"max_parifi"`
	WithdrawFee           decimal.Decimal `json:"withdraw_fee"`
}

// Pool 单币种流动性池。引擎开仓前查询可用流动性并锁定名义敞口，
// 平仓后释放。存取款只是简单的余额记账。
type Pool struct {
	Address        common.Address  `json:"address"`
	Currency       common.Address  `json:"currency"`
	Router         common.Address  `json:"router"`
	Decimals       uint8           `json:"decimals"`
	Params         Params          `json:"params"`
	TotalDeposited decimal.Decimal `json:"total_deposited"`
	OpenInterest   decimal.Decimal `json:"open_interest"`
}

func NewPool(address, currency, router common.Address, decimals uint8, params Params) *Pool {
	return &Pool{
		Address:        address,
		Currency:       currency,
		Router:         router,
		Decimals:       decimals,
		Params:         params,
		TotalDeposited: decimal.Zero,
		OpenInterest:   decimal.Zero,
	}
}

// AvailableLiquidity 可承接的名义敞口：
// totalDeposited * utilizationMultiplier / 10^4 - openInterest
func (p *Pool) AvailableLiquidity() decimal.Decimal {
	capacity := p.TotalDeposited.Mul(p.Params.UtilizationMultiplier).Div(bps)
	return capacity.Sub(p.OpenInterest)
}

// Utilization 当前占用比例（bps）
func (p *Pool) Utilization() decimal.Decimal {
	if p.TotalDeposited.IsZero() {
		return decimal.Zero
	}
	return p.OpenInterest.Mul(bps).Div(p.TotalDeposited)
}

func (p *Pool) Deposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	p.TotalDeposited = p.TotalDeposited.Add(amount)
	return nil
}

// Withdraw 取款并应用取款费（bps），返回净到账金额
func (p *Pool) Withdraw(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	if p.TotalDeposited.LessThan(amount) {
		return decimal.Zero, ErrInsufficientLiquidity
	}
	p.TotalDeposited = p.TotalDeposited.Sub(amount)
	fee := amount.Mul(p.Params.WithdrawFee).Div(bps)
	return amount.Sub(fee), nil
}

// Lock 锁定一笔名义敞口，超过可用流动性则失败
func (p *Pool) Lock(size decimal.Decimal) error {
	if !size.IsPositive() {
		return ErrInvalidAmount
	}
	if p.AvailableLiquidity().LessThan(size) {
		return ErrInsufficientLiquidity
	}
	p.OpenInterest = p.OpenInterest.Add(size)
	return nil
}

// Release 释放已锁定的名义敞口，下限为零
func (p *Pool) Release(size decimal.Decimal) {
	p.OpenInterest = p.OpenInterest.Sub(size)
	if p.OpenInterest.IsNegative() {
		p.OpenInterest = decimal.Zero
	}
}
