package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(utilization int64) *Pool {
	return NewPool(
		common.HexToAddress("0xf1"),
		common.HexToAddress("0xcc"),
		common.HexToAddress("0x100"),
		18,
		Params{
			UtilizationMultiplier: decimal.NewFromInt(utilization),
			WithdrawFee:           decimal.NewFromInt(30), // 30 bps
		},
	)
}

func TestAvailableLiquidity(t *testing.T) {
	p := newTestPool(10000)
	require.NoError(t, p.Deposit(decimal.NewFromInt(1000)))

	assert.True(t, p.AvailableLiquidity().Equal(decimal.NewFromInt(1000)))

	require.NoError(t, p.Lock(decimal.NewFromInt(600)))
	assert.True(t, p.AvailableLiquidity().Equal(decimal.NewFromInt(400)))

	err := p.Lock(decimal.NewFromInt(500))
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	p.Release(decimal.NewFromInt(600))
	assert.True(t, p.AvailableLiquidity().Equal(decimal.NewFromInt(1000)))
}

func TestUtilizationMultiplierScalesCapacity(t *testing.T) {
	p := newTestPool(5000) // 0.5x
	require.NoError(t, p.Deposit(decimal.NewFromInt(1000)))
	assert.True(t, p.AvailableLiquidity().Equal(decimal.NewFromInt(500)))
}

func TestWithdrawAppliesFee(t *testing.T) {
	p := newTestPool(10000)
	require.NoError(t, p.Deposit(decimal.NewFromInt(1000)))

	got, err := p.Withdraw(decimal.NewFromInt(100))
	require.NoError(t, err)
	// 30 bps 提现费
	assert.True(t, got.Equal(decimal.NewFromFloat(99.7)), "got %s", got)
	assert.True(t, p.TotalDeposited.Equal(decimal.NewFromInt(900)))
}

func TestWithdrawRejectsOverdraw(t *testing.T) {
	p := newTestPool(10000)
	require.NoError(t, p.Deposit(decimal.NewFromInt(100)))
	_, err := p.Withdraw(decimal.NewFromInt(200))
	assert.Error(t, err)
}
