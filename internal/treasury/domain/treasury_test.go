package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerBalances(t *testing.T) {
	l := NewLedger()
	currency := common.HexToAddress("0xcc")

	assert.True(t, l.Balance(currency).IsZero())

	require.NoError(t, l.Credit(currency, decimal.NewFromInt(100)))
	require.NoError(t, l.Credit(currency, decimal.NewFromInt(50)))
	assert.True(t, l.Balance(currency).Equal(decimal.NewFromInt(150)))

	require.NoError(t, l.Debit(currency, decimal.NewFromInt(120)))
	assert.True(t, l.Balance(currency).Equal(decimal.NewFromInt(30)))
}

func TestLedgerRejectsOverdraw(t *testing.T) {
	l := NewLedger()
	currency := common.HexToAddress("0xcc")

	require.NoError(t, l.Credit(currency, decimal.NewFromInt(10)))
	err := l.Debit(currency, decimal.NewFromInt(11))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	// 失败不改变余额
	assert.True(t, l.Balance(currency).Equal(decimal.NewFromInt(10)))
}

func TestLedgerRejectsNonPositiveAmounts(t *testing.T) {
	l := NewLedger()
	currency := common.HexToAddress("0xcc")

	assert.ErrorIs(t, l.Credit(currency, decimal.Zero), ErrInvalidAmount)
	assert.ErrorIs(t, l.Debit(currency, decimal.NewFromInt(-1)), ErrInvalidAmount)
}
