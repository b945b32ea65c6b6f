package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testAccount  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testCurrency = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	testProduct  = ProductID("ETH-USD")
)

func TestKeyIsDirectionSensitive(t *testing.T) {
	long := Key(testAccount, testProduct, testCurrency, true)
	short := Key(testAccount, testProduct, testCurrency, false)
	assert.NotEqual(t, long, short)

	// 同参数必须得到同键
	assert.Equal(t, long, Key(testAccount, testProduct, testCurrency, true))

	other := Key(common.HexToAddress("0xbb"), testProduct, testCurrency, true)
	assert.NotEqual(t, long, other)
}

func TestProductIDPadding(t *testing.T) {
	id := ProductID("ETH-USD")
	assert.Equal(t, byte('E'), id[0])
	assert.Equal(t, byte(0), id[31])
	assert.NotEqual(t, ProductID("BTC-USD"), id)
}

func TestValidateStop(t *testing.T) {
	ref := decimal.NewFromInt(100)
	threshold := decimal.NewFromInt(8000) // 80%

	tests := []struct {
		name    string
		isLong  bool
		trigger int64
		wantErr error
	}{
		{"long at reference", true, 100, nil},
		{"long at liquidation bound", true, 80, nil},
		{"long inside band", true, 90, nil},
		{"long beyond liquidation", true, 79, ErrStopTooSmall},
		{"long on profit side", true, 101, ErrStopTooBig},
		{"short at reference", false, 100, nil},
		{"short at liquidation bound", false, 120, nil},
		{"short inside band", false, 110, nil},
		{"short beyond liquidation", false, 121, ErrStopTooBig},
		{"short on profit side", false, 99, ErrStopTooSmall},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStop(tt.isLong, decimal.NewFromInt(tt.trigger), ref, threshold)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateTake(t *testing.T) {
	ref := decimal.NewFromInt(100)

	assert.NoError(t, ValidateTake(true, decimal.NewFromInt(101), ref))
	assert.ErrorIs(t, ValidateTake(true, decimal.NewFromInt(100), ref), ErrTakeTooSmall)
	assert.ErrorIs(t, ValidateTake(true, decimal.NewFromInt(99), ref), ErrTakeTooSmall)

	assert.NoError(t, ValidateTake(false, decimal.NewFromInt(99), ref))
	assert.ErrorIs(t, ValidateTake(false, decimal.NewFromInt(100), ref), ErrTakeTooSmall)
	assert.ErrorIs(t, ValidateTake(false, decimal.NewFromInt(101), ref), ErrTakeTooSmall)
}

func TestPositionIncreaseAveragesEntryPrice(t *testing.T) {
	p := NewPosition(testAccount, testProduct, testCurrency, true,
		decimal.NewFromInt(100), decimal.NewFromInt(10), decimal.NewFromInt(100))

	p.Increase(decimal.NewFromInt(100), decimal.NewFromInt(10), decimal.NewFromInt(200))

	assert.True(t, p.Size.Equal(decimal.NewFromInt(200)), "size %s", p.Size)
	assert.True(t, p.Margin.Equal(decimal.NewFromInt(20)), "margin %s", p.Margin)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(150)), "price %s", p.Price)
}

func TestPositionReduce(t *testing.T) {
	p := NewPosition(testAccount, testProduct, testCurrency, true,
		decimal.NewFromInt(100), decimal.NewFromInt(10), decimal.NewFromInt(100))

	released := p.Reduce(decimal.NewFromInt(40))
	assert.True(t, released.Equal(decimal.NewFromInt(4)), "released %s", released)
	assert.True(t, p.Size.Equal(decimal.NewFromInt(60)))
	assert.True(t, p.Margin.Equal(decimal.NewFromInt(6)))
	require.True(t, p.IsOpen())

	released = p.Reduce(decimal.NewFromInt(60))
	assert.True(t, released.Equal(decimal.NewFromInt(6)), "released %s", released)
	assert.False(t, p.IsOpen())
	assert.True(t, p.Margin.IsZero())
}

func TestPositionCrossed(t *testing.T) {
	long := NewPosition(testAccount, testProduct, testCurrency, true,
		decimal.NewFromInt(100), decimal.NewFromInt(10), decimal.NewFromInt(100))
	long.Stop = decimal.NewFromInt(90)

	assert.False(t, long.Crossed(decimal.NewFromInt(95)))
	assert.True(t, long.Crossed(decimal.NewFromInt(90)))
	assert.True(t, long.Crossed(decimal.NewFromInt(80)))

	long.Stop = decimal.Zero
	long.Take = decimal.NewFromInt(130)
	assert.False(t, long.Crossed(decimal.NewFromInt(129)))
	assert.True(t, long.Crossed(decimal.NewFromInt(130)))

	short := NewPosition(testAccount, testProduct, testCurrency, false,
		decimal.NewFromInt(100), decimal.NewFromInt(10), decimal.NewFromInt(100))
	short.Stop = decimal.NewFromInt(110)
	assert.False(t, short.Crossed(decimal.NewFromInt(105)))
	assert.True(t, short.Crossed(decimal.NewFromInt(110)))

	short.Stop = decimal.Zero
	short.Take = decimal.NewFromInt(70)
	assert.True(t, short.Crossed(decimal.NewFromInt(70)))
	assert.False(t, short.Crossed(decimal.NewFromInt(71)))
}

func TestFeeOn(t *testing.T) {
	p := Product{Fee: decimal.NewFromInt(10)} // 10 bps
	fee := p.FeeOn(decimal.NewFromInt(100000))
	assert.True(t, fee.Equal(decimal.NewFromInt(100)), "fee %s", fee)
}
