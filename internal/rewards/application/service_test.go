package application

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func newService() *Service {
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNotifySettledSplitsFee(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	router := common.HexToAddress("0x100")
	currency := common.HexToAddress("0xcc")
	trader := common.HexToAddress("0xaa")

	svc.CreateParifiRewards(ctx, router, currency)
	svc.CreatePoolRewards(ctx, router, currency)

	svc.NotifySettled(ctx, currency, trader, decimal.NewFromInt(1000))

	// 份额拆分后两个追踪器合计等于全额手续费
	assert.True(t, svc.PoolAccrued(currency).Equal(decimal.NewFromInt(700)))
	assert.True(t, svc.AssetAccrued(currency).Equal(decimal.NewFromInt(300)))

	svc.NotifySettled(ctx, currency, trader, decimal.NewFromInt(1))
	total := svc.PoolAccrued(currency).Add(svc.AssetAccrued(currency))
	assert.True(t, total.Equal(decimal.NewFromInt(1001)))
}

func TestNotifySettledIgnoresUnknownCurrency(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	unknown := common.HexToAddress("0xdd")

	svc.NotifySettled(ctx, unknown, common.HexToAddress("0xaa"), decimal.NewFromInt(5))
	assert.True(t, svc.PoolAccrued(unknown).IsZero())
	assert.True(t, svc.AssetAccrued(unknown).IsZero())
}

func TestCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	router := common.HexToAddress("0x100")
	currency := common.HexToAddress("0xcc")

	first := svc.CreatePoolRewards(ctx, router, currency)
	assert.Equal(t, first, svc.CreatePoolRewards(ctx, router, currency))

	asset := svc.CreateParifiRewards(ctx, router, currency)
	assert.NotEqual(t, first, asset)
}
