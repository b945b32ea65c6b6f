package application

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/perptrading/internal/oracle/domain"
	oraclemsg "github.com/wyfcoding/perptrading/internal/oracle/infrastructure/messaging"
	poolapp "github.com/wyfcoding/perptrading/internal/pool/application"
	pooldomain "github.com/wyfcoding/perptrading/internal/pool/domain"
	registryapp "github.com/wyfcoding/perptrading/internal/registry/application"
	registrydomain "github.com/wyfcoding/perptrading/internal/registry/domain"
	registrymemory "github.com/wyfcoding/perptrading/internal/registry/infrastructure/persistence/memory"
	rewardsapp "github.com/wyfcoding/perptrading/internal/rewards/application"
	tradingapp "github.com/wyfcoding/perptrading/internal/trading/application"
	tradingdomain "github.com/wyfcoding/perptrading/internal/trading/domain"
	tradingmsg "github.com/wyfcoding/perptrading/internal/trading/infrastructure/messaging"
	tradingmemory "github.com/wyfcoding/perptrading/internal/trading/infrastructure/persistence/memory"
	treasuryapp "github.com/wyfcoding/perptrading/internal/treasury/application"
)

var (
	owner      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	oracleAddr = common.HexToAddress("0x0000000000000000000000000000000000000104")
	relayAddr  = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	currency   = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	productID  = tradingdomain.ProductID("ETH-USD")

	alice = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000ab")
	carol = common.HexToAddress("0x00000000000000000000000000000000000000ac")
)

type fixture struct {
	svc     *Service
	trading *tradingapp.TradingService
	events  *oraclemsg.MemoryEventPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry := registryapp.NewService(owner, registrymemory.NewRepository(), lg)
	require.NoError(t, registry.SetContracts(ctx, owner, registrydomain.Contracts{
		Oracle:     oracleAddr,
		DarkOracle: relayAddr,
	}))
	require.NoError(t, registry.SetCurrencySupported(ctx, owner, currency, true))

	pools := poolapp.NewService(lg)
	pools.Create(ctx, common.HexToAddress("0x100"), currency, 18, pooldomain.Params{
		UtilizationMultiplier: decimal.NewFromInt(10000),
	})
	require.NoError(t, pools.Deposit(ctx, currency, decimal.New(1, 12)))

	trading := tradingapp.NewTradingService(tradingmemory.NewRepository(), treasuryapp.NewService(lg),
		pools, rewardsapp.NewService(lg), tradingmsg.NewMemoryEventPublisher(), lg)
	trading.SetRouter(registry)
	require.NoError(t, trading.AddProduct(ctx, owner, productID, tradingdomain.Product{
		MaxLeverage:          decimal.NewFromInt(50),
		LiquidationThreshold: decimal.NewFromInt(8000),
	}))

	events := oraclemsg.NewMemoryEventPublisher()
	return &fixture{
		svc:     NewService(registry, trading, events, lg),
		trading: trading,
		events:  events,
	}
}

func (f *fixture) submit(t *testing.T, account common.Address) {
	t.Helper()
	require.NoError(t, f.trading.SubmitOrder(context.Background(), account, productID, currency, true,
		decimal.NewFromInt(1_000_000), decimal.NewFromInt(5_000_000)))
}

func threeItemBatch(price int64) Batch {
	p := decimal.NewFromInt(price)
	return Batch{
		Accounts:   []common.Address{alice, bob, carol},
		ProductIDs: []common.Hash{productID, productID, productID},
		Currencies: []common.Address{currency, currency, currency},
		IsLong:     []bool{true, true, true},
		Prices:     []decimal.Decimal{p, p, p},
	}
}

func TestSettleOrdersRequiresRelay(t *testing.T) {
	f := newFixture(t)
	err := f.svc.SettleOrders(context.Background(), alice, threeItemBatch(100))
	assert.ErrorIs(t, err, registrydomain.ErrNotRelay)
}

func TestSettleOrdersLengthMismatch(t *testing.T) {
	f := newFixture(t)
	batch := threeItemBatch(100)
	batch.Prices = batch.Prices[:2]
	err := f.svc.SettleOrders(context.Background(), relayAddr, batch)
	assert.ErrorIs(t, err, domain.ErrLengthMismatch)
	assert.Empty(t, f.events.Events())
}

// 批次中单项失败只发事件，前后的项照常结算
func TestSettleOrdersIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.submit(t, alice)
	// bob 没有待结算指令
	f.submit(t, carol)

	require.NoError(t, f.svc.SettleOrders(ctx, relayAddr, threeItemBatch(100)))

	failures := f.events.Events()
	require.Len(t, failures, 1)
	assert.Equal(t, bob, failures[0].Account)
	assert.Equal(t, tradingdomain.ErrNoPendingOrder.Error(), failures[0].Reason)
	assert.NotEmpty(t, failures[0].BatchID)

	alicePos, err := f.trading.GetPosition(ctx, alice, productID, currency, true)
	require.NoError(t, err)
	assert.True(t, alicePos.IsOpen())
	carolPos, err := f.trading.GetPosition(ctx, carol, productID, currency, true)
	require.NoError(t, err)
	assert.True(t, carolPos.IsOpen())
}

// 后面的项观察到前面项落盘的状态：同一账户先开后平
func TestBatchItemsFoldInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.submit(t, alice)
	require.NoError(t, f.svc.SettleOrders(ctx, relayAddr, Batch{
		Accounts:   []common.Address{alice},
		ProductIDs: []common.Hash{productID},
		Currencies: []common.Address{currency},
		IsLong:     []bool{true},
		Prices:     []decimal.Decimal{decimal.NewFromInt(100)},
	}))

	require.NoError(t, f.trading.SubmitCloseOrder(ctx, alice, productID, currency, true,
		decimal.NewFromInt(5_000_000)))
	require.NoError(t, f.svc.SettleOrders(ctx, relayAddr, Batch{
		Accounts:   []common.Address{alice},
		ProductIDs: []common.Hash{productID},
		Currencies: []common.Address{currency},
		IsLong:     []bool{true},
		Prices:     []decimal.Decimal{decimal.NewFromInt(110)},
	}))

	position, err := f.trading.GetPosition(ctx, alice, productID, currency, true)
	require.NoError(t, err)
	assert.False(t, position.IsOpen())
	assert.Empty(t, f.events.Events())
}

func TestSetParams(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.SetParams(ctx, alice, Params{RequestsPerFunding: 100})
	assert.ErrorIs(t, err, registrydomain.ErrNotRelay)

	require.NoError(t, f.svc.SetParams(ctx, relayAddr, Params{
		RequestsPerFunding: 100,
		CostPerRequest:     decimal.NewFromInt(1),
	}))
	assert.Equal(t, uint64(100), f.svc.Params().RequestsPerFunding)
}
