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

	"github.com/wyfcoding/perptrading/internal/factory/domain"
	factorymsg "github.com/wyfcoding/perptrading/internal/factory/infrastructure/messaging"
	poolapp "github.com/wyfcoding/perptrading/internal/pool/application"
	pooldomain "github.com/wyfcoding/perptrading/internal/pool/domain"
	registryapp "github.com/wyfcoding/perptrading/internal/registry/application"
	registrydomain "github.com/wyfcoding/perptrading/internal/registry/domain"
	registrymemory "github.com/wyfcoding/perptrading/internal/registry/infrastructure/persistence/memory"
	rewardsapp "github.com/wyfcoding/perptrading/internal/rewards/application"
)

var (
	owner       = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	factoryAddr = common.HexToAddress("0x0000000000000000000000000000000000000105")
	routerAddr  = common.HexToAddress("0x0000000000000000000000000000000000000100")
	currency    = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	stranger    = common.HexToAddress("0x00000000000000000000000000000000000000ee")
)

type fixture struct {
	svc      *Service
	registry *registryapp.Service
	events   *factorymsg.MemoryEventPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry := registryapp.NewService(owner, registrymemory.NewRepository(), lg)
	require.NoError(t, registry.SetContracts(ctx, owner, registrydomain.Contracts{
		Factory: factoryAddr,
	}))

	events := factorymsg.NewMemoryEventPublisher()
	svc := NewService(registry, poolapp.NewService(lg), rewardsapp.NewService(lg), events, lg)
	svc.SetRouter(routerAddr)
	return &fixture{svc: svc, registry: registry, events: events}
}

func (f *fixture) addToken(currency common.Address) error {
	return f.svc.AddToken(context.Background(), owner, currency, 18, decimal.NewFromInt(100))
}

func TestAddTokenGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.AddToken(ctx, owner, common.Address{}, 18, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrZeroCurrency)

	err = f.svc.AddToken(ctx, stranger, currency, 18, decimal.Zero)
	assert.ErrorIs(t, err, registrydomain.ErrNotOwner)

	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	unwired := NewService(f.registry, poolapp.NewService(lg), rewardsapp.NewService(lg),
		factorymsg.NewMemoryEventPublisher(), lg)
	err = unwired.AddToken(ctx, owner, currency, 18, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrNotWired)
}

func TestAddTokenCompletesAllStages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.addToken(currency))

	entry, err := f.registry.Entry(ctx, currency)
	require.NoError(t, err)
	assert.NotEqual(t, common.Address{}, entry.Pool)
	assert.NotEqual(t, common.Address{}, entry.ParifiRewards)
	assert.NotEqual(t, common.Address{}, entry.PoolRewards)
	assert.True(t, entry.Supported)

	state, err := f.registry.OnboardingState(ctx, currency)
	require.NoError(t, err)
	assert.Equal(t, registrydomain.Supported, state)

	added := f.events.Records()
	require.Len(t, added, 1)
	event := added[0].Payload.(domain.TokenAddedEvent)
	assert.Equal(t, entry.Pool, event.Pool)
	assert.Equal(t, entry.PoolRewards, event.PoolRewards)
	assert.Equal(t, entry.ParifiRewards, event.ParifiRewards)
}

func TestAddTokenIsTerminallyGuarded(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.addToken(currency))
	err := f.addToken(currency)
	assert.ErrorIs(t, err, registrydomain.ErrCurrencyAlreadyAdded)
	assert.Len(t, f.events.Records(), 1)
}

// 半途失败后重试：已完成的阶段被跳过，从第一个未完成的阶段继续
func TestAddTokenResumesFromPartialState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 模拟只写入了池就中断的状态
	pool := common.HexToAddress("0x00000000000000000000000000000000000000f1")
	require.NoError(t, f.registry.SetPool(ctx, owner, currency, pool))

	require.NoError(t, f.addToken(currency))

	entry, err := f.registry.Entry(ctx, currency)
	require.NoError(t, err)
	assert.Equal(t, pool, entry.Pool, "completed stage must not re-execute")
	assert.NotEqual(t, common.Address{}, entry.ParifiRewards)
	assert.True(t, entry.Supported)
}

// 某个阶段被清空后重新接入：清空的阶段重做，其后已完成的阶段报守卫错误
func TestAddTokenAfterStageNullified(t *testing.T) {
	tests := []struct {
		name    string
		nullify func(ctx context.Context, f *fixture) error
		wantErr error
	}{
		{
			name: "pool nullified",
			nullify: func(ctx context.Context, f *fixture) error {
				return f.registry.SetPool(ctx, owner, currency, common.Address{})
			},
			wantErr: registrydomain.ErrParifiRewardsAlreadyExist,
		},
		{
			name: "parifi rewards nullified",
			nullify: func(ctx context.Context, f *fixture) error {
				return f.registry.SetParifiRewards(ctx, owner, currency, common.Address{})
			},
			wantErr: registrydomain.ErrPoolRewardsAlreadyExist,
		},
		{
			name: "pool rewards nullified",
			nullify: func(ctx context.Context, f *fixture) error {
				return f.registry.SetPoolRewards(ctx, owner, currency, common.Address{})
			},
			wantErr: registrydomain.ErrCurrencyAlreadyAdded,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			require.NoError(t, f.addToken(currency))
			require.NoError(t, tt.nullify(ctx, f))

			err := f.addToken(currency)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSetRouterForPoolAndRewards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.addToken(currency))

	newRouter := common.HexToAddress("0x0000000000000000000000000000000000000200")
	err := f.svc.SetRouterForPoolAndRewards(ctx, stranger, currency, newRouter)
	assert.ErrorIs(t, err, registrydomain.ErrNotOwner)

	require.NoError(t, f.svc.SetRouterForPoolAndRewards(ctx, owner, currency, newRouter))
	records := f.events.Records()
	require.Len(t, records, 2)
	assert.Equal(t, factorymsg.SetRouterForPoolAndRewardsEventType, records[1].Type)
}

func TestSetParamsPool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.addToken(currency))

	params := pooldomain.Params{
		MinDepositTime:        3600,
		UtilizationMultiplier: decimal.NewFromInt(5000),
		MaxParifi:             decimal.NewFromInt(1000),
		WithdrawFee:           decimal.NewFromInt(30),
	}
	err := f.svc.SetParamsPool(ctx, stranger, currency, params)
	assert.ErrorIs(t, err, registrydomain.ErrNotOwner)

	require.NoError(t, f.svc.SetParamsPool(ctx, owner, currency, params))
	records := f.events.Records()
	require.Len(t, records, 2)
	event := records[1].Payload.(domain.UpdateParamsEvent)
	assert.True(t, event.WithdrawFee.Equal(decimal.NewFromInt(30)))
}
