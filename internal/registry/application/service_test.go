package application

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/perptrading/internal/registry/domain"
	"github.com/wyfcoding/perptrading/internal/registry/infrastructure/persistence/memory"
)

var (
	owner       = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	oracleAddr  = common.HexToAddress("0x0000000000000000000000000000000000000104")
	relayAddr   = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	factoryAddr = common.HexToAddress("0x0000000000000000000000000000000000000105")
	currency    = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	stranger    = common.HexToAddress("0x00000000000000000000000000000000000000ee")
)

func newService(t *testing.T) *Service {
	t.Helper()
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(owner, memory.NewRepository(), lg)
	require.NoError(t, svc.SetContracts(context.Background(), owner, domain.Contracts{
		Oracle:     oracleAddr,
		DarkOracle: relayAddr,
		Factory:    factoryAddr,
	}))
	return svc
}

func TestSetContractsRequiresOwner(t *testing.T) {
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(owner, memory.NewRepository(), lg)
	err := svc.SetContracts(context.Background(), stranger, domain.Contracts{})
	assert.ErrorIs(t, err, domain.ErrNotOwner)
}

func TestRequireRolePolicy(t *testing.T) {
	svc := newService(t)

	assert.NoError(t, svc.Require(owner, RoleOwner))
	assert.ErrorIs(t, svc.Require(stranger, RoleOwner), domain.ErrNotOwner)

	assert.NoError(t, svc.Require(oracleAddr, RoleOracle))
	assert.ErrorIs(t, svc.Require(stranger, RoleOracle), domain.ErrNotOracle)

	assert.NoError(t, svc.Require(relayAddr, RoleRelay))
	assert.ErrorIs(t, svc.Require(oracleAddr, RoleRelay), domain.ErrNotRelay)

	assert.NoError(t, svc.Require(owner, RoleOwnerOrFactory))
	assert.NoError(t, svc.Require(factoryAddr, RoleOwnerOrFactory))
	assert.ErrorIs(t, svc.Require(stranger, RoleOwnerOrFactory), domain.ErrNotOwnerOrFactory)

	assert.NoError(t, svc.Require(stranger, RolePublic))
}

// 映射写入一次后即被守卫，只有所有者可以显式覆盖
func TestMappingsAreSetOnce(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	pool := common.HexToAddress("0xf1")
	require.NoError(t, svc.SetPool(ctx, factoryAddr, currency, pool))

	err := svc.SetPool(ctx, factoryAddr, currency, common.HexToAddress("0xf2"))
	assert.ErrorIs(t, err, domain.ErrPoolAlreadyExists)

	// 所有者覆盖允许（重新指向新实现）
	require.NoError(t, svc.SetPool(ctx, owner, currency, common.HexToAddress("0xf2")))

	got, err := svc.Pool(ctx, currency)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf2"), got)
}

func TestOnboardingStateDerivation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	state, err := svc.OnboardingState(ctx, currency)
	require.NoError(t, err)
	assert.Equal(t, domain.Unregistered, state)

	require.NoError(t, svc.SetPool(ctx, factoryAddr, currency, common.HexToAddress("0xf1")))
	state, _ = svc.OnboardingState(ctx, currency)
	assert.Equal(t, domain.PoolSet, state)

	require.NoError(t, svc.SetParifiRewards(ctx, factoryAddr, currency, common.HexToAddress("0xf2")))
	state, _ = svc.OnboardingState(ctx, currency)
	assert.Equal(t, domain.AssetRewardSet, state)

	require.NoError(t, svc.SetPoolRewards(ctx, factoryAddr, currency, common.HexToAddress("0xf3")))
	state, _ = svc.OnboardingState(ctx, currency)
	assert.Equal(t, domain.PoolRewardSet, state)

	require.NoError(t, svc.SetCurrencySupported(ctx, factoryAddr, currency, true))
	state, _ = svc.OnboardingState(ctx, currency)
	assert.Equal(t, domain.Supported, state)

	supported, err := svc.IsSupportedCurrency(ctx, currency)
	require.NoError(t, err)
	assert.True(t, supported)
}
