package domain

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrNotOwner          = errors.New("caller is not the owner")
	ErrNotOracle         = errors.New("caller is not the oracle")
	ErrNotRelay          = errors.New("caller is not the trusted relay signer")
	ErrNotOwnerOrFactory = errors.New("caller is not the owner or factory")

	ErrPoolAlreadyExists         = errors.New("pool already exists")
	ErrParifiRewardsAlreadyExist = errors.New("parifi rewards already exist")
	ErrPoolRewardsAlreadyExist   = errors.New("pool rewards already exist")
	ErrCurrencyAlreadyAdded      = errors.New("currency already added")
)

// Role 调用方角色，集中式的授权判定在一处完成
type Role int

const (
	RolePublic Role = iota
	RoleOwner
	RoleOracle
	RoleRelay
	RoleFactory
	RoleOwnerOrFactory
)

// OnboardingState 币种接入状态机。状态由注册表中已写入的地址推导，
// 始终从第一个未完成的阶段继续。
type OnboardingState int

const (
	Unregistered OnboardingState = iota
	PoolSet
	AssetRewardSet
	PoolRewardSet
	Supported
)

func (s OnboardingState) String() string {
	switch s {
	case PoolSet:
		return "POOL_SET"
	case AssetRewardSet:
		return "ASSET_REWARD_SET"
	case PoolRewardSet:
		return "POOL_REWARD_SET"
	case Supported:
		return "SUPPORTED"
	default:
		return "UNREGISTERED"
	}
}

// Contracts 对等模块地址装配
type Contracts struct {
	Treasury   common.Address `json:"treasury"`
	Trading    common.Address `json:"trading"`
	Pool       common.Address `json:"pool"`
	Oracle     common.Address `json:"oracle"`
	DarkOracle common.Address `json:"dark_oracle"`
	Factory    common.Address `json:"factory"`
}

// CurrencyEntry 每个币种的注册表条目
type CurrencyEntry struct {
	Currency      common.Address `json:"currency"`
	Pool          common.Address `json:"pool"`
	PoolRewards   common.Address `json:"pool_rewards"`
	ParifiRewards common.Address `json:"parifi_rewards"`
	Supported     bool           `json:"supported"`
}

// State 从条目推导接入状态：取第一个未完成的阶段
func (e *CurrencyEntry) State() OnboardingState {
	switch {
	case e == nil || e.Pool == (common.Address{}):
		return Unregistered
	case e.ParifiRewards == (common.Address{}):
		return PoolSet
	case e.PoolRewards == (common.Address{}):
		return AssetRewardSet
	case !e.Supported:
		return PoolRewardSet
	default:
		return Supported
	}
}

// Repository 币种条目仓储
type Repository interface {
	Get(ctx context.Context, currency common.Address) (*CurrencyEntry, error)
	Save(ctx context.Context, entry *CurrencyEntry) error
	ListSupported(ctx context.Context) ([]*CurrencyEntry, error)
}
