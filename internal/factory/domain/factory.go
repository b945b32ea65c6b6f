// Package domain 币种接入机构的领域错误与事件
package domain

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	ErrZeroCurrency = errors.New("currency is the zero address")
	ErrNotWired     = errors.New("router not set")
)

// TokenAddedEvent 四个阶段全部完成、币种进入可交易集合
type TokenAddedEvent struct {
	Currency      common.Address `json:"currency"`
	Pool          common.Address `json:"pool"`
	PoolRewards   common.Address `json:"pool_rewards"`
	ParifiRewards common.Address `json:"parifi_rewards"`
}

// SetRouterForPoolAndRewardsEvent 已接入币种的后备模块被重新指向
type SetRouterForPoolAndRewardsEvent struct {
	Currency common.Address `json:"currency"`
	Router   common.Address `json:"router"`
}

// UpdateParamsEvent 已接入币种的池参数被重新配置
type UpdateParamsEvent struct {
	Currency              common.Address  `json:"currency"`
	MinDepositTime        int64           `json:"min_deposit_time"`
	UtilizationMultiplier decimal.Decimal `json:"utilization_multiplier"`
	MaxParifi             decimal.Decimal `json:"max_parifi"`
	WithdrawFee           decimal.Decimal `json:"withdraw_fee"`
}

// EventPublisher 接入机构事件出口
type EventPublisher interface {
	PublishTokenAdded(ctx context.Context, event TokenAddedEvent) error
	PublishSetRouterForPoolAndRewards(ctx context.Context, event SetRouterForPoolAndRewardsEvent) error
	PublishUpdateParams(ctx context.Context, event UpdateParamsEvent) error
}
