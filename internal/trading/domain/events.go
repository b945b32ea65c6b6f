package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	NewStopOrderEventType        = "NewStopOrder"
	NewTakeOrderEventType        = "NewTakeOrder"
	PositionStopUpdatedEventType = "PositionStopUpdated"
	PositionTakeUpdatedEventType = "PositionTakeUpdated"
	ClosePositionEventType       = "ClosePosition"
)

// NewStopOrderEvent 止损挂单事件
type NewStopOrderEvent struct {
	Key        common.Hash     `json:"key"`
	Account    common.Address  `json:"account"`
	ProductID  common.Hash     `json:"product_id"`
	Currency   common.Address  `json:"currency"`
	IsLong     bool            `json:"is_long"`
	Trigger    decimal.Decimal `json:"trigger"`
	OccurredOn time.Time       `json:"occurred_on"`
}

// NewTakeOrderEvent 止盈挂单事件
type NewTakeOrderEvent struct {
	Key        common.Hash     `json:"key"`
	Account    common.Address  `json:"account"`
	ProductID  common.Hash     `json:"product_id"`
	Currency   common.Address  `json:"currency"`
	IsLong     bool            `json:"is_long"`
	Trigger    decimal.Decimal `json:"trigger"`
	OccurredOn time.Time       `json:"occurred_on"`
}

// PositionStopUpdatedEvent 仓位止损价写入（或幂等重申）事件
type PositionStopUpdatedEvent struct {
	Key        common.Hash     `json:"key"`
	Account    common.Address  `json:"account"`
	ProductID  common.Hash     `json:"product_id"`
	Currency   common.Address  `json:"currency"`
	IsLong     bool            `json:"is_long"`
	Stop       decimal.Decimal `json:"stop"`
	OccurredOn time.Time       `json:"occurred_on"`
}

// PositionTakeUpdatedEvent 仓位止盈价写入（或幂等重申）事件
type PositionTakeUpdatedEvent struct {
	Key        common.Hash     `json:"key"`
	Account    common.Address  `json:"account"`
	ProductID  common.Hash     `json:"product_id"`
	Currency   common.Address  `json:"currency"`
	IsLong     bool            `json:"is_long"`
	Take       decimal.Decimal `json:"take"`
	OccurredOn time.Time       `json:"occurred_on"`
}

// ClosePositionEvent 平仓事件，携带返还保证金与已实现手续费
type ClosePositionEvent struct {
	Key        common.Hash     `json:"key"`
	Account    common.Address  `json:"account"`
	ProductID  common.Hash     `json:"product_id"`
	Currency   common.Address  `json:"currency"`
	IsLong     bool            `json:"is_long"`
	Price      decimal.Decimal `json:"price"`
	Margin     decimal.Decimal `json:"margin"`
	Fee        decimal.Decimal `json:"fee"`
	OccurredOn time.Time       `json:"occurred_on"`
}

// EventPublisher 交易引擎事件发布接口
type EventPublisher interface {
	PublishNewStopOrder(ctx context.Context, event NewStopOrderEvent) error
	PublishNewTakeOrder(ctx context.Context, event NewTakeOrderEvent) error
	PublishPositionStopUpdated(ctx context.Context, event PositionStopUpdatedEvent) error
	PublishPositionTakeUpdated(ctx context.Context, event PositionTakeUpdatedEvent) error
	PublishClosePosition(ctx context.Context, event ClosePositionEvent) error
}
