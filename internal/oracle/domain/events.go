// Package domain 价格中继网关的领域事件
package domain

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// ErrLengthMismatch 五个平行切片长度不一致，整个批次在任何一项执行前失败
var ErrLengthMismatch = errors.New("batch array lengths differ")

// SettlementErrorEvent 批次内单项结算失败的记录事件。
// 失败项只发事件，不中断同批其余项。
type SettlementErrorEvent struct {
	BatchID   string         `json:"batch_id"`
	Account   common.Address `json:"account"`
	ProductID common.Hash    `json:"product_id"`
	Currency  common.Address `json:"currency"`
	IsLong    bool           `json:"is_long"`
	Reason    string         `json:"reason"`
}

// EventPublisher 网关事件出口
type EventPublisher interface {
	PublishSettlementError(ctx context.Context, event SettlementErrorEvent) error
}
