package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Repository 交易引擎仓储：产品、仓位与各类待结算指令。
// Get 系方法在记录不存在时返回 (nil, nil)。
type Repository interface {
	GetProduct(ctx context.Context, id common.Hash) (*Product, error)
	SaveProduct(ctx context.Context, id common.Hash, product *Product) error

	GetPosition(ctx context.Context, key common.Hash) (*Position, error)
	SavePosition(ctx context.Context, position *Position) error
	DeletePosition(ctx context.Context, key common.Hash) error

	GetOrder(ctx context.Context, key common.Hash) (*Order, error)
	SaveOrder(ctx context.Context, order *Order) error
	DeleteOrder(ctx context.Context, key common.Hash) error

	GetTriggerOrder(ctx context.Context, key common.Hash, kind TriggerKind) (*TriggerOrder, error)
	SaveTriggerOrder(ctx context.Context, order *TriggerOrder) error
	DeleteTriggerOrder(ctx context.Context, key common.Hash, kind TriggerKind) error
}
