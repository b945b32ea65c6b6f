// Package application 价格中继网关：成批转发可信签名者的结算指令
package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/perptrading/internal/oracle/domain"
)

// Registry 网关对注册表的依赖面
type Registry interface {
	RequireRelay(caller common.Address) error
	Oracle() common.Address
}

// Engine 网关对交易引擎的依赖面。caller 传网关自身的注册地址。
type Engine interface {
	SettleOrder(ctx context.Context, caller, account common.Address, productID common.Hash, currency common.Address, isLong bool, price decimal.Decimal) error
	SettleStopOrder(ctx context.Context, caller, account common.Address, productID common.Hash, currency common.Address, isLong bool, trigger decimal.Decimal) error
	SettleTakeOrder(ctx context.Context, caller, account common.Address, productID common.Hash, currency common.Address, isLong bool, trigger decimal.Decimal) error
	SettleLimit(ctx context.Context, caller, account common.Address, productID common.Hash, currency common.Address, isLong bool, price decimal.Decimal) error
}

// Params 请求计费参数，仅存储
type Params struct {
	RequestsPerFunding uint64          `json:"requests_per_funding"`
	CostPerRequest     decimal.Decimal `json:"cost_per_request"`
}

// Service 把可信签名者提交的平行数组批次逐项转发给引擎。
// 单项失败只发布 SettlementError 事件，批次内后续项继续处理。
type Service struct {
	mu       sync.Mutex
	registry Registry
	engine   Engine
	events   domain.EventPublisher
	logger   *slog.Logger
	params   Params
}

func NewService(registry Registry, engine Engine, events domain.EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		registry: registry,
		engine:   engine,
		events:   events,
		logger:   logger,
	}
}

// Batch 一条结算批次，五个平行切片长度必须一致
type Batch struct {
	Accounts   []common.Address
	ProductIDs []common.Hash
	Currencies []common.Address
	IsLong     []bool
	Prices     []decimal.Decimal
}

func (b *Batch) validate() error {
	n := len(b.Accounts)
	if len(b.ProductIDs) != n || len(b.Currencies) != n || len(b.IsLong) != n || len(b.Prices) != n {
		return domain.ErrLengthMismatch
	}
	return nil
}

// SettleOrders 结算开/平仓批次
func (s *Service) SettleOrders(ctx context.Context, caller common.Address, batch Batch) error {
	return s.settleBatch(ctx, caller, batch, "orders", s.engine.SettleOrder)
}

// SettleStopOrders 结算止损批次
func (s *Service) SettleStopOrders(ctx context.Context, caller common.Address, batch Batch) error {
	return s.settleBatch(ctx, caller, batch, "stop_orders", s.engine.SettleStopOrder)
}

// SettleTakeOrders 结算止盈批次
func (s *Service) SettleTakeOrders(ctx context.Context, caller common.Address, batch Batch) error {
	return s.settleBatch(ctx, caller, batch, "take_orders", s.engine.SettleTakeOrder)
}

// SettleLimits 对越过触发价的仓位执行强制全平批次
func (s *Service) SettleLimits(ctx context.Context, caller common.Address, batch Batch) error {
	return s.settleBatch(ctx, caller, batch, "limits", s.engine.SettleLimit)
}

// settleBatch 严格按序折叠：后面的项能看到前面项落盘后的状态
func (s *Service) settleBatch(ctx context.Context, caller common.Address, batch Batch, kind string,
	settle func(ctx context.Context, caller, account common.Address, productID common.Hash, currency common.Address, isLong bool, price decimal.Decimal) error,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.registry.RequireRelay(caller); err != nil {
		return err
	}
	if err := batch.validate(); err != nil {
		return err
	}

	batchID := uuid.NewString()
	self := s.registry.Oracle()
	failed := 0
	for i := range batch.Accounts {
		err := settle(ctx, self, batch.Accounts[i], batch.ProductIDs[i], batch.Currencies[i], batch.IsLong[i], batch.Prices[i])
		if err == nil {
			continue
		}
		failed++
		s.logger.WarnContext(ctx, "settlement item failed",
			"batch", batchID, "kind", kind, "index", i,
			"account", batch.Accounts[i].Hex(), "reason", err.Error())
		if pubErr := s.events.PublishSettlementError(ctx, domain.SettlementErrorEvent{
			BatchID:   batchID,
			Account:   batch.Accounts[i],
			ProductID: batch.ProductIDs[i],
			Currency:  batch.Currencies[i],
			IsLong:    batch.IsLong[i],
			Reason:    err.Error(),
		}); pubErr != nil {
			s.logger.ErrorContext(ctx, "publish settlement error", "batch", batchID, "error", pubErr)
		}
	}
	s.logger.InfoContext(ctx, "batch settled",
		"batch", batchID, "kind", kind, "total", len(batch.Accounts), "failed", failed)
	return nil
}

// SetParams 记录请求计费参数，仅可信签名者可调用
func (s *Service) SetParams(ctx context.Context, caller common.Address, params Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.registry.RequireRelay(caller); err != nil {
		return err
	}
	s.params = params
	s.logger.InfoContext(ctx, "oracle params updated",
		"requests_per_funding", params.RequestsPerFunding, "cost_per_request", params.CostPerRequest.String())
	return nil
}

// Params 当前计费参数
func (s *Service) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}
