// Package mysql 交易引擎 MySQL 仓储实现
package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wyfcoding/perptrading/internal/trading/domain"
)

// ProductModel 产品持久化模型
type ProductModel struct {
	ID                   string          `gorm:"primaryKey;type:char(66)"`
	MaxLeverage          decimal.Decimal `gorm:"type:decimal(32,8)"`
	LiquidationThreshold decimal.Decimal `gorm:"type:decimal(32,8)"`
	Fee                  decimal.Decimal `gorm:"type:decimal(32,8)"`
	Interest             decimal.Decimal `gorm:"type:decimal(32,8)"`
}

func (ProductModel) TableName() string { return "trading_products" }

// PositionModel 仓位持久化模型
type PositionModel struct {
	Key       string          `gorm:"primaryKey;type:char(66)"`
	Account   string          `gorm:"type:char(42);index"`
	ProductID string          `gorm:"type:char(66)"`
	Currency  string          `gorm:"type:char(42)"`
	IsLong    bool
	Size      decimal.Decimal `gorm:"type:decimal(40,8)"`
	Margin    decimal.Decimal `gorm:"type:decimal(40,8)"`
	Price     decimal.Decimal `gorm:"type:decimal(32,8)"`
	Stop      decimal.Decimal `gorm:"type:decimal(32,8)"`
	Take      decimal.Decimal `gorm:"type:decimal(32,8)"`
	Timestamp time.Time
}

func (PositionModel) TableName() string { return "trading_positions" }

// OrderModel 待结算指令持久化模型
type OrderModel struct {
	Key       string          `gorm:"primaryKey;type:char(66)"`
	Account   string          `gorm:"type:char(42);index"`
	ProductID string          `gorm:"type:char(66)"`
	Currency  string          `gorm:"type:char(42)"`
	IsLong    bool
	IsClose   bool
	Margin    decimal.Decimal `gorm:"type:decimal(40,8)"`
	Size      decimal.Decimal `gorm:"type:decimal(40,8)"`
	Submitted time.Time
}

func (OrderModel) TableName() string { return "trading_orders" }

// TriggerOrderModel 触发指令持久化模型，主键为 (key, kind)
type TriggerOrderModel struct {
	Key       string          `gorm:"primaryKey;type:char(66)"`
	Kind      string          `gorm:"primaryKey;type:varchar(8)"`
	Account   string          `gorm:"type:char(42);index"`
	ProductID string          `gorm:"type:char(66)"`
	Currency  string          `gorm:"type:char(42)"`
	IsLong    bool
	Trigger   decimal.Decimal `gorm:"type:decimal(32,8)"`
	Submitted time.Time
}

func (TriggerOrderModel) TableName() string { return "trading_trigger_orders" }

type tradingRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &tradingRepository{db: db}
}

func (r *tradingRepository) GetProduct(ctx context.Context, id common.Hash) (*domain.Product, error) {
	var model ProductModel
	err := r.db.WithContext(ctx).Where("id = ?", id.Hex()).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.Product{
		MaxLeverage:          model.MaxLeverage,
		LiquidationThreshold: model.LiquidationThreshold,
		Fee:                  model.Fee,
		Interest:             model.Interest,
	}, nil
}

func (r *tradingRepository) SaveProduct(ctx context.Context, id common.Hash, product *domain.Product) error {
	return r.db.WithContext(ctx).Save(&ProductModel{
		ID:                   id.Hex(),
		MaxLeverage:          product.MaxLeverage,
		LiquidationThreshold: product.LiquidationThreshold,
		Fee:                  product.Fee,
		Interest:             product.Interest,
	}).Error
}

func (r *tradingRepository) GetPosition(ctx context.Context, key common.Hash) (*domain.Position, error) {
	var model PositionModel
	err := r.db.WithContext(ctx).Where("`key` = ?", key.Hex()).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toPosition(&model), nil
}

func (r *tradingRepository) SavePosition(ctx context.Context, position *domain.Position) error {
	return r.db.WithContext(ctx).Save(toPositionModel(position)).Error
}

func (r *tradingRepository) DeletePosition(ctx context.Context, key common.Hash) error {
	return r.db.WithContext(ctx).Where("`key` = ?", key.Hex()).Delete(&PositionModel{}).Error
}

func (r *tradingRepository) GetOrder(ctx context.Context, key common.Hash) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Where("`key` = ?", key.Hex()).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.Order{
		Key:       common.HexToHash(model.Key),
		Account:   common.HexToAddress(model.Account),
		ProductID: common.HexToHash(model.ProductID),
		Currency:  common.HexToAddress(model.Currency),
		IsLong:    model.IsLong,
		IsClose:   model.IsClose,
		Margin:    model.Margin,
		Size:      model.Size,
		Submitted: model.Submitted,
	}, nil
}

func (r *tradingRepository) SaveOrder(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Save(&OrderModel{
		Key:       order.Key.Hex(),
		Account:   order.Account.Hex(),
		ProductID: order.ProductID.Hex(),
		Currency:  order.Currency.Hex(),
		IsLong:    order.IsLong,
		IsClose:   order.IsClose,
		Margin:    order.Margin,
		Size:      order.Size,
		Submitted: order.Submitted,
	}).Error
}

func (r *tradingRepository) DeleteOrder(ctx context.Context, key common.Hash) error {
	return r.db.WithContext(ctx).Where("`key` = ?", key.Hex()).Delete(&OrderModel{}).Error
}

func (r *tradingRepository) GetTriggerOrder(ctx context.Context, key common.Hash, kind domain.TriggerKind) (*domain.TriggerOrder, error) {
	var model TriggerOrderModel
	err := r.db.WithContext(ctx).Where("`key` = ? AND kind = ?", key.Hex(), string(kind)).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.TriggerOrder{
		Key:       common.HexToHash(model.Key),
		Account:   common.HexToAddress(model.Account),
		ProductID: common.HexToHash(model.ProductID),
		Currency:  common.HexToAddress(model.Currency),
		IsLong:    model.IsLong,
		Kind:      domain.TriggerKind(model.Kind),
		Trigger:   model.Trigger,
		Submitted: model.Submitted,
	}, nil
}

func (r *tradingRepository) SaveTriggerOrder(ctx context.Context, order *domain.TriggerOrder) error {
	return r.db.WithContext(ctx).Save(&TriggerOrderModel{
		Key:       order.Key.Hex(),
		Kind:      string(order.Kind),
		Account:   order.Account.Hex(),
		ProductID: order.ProductID.Hex(),
		Currency:  order.Currency.Hex(),
		IsLong:    order.IsLong,
		Trigger:   order.Trigger,
		Submitted: order.Submitted,
	}).Error
}

func (r *tradingRepository) DeleteTriggerOrder(ctx context.Context, key common.Hash, kind domain.TriggerKind) error {
	return r.db.WithContext(ctx).
		Where("`key` = ? AND kind = ?", key.Hex(), string(kind)).
		Delete(&TriggerOrderModel{}).Error
}

func toPositionModel(p *domain.Position) *PositionModel {
	return &PositionModel{
		Key:       p.Key.Hex(),
		Account:   p.Account.Hex(),
		ProductID: p.ProductID.Hex(),
		Currency:  p.Currency.Hex(),
		IsLong:    p.IsLong,
		Size:      p.Size,
		Margin:    p.Margin,
		Price:     p.Price,
		Stop:      p.Stop,
		Take:      p.Take,
		Timestamp: p.Timestamp,
	}
}

func toPosition(m *PositionModel) *domain.Position {
	return &domain.Position{
		Key:       common.HexToHash(m.Key),
		Account:   common.HexToAddress(m.Account),
		ProductID: common.HexToHash(m.ProductID),
		Currency:  common.HexToAddress(m.Currency),
		IsLong:    m.IsLong,
		Size:      m.Size,
		Margin:    m.Margin,
		Price:     m.Price,
		Stop:      m.Stop,
		Take:      m.Take,
		Timestamp: m.Timestamp,
	}
}
