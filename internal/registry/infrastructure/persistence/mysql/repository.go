// Package mysql 注册表 MySQL 仓储实现
package mysql

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	"github.com/wyfcoding/perptrading/internal/registry/domain"
)

// CurrencyEntryModel 币种条目持久化模型
type CurrencyEntryModel struct {
	Currency      string `gorm:"primaryKey;type:char(42)"`
	Pool          string `gorm:"type:char(42)"`
	PoolRewards   string `gorm:"type:char(42)"`
	ParifiRewards string `gorm:"type:char(42)"`
	Supported     bool
}

func (CurrencyEntryModel) TableName() string {
	return "registry_currencies"
}

type currencyRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &currencyRepository{db: db}
}

func (r *currencyRepository) Get(ctx context.Context, currency common.Address) (*domain.CurrencyEntry, error) {
	var model CurrencyEntryModel
	err := r.db.WithContext(ctx).Where("currency = ?", currency.Hex()).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toEntry(&model), nil
}

func (r *currencyRepository) Save(ctx context.Context, entry *domain.CurrencyEntry) error {
	return r.db.WithContext(ctx).Save(toModel(entry)).Error
}

func (r *currencyRepository) ListSupported(ctx context.Context) ([]*domain.CurrencyEntry, error) {
	var models []CurrencyEntryModel
	if err := r.db.WithContext(ctx).Where("supported = ?", true).Find(&models).Error; err != nil {
		return nil, err
	}
	entries := make([]*domain.CurrencyEntry, 0, len(models))
	for i := range models {
		entries = append(entries, toEntry(&models[i]))
	}
	return entries, nil
}

func toModel(e *domain.CurrencyEntry) *CurrencyEntryModel {
	return &CurrencyEntryModel{
		Currency:      e.Currency.Hex(),
		Pool:          e.Pool.Hex(),
		PoolRewards:   e.PoolRewards.Hex(),
		ParifiRewards: e.ParifiRewards.Hex(),
		Supported:     e.Supported,
	}
}

func toEntry(m *CurrencyEntryModel) *domain.CurrencyEntry {
	return &domain.CurrencyEntry{
		Currency:      common.HexToAddress(m.Currency),
		Pool:          common.HexToAddress(m.Pool),
		PoolRewards:   common.HexToAddress(m.PoolRewards),
		ParifiRewards: common.HexToAddress(m.ParifiRewards),
		Supported:     m.Supported,
	}
}
