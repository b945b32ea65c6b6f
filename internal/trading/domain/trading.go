package domain

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

var (
	ErrNotWired            = errors.New("router not set")
	ErrUnsupportedCurrency = errors.New("currency not supported")
	ErrProductNotFound     = errors.New("product does not exist")
	ErrProductExists       = errors.New("product already exists")
	ErrNoPosition          = errors.New("position does not exist")
	ErrNoPendingOrder      = errors.New("no pending order")
	ErrOrderExists         = errors.New("order already exists")
	ErrMarginRequired      = errors.New("margin must be positive")
	ErrSizeRequired        = errors.New("size must be positive")
	ErrMaxLeverage         = errors.New("leverage too high")

	ErrStopTooSmall     = errors.New("stop loss too small")
	ErrStopTooBig       = errors.New("stop loss too big")
	ErrTakeTooSmall     = errors.New("take profit too small")
	ErrStopAlreadySet   = errors.New("Stop loss already set")
	ErrTakeAlreadySet   = errors.New("Take profit already set")
	ErrNoTriggerCrossed = errors.New("!limit")
)

var bps = decimal.NewFromInt(10000)

// Key 复合仓位键：keccak256(account || product || currency || isLong)
func Key(account common.Address, product common.Hash, currency common.Address, isLong bool) common.Hash {
	direction := byte(0)
	if isLong {
		direction = 1
	}
	return crypto.Keccak256Hash(account.Bytes(), product.Bytes(), currency.Bytes(), []byte{direction})
}

// ProductID 把短字符串标识右补零为定长的 32 字节标识
func ProductID(s string) common.Hash {
	var h common.Hash
	copy(h[:], s)
	return h
}

// Product 产品静态参数。MaxLeverage 为 size/margin 的上限，
// LiquidationThreshold、Fee、Interest 以 bps 计。
type Product struct {
	MaxLeverage          decimal.Decimal `json:"max_leverage"`
	LiquidationThreshold decimal.Decimal `json:"liquidation_threshold"`
	Fee                  decimal.Decimal `json:"fee"`
	Interest             decimal.Decimal `json:"interest"`
}

// FeeOn 按名义规模计算手续费
func (p *Product) FeeOn(size decimal.Decimal) decimal.Decimal {
	return size.Mul(p.Fee).Div(bps)
}

// Position 持仓。size 为零即视为已删除；stop 与 take 互斥，
// 先设置的一方被清除（平仓或触发）之前不允许设置另一方。
type Position struct {
	Key       common.Hash     `json:"key"`
	Account   common.Address  `json:"account"`
	ProductID common.Hash     `json:"product_id"`
	Currency  common.Address  `json:"currency"`
	IsLong    bool            `json:"is_long"`
	Size      decimal.Decimal `json:"size"`
	Margin    decimal.Decimal `json:"margin"`
	Price     decimal.Decimal `json:"price"`
	Stop      decimal.Decimal `json:"stop"`
	Take      decimal.Decimal `json:"take"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewPosition(account common.Address, product common.Hash, currency common.Address, isLong bool, size, margin, price decimal.Decimal) *Position {
	return &Position{
		Key:       Key(account, product, currency, isLong),
		Account:   account,
		ProductID: product,
		Currency:  currency,
		IsLong:    isLong,
		Size:      size,
		Margin:    margin,
		Price:     price,
		Stop:      decimal.Zero,
		Take:      decimal.Zero,
		Timestamp: time.Now(),
	}
}

func (p *Position) IsOpen() bool { return p != nil && p.Size.IsPositive() }

func (p *Position) HasStop() bool { return !p.Stop.IsZero() }

func (p *Position) HasTake() bool { return !p.Take.IsZero() }

// Increase 加仓：入场价按名义规模加权平均
func (p *Position) Increase(size, margin, price decimal.Decimal) {
	total := p.Size.Add(size)
	p.Price = p.Price.Mul(p.Size).Add(price.Mul(size)).Div(total)
	p.Size = total
	p.Margin = p.Margin.Add(margin)
	p.Timestamp = time.Now()
}

// Reduce 减仓，返回按比例释放的保证金。规模归零时保证金同时归零。
func (p *Position) Reduce(size decimal.Decimal) decimal.Decimal {
	if size.GreaterThanOrEqual(p.Size) {
		margin := p.Margin
		p.Size = decimal.Zero
		p.Margin = decimal.Zero
		return margin
	}
	share := p.Margin.Mul(size).Div(p.Size)
	p.Size = p.Size.Sub(size)
	p.Margin = p.Margin.Sub(share)
	return share
}

// ValidateStop 止损触发价边界校验。t 为清算阈值（bps），R 为参照价：
// 多头须满足 R*t/10^4 <= stop <= R，空头为镜像区间 R <= stop <= R*(2 - t/10^4)。
// 越过清算边界为 too big/too small，落在盈利一侧同样被拒绝。
func ValidateStop(isLong bool, trigger, reference, liquidationThreshold decimal.Decimal) error {
	t := liquidationThreshold.Div(bps)
	if isLong {
		if trigger.LessThan(reference.Mul(t)) {
			return ErrStopTooSmall
		}
		if trigger.GreaterThan(reference) {
			return ErrStopTooBig
		}
		return nil
	}
	if trigger.GreaterThan(reference.Mul(decimal.NewFromInt(2).Sub(t))) {
		return ErrStopTooBig
	}
	if trigger.LessThan(reference) {
		return ErrStopTooSmall
	}
	return nil
}

// ValidateTake 止盈触发价必须严格优于参照价
func ValidateTake(isLong bool, trigger, reference decimal.Decimal) error {
	if isLong {
		if trigger.LessThanOrEqual(reference) {
			return ErrTakeTooSmall
		}
		return nil
	}
	if trigger.GreaterThanOrEqual(reference) {
		return ErrTakeTooSmall
	}
	return nil
}

// Crossed 判断结算价是否越过已存储的止损或止盈触发价
func (p *Position) Crossed(price decimal.Decimal) bool {
	if p.HasStop() {
		if p.IsLong && price.LessThanOrEqual(p.Stop) {
			return true
		}
		if !p.IsLong && price.GreaterThanOrEqual(p.Stop) {
			return true
		}
	}
	if p.HasTake() {
		if p.IsLong && price.GreaterThanOrEqual(p.Take) {
			return true
		}
		if !p.IsLong && price.LessThanOrEqual(p.Take) {
			return true
		}
	}
	return false
}

// Order 待结算的开/平仓指令，与仓位同键。每键同时至多一条。
type Order struct {
	Key       common.Hash     `json:"key"`
	Account   common.Address  `json:"account"`
	ProductID common.Hash     `json:"product_id"`
	Currency  common.Address  `json:"currency"`
	IsLong    bool            `json:"is_long"`
	IsClose   bool            `json:"is_close"`
	Margin    decimal.Decimal `json:"margin"`
	Size      decimal.Decimal `json:"size"`
	Submitted time.Time       `json:"submitted"`
}

// TriggerOrder 待结算的止损/止盈指令。Kind 区分两类，
// 每键同时至多存在其中一类。
type TriggerOrder struct {
	Key       common.Hash     `json:"key"`
	Account   common.Address  `json:"account"`
	ProductID common.Hash     `json:"product_id"`
	Currency  common.Address  `json:"currency"`
	IsLong    bool            `json:"is_long"`
	Kind      TriggerKind     `json:"kind"`
	Trigger   decimal.Decimal `json:"trigger"`
	Submitted time.Time       `json:"submitted"`
}

type TriggerKind string

const (
	TriggerStop TriggerKind = "STOP"
	TriggerTake TriggerKind = "TAKE"
)
