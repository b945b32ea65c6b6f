// Package application 交易引擎应用服务：意向提交与价格中继结算驱动的仓位状态机
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/perptrading/internal/trading/domain"
)

// Router 引擎对注册表的依赖面
type Router interface {
	IsSupportedCurrency(ctx context.Context, currency common.Address) (bool, error)
	RequireOwner(caller common.Address) error
	RequireOracle(caller common.Address) error
}

// Treasury 托管边界：开仓收入保证金，平仓返还
type Treasury interface {
	PayIn(ctx context.Context, from, currency common.Address, amount decimal.Decimal) error
	PayOut(ctx context.Context, to, currency common.Address, amount decimal.Decimal) error
}

// Liquidity 流动性边界：开仓前锁定名义敞口，平仓后释放
type Liquidity interface {
	Lock(ctx context.Context, currency common.Address, size decimal.Decimal) error
	Release(ctx context.Context, currency common.Address, size decimal.Decimal) error
}

// Rewards 奖励通知边界，尽力而为
type Rewards interface {
	NotifySettled(ctx context.Context, currency, account common.Address, fee decimal.Decimal)
}

// TradingService 独占持有仓位、产品与待结算指令状态。
// 所有状态变更串行执行：提交来自账户本人，结算只来自价格中继网关。
type TradingService struct {
	mu       sync.Mutex
	router   Router
	repo     domain.Repository
	treasury Treasury
	pools    Liquidity
	rewards  Rewards
	events   domain.EventPublisher
	logger   *slog.Logger
}

func NewTradingService(repo domain.Repository, treasury Treasury, pools Liquidity, rewards Rewards, events domain.EventPublisher, logger *slog.Logger) *TradingService {
	return &TradingService{
		repo:     repo,
		treasury: treasury,
		pools:    pools,
		rewards:  rewards,
		events:   events,
		logger:   logger,
	}
}

// SetRouter 装配注册表句柄。未装配时所有提交都以 ErrNotWired 失败。
func (s *TradingService) SetRouter(router Router) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.router = router
}

// AddProduct 登记产品参数，仅所有者可调用
func (s *TradingService) AddProduct(ctx context.Context, caller common.Address, id common.Hash, product domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.router == nil {
		return domain.ErrNotWired
	}
	if err := s.router.RequireOwner(caller); err != nil {
		return err
	}
	if !product.MaxLeverage.IsPositive() {
		return fmt.Errorf("add product: %w", domain.ErrMaxLeverage)
	}
	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.ErrProductExists
	}
	if err := s.repo.SaveProduct(ctx, id, &product); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "product added", "product", id.Hex(), "max_leverage", product.MaxLeverage.String())
	return nil
}

// UpdateProductRates 更新产品的费率字段。杠杆与清算阈值不允许追溯修改。
func (s *TradingService) UpdateProductRates(ctx context.Context, caller common.Address, id common.Hash, fee, interest decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.router == nil {
		return domain.ErrNotWired
	}
	if err := s.router.RequireOwner(caller); err != nil {
		return err
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrProductNotFound
	}
	product.Fee = fee
	product.Interest = interest
	return s.repo.SaveProduct(ctx, id, product)
}

// SubmitOrder 提交开仓意向。保证金即刻通过托管收入
//（币种为零地址时即原生资产的随单转账），指令等待价格中继结算。
func (s *TradingService) SubmitOrder(ctx context.Context, account common.Address, productID common.Hash, currency common.Address, isLong bool, margin, size decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.router == nil {
		return domain.ErrNotWired
	}
	supported, err := s.router.IsSupportedCurrency(ctx, currency)
	if err != nil {
		return err
	}
	if !supported {
		return domain.ErrUnsupportedCurrency
	}
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrProductNotFound
	}
	if !margin.IsPositive() {
		return domain.ErrMarginRequired
	}
	if !size.IsPositive() {
		return domain.ErrSizeRequired
	}
	if size.Div(margin).GreaterThan(product.MaxLeverage) {
		return domain.ErrMaxLeverage
	}

	key := domain.Key(account, productID, currency, isLong)
	pending, err := s.repo.GetOrder(ctx, key)
	if err != nil {
		return err
	}
	if pending != nil {
		return domain.ErrOrderExists
	}

	if err := s.treasury.PayIn(ctx, account, currency, margin); err != nil {
		return fmt.Errorf("collect margin: %w", err)
	}
	order := &domain.Order{
		Key:       key,
		Account:   account,
		ProductID: productID,
		Currency:  currency,
		IsLong:    isLong,
		Margin:    margin,
		Size:      size,
	}
	if err := s.repo.SaveOrder(ctx, order); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "order submitted", "account", account.Hex(), "product", productID.Hex(), "size", size.String())
	return nil
}

// SubmitCloseOrder 提交平仓意向，要求仓位存在
func (s *TradingService) SubmitCloseOrder(ctx context.Context, account common.Address, productID common.Hash, currency common.Address, isLong bool, size decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.router == nil {
		return domain.ErrNotWired
	}
	if !size.IsPositive() {
		return domain.ErrSizeRequired
	}
	key := domain.Key(account, productID, currency, isLong)
	position, err := s.repo.GetPosition(ctx, key)
	if err != nil {
		return err
	}
	if !position.IsOpen() {
		return domain.ErrNoPosition
	}
	pending, err := s.repo.GetOrder(ctx, key)
	if err != nil {
		return err
	}
	if pending != nil {
		return domain.ErrOrderExists
	}
	if size.GreaterThan(position.Size) {
		size = position.Size
	}
	order := &domain.Order{
		Key:       key,
		Account:   account,
		ProductID: productID,
		Currency:  currency,
		IsLong:    isLong,
		IsClose:   true,
		Size:      size,
	}
	return s.repo.SaveOrder(ctx, order)
}

// SubmitStopOrder 提交止损意向。参照价取仓位入场价，边界校验
// 在提交与结算两个时点各做一次。
func (s *TradingService) SubmitStopOrder(ctx context.Context, account common.Address, productID common.Hash, currency common.Address, isLong bool, trigger decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitTrigger(ctx, account, productID, currency, isLong, trigger, domain.TriggerStop)
}

// SubmitTakeOrder 提交止盈意向
func (s *TradingService) SubmitTakeOrder(ctx context.Context, account common.Address, productID common.Hash, currency common.Address, isLong bool, trigger decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitTrigger(ctx, account, productID, currency, isLong, trigger, domain.TriggerTake)
}

func (s *TradingService) submitTrigger(ctx context.Context, account common.Address, productID common.Hash, currency common.Address, isLong bool, trigger decimal.Decimal, kind domain.TriggerKind) error {
	if s.router == nil {
		return domain.ErrNotWired
	}
	key := domain.Key(account, productID, currency, isLong)
	position, err := s.repo.GetPosition(ctx, key)
	if err != nil {
		return err
	}
	if !position.IsOpen() {
		return domain.ErrNoPosition
	}
	if err := s.checkTriggerExclusive(ctx, position, kind); err != nil {
		return err
	}
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrProductNotFound
	}
	if kind == domain.TriggerStop {
		err = domain.ValidateStop(isLong, trigger, position.Price, product.LiquidationThreshold)
	} else {
		err = domain.ValidateTake(isLong, trigger, position.Price)
	}
	if err != nil {
		return err
	}

	order := &domain.TriggerOrder{
		Key:       key,
		Account:   account,
		ProductID: productID,
		Currency:  currency,
		IsLong:    isLong,
		Kind:      kind,
		Trigger:   trigger,
	}
	if err := s.repo.SaveTriggerOrder(ctx, order); err != nil {
		return err
	}

	if kind == domain.TriggerStop {
		return s.events.PublishNewStopOrder(ctx, domain.NewStopOrderEvent{
			Key: key, Account: account, ProductID: productID, Currency: currency, IsLong: isLong, Trigger: trigger, OccurredOn: time.Now(),
		})
	}
	return s.events.PublishNewTakeOrder(ctx, domain.NewTakeOrderEvent{
		Key: key, Account: account, ProductID: productID, Currency: currency, IsLong: isLong, Trigger: trigger, OccurredOn: time.Now(),
	})
}

// checkTriggerExclusive 止损与止盈互斥：对方已挂或已设即拒绝
func (s *TradingService) checkTriggerExclusive(ctx context.Context, position *domain.Position, kind domain.TriggerKind) error {
	other := domain.TriggerTake
	otherErr := domain.ErrTakeAlreadySet
	if kind == domain.TriggerTake {
		other = domain.TriggerStop
		otherErr = domain.ErrStopAlreadySet
	}
	if other == domain.TriggerStop && position.HasStop() {
		return otherErr
	}
	if other == domain.TriggerTake && position.HasTake() {
		return otherErr
	}
	pending, err := s.repo.GetTriggerOrder(ctx, position.Key, other)
	if err != nil {
		return err
	}
	if pending != nil {
		return otherErr
	}
	return nil
}

// SettleOrder 结算开/平仓意向，仅价格中继网关可调用。
// 成功与否都消耗掉待结算指令；失败的开仓指令会退还保证金。
func (s *TradingService) SettleOrder(ctx context.Context, caller, account common.Address, productID common.Hash, currency common.Address, isLong bool, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.router == nil {
		return domain.ErrNotWired
	}
	if err := s.router.RequireOracle(caller); err != nil {
		return err
	}
	key := domain.Key(account, productID, currency, isLong)
	order, err := s.repo.GetOrder(ctx, key)
	if err != nil {
		return err
	}
	if order == nil {
		return domain.ErrNoPendingOrder
	}
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return err
	}

	var settleErr error
	switch {
	case product == nil:
		settleErr = domain.ErrProductNotFound
	case order.IsClose:
		settleErr = s.settleClose(ctx, order, product, price)
	default:
		settleErr = s.settleOpen(ctx, order, product, price)
	}

	// 无论结算成败，指令都被消耗；失败的开仓指令退还提交时收取的保证金
	if err := s.repo.DeleteOrder(ctx, key); err != nil {
		return err
	}
	if settleErr != nil {
		if !order.IsClose {
			if err := s.treasury.PayOut(ctx, order.Account, order.Currency, order.Margin); err != nil {
				return fmt.Errorf("refund margin: %w", err)
			}
		}
		s.logger.WarnContext(ctx, "settlement failed, order cancelled",
			"key", key.Hex(), "reason", settleErr.Error())
		return settleErr
	}
	return nil
}

func (s *TradingService) settleOpen(ctx context.Context, order *domain.Order, product *domain.Product, price decimal.Decimal) error {
	fee := product.FeeOn(order.Size)
	if fee.GreaterThanOrEqual(order.Margin) {
		return domain.ErrMarginRequired
	}
	margin := order.Margin.Sub(fee)

	if err := s.pools.Lock(ctx, order.Currency, order.Size); err != nil {
		return fmt.Errorf("lock liquidity: %w", err)
	}

	position, err := s.repo.GetPosition(ctx, order.Key)
	if err != nil {
		return err
	}
	if position.IsOpen() {
		position.Increase(order.Size, margin, price)
	} else {
		position = domain.NewPosition(order.Account, order.ProductID, order.Currency, order.IsLong, order.Size, margin, price)
	}
	if err := s.repo.SavePosition(ctx, position); err != nil {
		return err
	}

	if fee.IsPositive() {
		s.rewards.NotifySettled(ctx, order.Currency, order.Account, fee)
	}
	s.logger.InfoContext(ctx, "position opened", "key", order.Key.Hex(),
		"account", order.Account.Hex(), "size", position.Size.String(), "price", price.String())
	return nil
}

func (s *TradingService) settleClose(ctx context.Context, order *domain.Order, product *domain.Product, price decimal.Decimal) error {
	position, err := s.repo.GetPosition(ctx, order.Key)
	if err != nil {
		return err
	}
	if !position.IsOpen() {
		return domain.ErrNoPosition
	}
	size := order.Size
	if size.GreaterThan(position.Size) {
		size = position.Size
	}
	return s.closePosition(ctx, position, size, price, product)
}

// closePosition 减仓或清仓：按比例释放保证金、扣除手续费、
// 释放池敞口并发布 ClosePosition 事件。规模归零时仓位被删除。
func (s *TradingService) closePosition(ctx context.Context, position *domain.Position, size, price decimal.Decimal, product *domain.Product) error {
	fee := product.FeeOn(size)
	released := position.Reduce(size)
	returned := released.Sub(fee)
	if returned.IsNegative() {
		returned = decimal.Zero
	}

	// 先完成外部划转，仓储里的仓位此前保持原样，失败时不留半成品状态。
	// 国库是唯一可能失败的一步，放在最前
	if err := s.treasury.PayOut(ctx, position.Account, position.Currency, returned); err != nil {
		return fmt.Errorf("return margin: %w", err)
	}
	if err := s.pools.Release(ctx, position.Currency, size); err != nil {
		return fmt.Errorf("release liquidity: %w", err)
	}

	if position.IsOpen() {
		if err := s.repo.SavePosition(ctx, position); err != nil {
			return err
		}
	} else {
		if err := s.repo.DeletePosition(ctx, position.Key); err != nil {
			return err
		}
		// 仓位已删除，残留的触发意向一并清除
		if err := s.repo.DeleteTriggerOrder(ctx, position.Key, domain.TriggerStop); err != nil {
			return err
		}
		if err := s.repo.DeleteTriggerOrder(ctx, position.Key, domain.TriggerTake); err != nil {
			return err
		}
	}
	if fee.IsPositive() {
		s.rewards.NotifySettled(ctx, position.Currency, position.Account, fee)
	}

	if err := s.events.PublishClosePosition(ctx, domain.ClosePositionEvent{
		Key: position.Key, Account: position.Account, ProductID: position.ProductID,
		Currency: position.Currency, IsLong: position.IsLong,
		Price: price, Margin: returned, Fee: fee, OccurredOn: time.Now(),
	}); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "position closed", "key", position.Key.Hex(),
		"size", size.String(), "margin_returned", returned.String(), "fee", fee.String())
	return nil
}

// SettleStopOrder 把止损触发价写入仓位，仅价格中继网关可调用。
// 已设置的相同值是幂等成功，并再次发布更新事件以重申当前值。
func (s *TradingService) SettleStopOrder(ctx context.Context, caller, account common.Address, productID common.Hash, currency common.Address, isLong bool, trigger decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settleTrigger(ctx, caller, account, productID, currency, isLong, trigger, domain.TriggerStop)
}

// SettleTakeOrder 把止盈触发价写入仓位，仅价格中继网关可调用
func (s *TradingService) SettleTakeOrder(ctx context.Context, caller, account common.Address, productID common.Hash, currency common.Address, isLong bool, trigger decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settleTrigger(ctx, caller, account, productID, currency, isLong, trigger, domain.TriggerTake)
}

func (s *TradingService) settleTrigger(ctx context.Context, caller, account common.Address, productID common.Hash, currency common.Address, isLong bool, trigger decimal.Decimal, kind domain.TriggerKind) error {
	if s.router == nil {
		return domain.ErrNotWired
	}
	if err := s.router.RequireOracle(caller); err != nil {
		return err
	}
	key := domain.Key(account, productID, currency, isLong)
	position, err := s.repo.GetPosition(ctx, key)
	if err != nil {
		return err
	}
	if !position.IsOpen() {
		return domain.ErrNoPosition
	}

	idempotent := (kind == domain.TriggerStop && position.HasStop() && position.Stop.Equal(trigger)) ||
		(kind == domain.TriggerTake && position.HasTake() && position.Take.Equal(trigger))

	if !idempotent {
		if err := s.checkTriggerExclusive(ctx, position, kind); err != nil {
			return err
		}
		product, err := s.repo.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrProductNotFound
		}
		// 市场可能已经移动，结算时点重新校验边界
		if kind == domain.TriggerStop {
			err = domain.ValidateStop(isLong, trigger, position.Price, product.LiquidationThreshold)
		} else {
			err = domain.ValidateTake(isLong, trigger, position.Price)
		}
		if err != nil {
			return err
		}
		if kind == domain.TriggerStop {
			position.Stop = trigger
		} else {
			position.Take = trigger
		}
		if err := s.repo.SavePosition(ctx, position); err != nil {
			return err
		}
	}

	if err := s.repo.DeleteTriggerOrder(ctx, key, kind); err != nil {
		return err
	}

	if kind == domain.TriggerStop {
		return s.events.PublishPositionStopUpdated(ctx, domain.PositionStopUpdatedEvent{
			Key: key, Account: account, ProductID: productID, Currency: currency, IsLong: isLong, Stop: trigger, OccurredOn: time.Now(),
		})
	}
	return s.events.PublishPositionTakeUpdated(ctx, domain.PositionTakeUpdatedEvent{
		Key: key, Account: account, ProductID: productID, Currency: currency, IsLong: isLong, Take: trigger, OccurredOn: time.Now(),
	})
}

// SettleLimit 结算价越过已存储的止损或止盈时强制全平，
// 仅价格中继网关可调用
func (s *TradingService) SettleLimit(ctx context.Context, caller, account common.Address, productID common.Hash, currency common.Address, isLong bool, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.router == nil {
		return domain.ErrNotWired
	}
	if err := s.router.RequireOracle(caller); err != nil {
		return err
	}
	key := domain.Key(account, productID, currency, isLong)
	position, err := s.repo.GetPosition(ctx, key)
	if err != nil {
		return err
	}
	if !position.IsOpen() {
		return domain.ErrNoPosition
	}
	if !position.Crossed(price) {
		return domain.ErrNoTriggerCrossed
	}
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrProductNotFound
	}
	return s.closePosition(ctx, position, position.Size, price, product)
}

// GetPosition 纯读取；不存在时返回零值仓位而非错误
func (s *TradingService) GetPosition(ctx context.Context, account common.Address, productID common.Hash, currency common.Address, isLong bool) (*domain.Position, error) {
	key := domain.Key(account, productID, currency, isLong)
	position, err := s.repo.GetPosition(ctx, key)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return &domain.Position{
			Key: key, Account: account, ProductID: productID, Currency: currency, IsLong: isLong,
			Size: decimal.Zero, Margin: decimal.Zero, Price: decimal.Zero, Stop: decimal.Zero, Take: decimal.Zero,
		}, nil
	}
	return position, nil
}

// GetProduct 纯读取；不存在时返回零值产品
func (s *TradingService) GetProduct(ctx context.Context, id common.Hash) (*domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return &domain.Product{
			MaxLeverage: decimal.Zero, LiquidationThreshold: decimal.Zero,
			Fee: decimal.Zero, Interest: decimal.Zero,
		}, nil
	}
	return product, nil
}
