package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dexflow/apps/dexflow/internal/batch"
	"dexflow/apps/dexflow/internal/lifecycle"
	"dexflow/apps/dexflow/internal/model"
	"dexflow/apps/dexflow/internal/tokens"
)

// CriteriaStage evaluates market conditions. Limit orders waiting at
// approval_completed move to execution_ready when their target price is
// met; market orders pass through unconditionally; dca orders at active
// execute their swap inline on a qualifying interval tick.
type CriteriaStage struct {
	orders   OrderStore
	oracle   MarketOracle
	registry *tokens.Registry
	notifier Notifier
	swapper  *swapExecutor
	exec     *batch.Executor
	logger   *zap.Logger
	now      func() time.Time
}

func NewCriteriaStage(
	orders OrderStore,
	txs TransactionStore,
	wallets WalletStore,
	submitter TxSubmitter,
	marketOracle MarketOracle,
	registry *tokens.Registry,
	notifier Notifier,
	logger *zap.Logger) *CriteriaStage {
	return &CriteriaStage{
		orders:   orders,
		oracle:   marketOracle,
		registry: registry,
		notifier: notifier,
		swapper: &swapExecutor{
			orders:    orders,
			txs:       txs,
			wallets:   wallets,
			submitter: submitter,
			oracle:    marketOracle,
			registry:  registry,
			logger:    logger,
		},
		exec:   batch.NewExecutor(logger),
		logger: logger,
		now:    time.Now,
	}
}

func (s *CriteriaStage) Name() string { return "criteria" }

func (s *CriteriaStage) Run(ctx context.Context) error {
	if err := s.runWaiting(ctx); err != nil {
		return err
	}
	return s.runDca(ctx)
}

// runWaiting handles limit and market orders parked at approval_completed.
func (s *CriteriaStage) runWaiting(ctx context.Context) error {
	status := model.StatusApprovalCompleted
	orders, err := s.orders.ListOrders(ctx, model.OrderFilter{OrderStatus: &status})
	if err != nil {
		return fmt.Errorf("failed to fetch waiting orders: %w", err)
	}
	if len(orders) == 0 {
		return nil
	}

	bctx := batch.NewContext()
	results := batch.Run(s.exec, ctx, bctx, orders, s.evaluateWaiting)

	met := 0
	for _, r := range results {
		if r.OK && r.Value {
			met++
		}
	}
	s.logger.Info("Criteria stage evaluated waiting orders",
		zap.Int("candidates", len(orders)),
		zap.Int("criteria_met", met))
	return nil
}

func (s *CriteriaStage) evaluateWaiting(ctx context.Context, order model.Order, octx *batch.OrderContext) (bool, *batch.StageError) {
	// Market orders have no trigger condition.
	if order.OrderType == model.OrderTypeMarket {
		return true, s.advanceToReady(ctx, order)
	}

	if order.TargetPrice == nil {
		s.failOrder(ctx, order, fmt.Errorf("limit order without target price"))
		return false, batch.Terminal(order.OrderID, fmt.Errorf("limit order without target price"))
	}
	target, err := decimal.NewFromString(*order.TargetPrice)
	if err != nil {
		s.failOrder(ctx, order, fmt.Errorf("malformed target price %q: %w", *order.TargetPrice, err))
		return false, batch.Terminal(order.OrderID, err)
	}

	quoted, stageErr := s.quote(ctx, order, octx)
	if stageErr != nil {
		return false, stageErr
	}

	if !criteriaMet(order.OrderMode, quoted, target) {
		return false, nil
	}
	return true, s.advanceToReady(ctx, order)
}

func (s *CriteriaStage) advanceToReady(ctx context.Context, order model.Order) *batch.StageError {
	if err := lifecycle.Transition(&order, model.StatusExecutionReady); err != nil {
		return batch.Terminal(order.OrderID, err)
	}
	if err := s.orders.UpdateOrderStatus(ctx, order.OrderID, model.StatusExecutionReady); err != nil {
		return batch.Transient(order.OrderID, err)
	}
	s.notifier.Notify(order.UserID, order.OrderID, string(model.StatusExecutionReady),
		fmt.Sprintf("Your %s order %s/%s is ready for execution", order.OrderType, order.SellToken.Symbol, order.BuyToken.Symbol))
	return nil
}

// runDca handles active dca orders: a qualifying interval tick inside the
// price band executes the swap immediately.
func (s *CriteriaStage) runDca(ctx context.Context) error {
	orderType := model.OrderTypeDca
	status := model.StatusActive
	orders, err := s.orders.ListOrders(ctx, model.OrderFilter{OrderType: &orderType, OrderStatus: &status})
	if err != nil {
		return fmt.Errorf("failed to fetch active dca orders: %w", err)
	}
	if len(orders) == 0 {
		return nil
	}

	bctx := batch.NewContext()
	results := batch.Run(s.exec, ctx, bctx, orders, s.evaluateDca)

	executed := 0
	for _, r := range results {
		if r.OK && r.Value {
			executed++
		}
	}
	s.logger.Info("Criteria stage evaluated dca orders",
		zap.Int("candidates", len(orders)),
		zap.Int("executed", executed))
	return nil
}

func (s *CriteriaStage) evaluateDca(ctx context.Context, order model.Order, octx *batch.OrderContext) (bool, *batch.StageError) {
	interval := order.EffectiveIntervalMinutes()
	if interval <= 0 {
		s.failOrder(ctx, order, fmt.Errorf("dca order without interval"))
		return false, batch.Terminal(order.OrderID, fmt.Errorf("dca order without interval"))
	}

	if !dcaTickEligible(order.CreatedAt, s.now(), interval) {
		return false, nil
	}

	if order.MinPrice == nil || order.MaxPrice == nil {
		s.failOrder(ctx, order, fmt.Errorf("dca order without price band"))
		return false, batch.Terminal(order.OrderID, fmt.Errorf("dca order without price band"))
	}
	minPrice, err := decimal.NewFromString(*order.MinPrice)
	if err != nil {
		s.failOrder(ctx, order, fmt.Errorf("malformed min price %q: %w", *order.MinPrice, err))
		return false, batch.Terminal(order.OrderID, err)
	}
	maxPrice, err := decimal.NewFromString(*order.MaxPrice)
	if err != nil {
		s.failOrder(ctx, order, fmt.Errorf("malformed max price %q: %w", *order.MaxPrice, err))
		return false, batch.Terminal(order.OrderID, err)
	}

	quoted, stageErr := s.quote(ctx, order, octx)
	if stageErr != nil {
		return false, stageErr
	}

	if quoted.LessThan(minPrice) || quoted.GreaterThan(maxPrice) {
		// Outside the band this tick; re-evaluated on the next
		// qualifying interval.
		return false, nil
	}

	outcome, stageErr := s.swapper.execute(ctx, order, octx)
	if stageErr != nil {
		if !stageErr.IsRetryable() {
			s.failOrder(ctx, order, stageErr)
			s.notifier.Notify(order.UserID, order.OrderID, string(model.StatusFailed),
				fmt.Sprintf("Your dca order %s/%s failed to execute", order.SellToken.Symbol, order.BuyToken.Symbol))
		}
		return false, stageErr
	}

	if err := s.orders.UpdateOrderStatus(ctx, order.OrderID, model.StatusDcaExecuted); err != nil {
		return false, batch.Transient(order.OrderID, err)
	}
	s.notifier.Notify(order.UserID, order.OrderID, string(model.StatusDcaExecuted),
		fmt.Sprintf("Your dca order executed: swapped %s %s (tx %s)", order.SellAmount, order.SellToken.Symbol, outcome.TxHash))
	return true, nil
}

// quote resolves the pool and prices one unit of the traded asset in
// counter-asset units, caching both on the order's context.
func (s *CriteriaStage) quote(ctx context.Context, order model.Order, octx *batch.OrderContext) (decimal.Decimal, *batch.StageError) {
	base, counter := quoteSides(order)
	base = s.registry.ForSwap(base)
	counter = s.registry.ForSwap(counter)

	pair, err := s.oracle.ResolvePair(ctx, base, counter)
	if err != nil {
		return decimal.Zero, batch.RouteUnavailable(order.OrderID, err)
	}
	octx.PairAddress = pair

	quoted, err := s.oracle.QuoteOneUnit(ctx, base, counter)
	if err != nil {
		return decimal.Zero, batch.Transient(order.OrderID, err)
	}
	octx.QuotedPrice = quoted.String()
	return quoted, nil
}

func (s *CriteriaStage) failOrder(ctx context.Context, order model.Order, cause error) {
	s.logger.Error("Order failed during criteria evaluation",
		zap.String("order_id", order.OrderID),
		zap.Error(cause))
	if err := s.orders.UpdateOrderStatus(ctx, order.OrderID, model.StatusFailed); err != nil {
		s.logger.Error("Failed to mark order as failed",
			zap.String("order_id", order.OrderID),
			zap.Error(err))
	}
}

// criteriaMet decides whether the quoted one-unit price triggers the order.
// The boundary price counts as met in both modes.
func criteriaMet(mode model.OrderMode, quoted, target decimal.Decimal) bool {
	if mode == model.OrderModeBuy {
		return quoted.LessThanOrEqual(target)
	}
	return quoted.GreaterThanOrEqual(target)
}

// dcaTickEligible reports whether a dca order is due this tick: whole
// elapsed minutes since creation landing exactly on an interval multiple.
func dcaTickEligible(createdAt, now time.Time, intervalMinutes int) bool {
	elapsed := int(now.Sub(createdAt).Minutes())
	if elapsed < 0 {
		return false
	}
	return elapsed%intervalMinutes == 0
}

// quoteSides picks the price convention: buys price the asset being bought
// in sell-token units, sells price the asset being sold in buy-token units.
func quoteSides(order model.Order) (base, counter model.Token) {
	if order.OrderMode == model.OrderModeBuy {
		return order.BuyToken, order.SellToken
	}
	return order.SellToken, order.BuyToken
}
