package stage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"dexflow/apps/dexflow/internal/batch"
	"dexflow/apps/dexflow/internal/lifecycle"
	"dexflow/apps/dexflow/internal/model"
	"dexflow/apps/dexflow/internal/tokens"
)

// ExecutionStage broadcasts swaps for orders at execution_ready. A
// broadcast order moves to execution_pending and is settled by the tracker;
// transient failures leave it ready for the next run; explicit rejections
// fail it.
type ExecutionStage struct {
	orders   OrderStore
	notifier Notifier
	swapper  *swapExecutor
	exec     *batch.Executor
	logger   *zap.Logger
}

func NewExecutionStage(
	orders OrderStore,
	txs TransactionStore,
	wallets WalletStore,
	submitter TxSubmitter,
	marketOracle MarketOracle,
	registry *tokens.Registry,
	notifier Notifier,
	logger *zap.Logger) *ExecutionStage {
	return &ExecutionStage{
		orders:   orders,
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
	}
}

func (s *ExecutionStage) Name() string { return "execution" }

func (s *ExecutionStage) Run(ctx context.Context) error {
	status := model.StatusExecutionReady
	orders, err := s.orders.ListOrders(ctx, model.OrderFilter{OrderStatus: &status})
	if err != nil {
		return fmt.Errorf("failed to fetch execution-ready orders: %w", err)
	}
	if len(orders) == 0 {
		return nil
	}

	bctx := batch.NewContext()
	results := batch.Run(s.exec, ctx, bctx, orders, s.executeOrder)

	executed := 0
	for _, r := range results {
		if r.OK {
			executed++
		}
	}
	s.logger.Info("Execution stage run complete",
		zap.Int("candidates", len(orders)),
		zap.Int("broadcast", executed))
	return nil
}

func (s *ExecutionStage) executeOrder(ctx context.Context, order model.Order, octx *batch.OrderContext) (swapOutcome, *batch.StageError) {
	outcome, stageErr := s.swapper.execute(ctx, order, octx)
	if stageErr != nil {
		if !stageErr.IsRetryable() {
			s.failOrder(ctx, order, stageErr)
			s.notifier.Notify(order.UserID, order.OrderID, string(model.StatusFailed),
				fmt.Sprintf("Your %s order %s/%s failed to execute", order.OrderType, order.SellToken.Symbol, order.BuyToken.Symbol))
		}
		return swapOutcome{}, stageErr
	}

	if err := lifecycle.Transition(&order, model.StatusExecutionPending); err != nil {
		return swapOutcome{}, batch.Terminal(order.OrderID, err)
	}
	if err := s.orders.UpdateOrderStatus(ctx, order.OrderID, model.StatusExecutionPending); err != nil {
		return swapOutcome{}, batch.Transient(order.OrderID, err)
	}

	s.notifier.Notify(order.UserID, order.OrderID, string(model.StatusExecutionPending),
		fmt.Sprintf("Your %s order is executing: swapping %s %s for %s (tx %s)",
			order.OrderType, order.SellAmount, order.SellToken.Symbol, order.BuyToken.Symbol, outcome.TxHash))
	return outcome, nil
}

func (s *ExecutionStage) failOrder(ctx context.Context, order model.Order, cause error) {
	s.logger.Error("Order failed during execution",
		zap.String("order_id", order.OrderID),
		zap.Error(cause))
	if err := s.orders.UpdateOrderStatus(ctx, order.OrderID, model.StatusFailed); err != nil {
		s.logger.Error("Failed to mark order as failed",
			zap.String("order_id", order.OrderID),
			zap.Error(err))
	}
}
