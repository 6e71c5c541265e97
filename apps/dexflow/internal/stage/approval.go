package stage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dexflow/apps/dexflow/internal/batch"
	"dexflow/apps/dexflow/internal/chain"
	"dexflow/apps/dexflow/internal/lifecycle"
	"dexflow/apps/dexflow/internal/model"
	"dexflow/apps/dexflow/internal/tokens"
)

// ApprovalStage moves submitted orders toward execution by ensuring the
// router may spend the sell token. Orders whose wallet cannot cover the sell
// amount are left untouched and re-checked next tick; a rejected approval
// submission fails the order, because resubmitting a failed signed approval
// risks ambiguous on-chain state.
type ApprovalStage struct {
	orders    OrderStore
	txs       TransactionStore
	wallets   WalletStore
	reader    ChainReader
	submitter TxSubmitter
	registry  *tokens.Registry
	spender   string
	exec      *batch.Executor
	logger    *zap.Logger
}

func NewApprovalStage(
	orders OrderStore,
	txs TransactionStore,
	wallets WalletStore,
	reader ChainReader,
	submitter TxSubmitter,
	registry *tokens.Registry,
	spender string,
	logger *zap.Logger) *ApprovalStage {
	return &ApprovalStage{
		orders:    orders,
		txs:       txs,
		wallets:   wallets,
		reader:    reader,
		submitter: submitter,
		registry:  registry,
		spender:   spender,
		exec:      batch.NewExecutor(logger),
		logger:    logger,
	}
}

func (s *ApprovalStage) Name() string { return "approval" }

func (s *ApprovalStage) Run(ctx context.Context) error {
	status := model.StatusSubmitted
	orders, err := s.orders.ListOrders(ctx, model.OrderFilter{OrderStatus: &status})
	if err != nil {
		return fmt.Errorf("failed to fetch submitted orders: %w", err)
	}
	if len(orders) == 0 {
		return nil
	}

	bctx := batch.NewContext()
	results := batch.Run(s.exec, ctx, bctx, orders, s.processOrder)

	s.logSummary(orders, results)
	return nil
}

// processOrder advances one submitted order. The returned status is what the
// order was moved to; errors leave it at submitted unless terminal.
func (s *ApprovalStage) processOrder(ctx context.Context, order model.Order, octx *batch.OrderContext) (model.OrderStatus, *batch.StageError) {
	wallet, err := s.wallets.GetWallet(ctx, order.WalletID)
	if err != nil {
		return "", batch.Transient(order.OrderID, err)
	}
	if wallet == nil {
		s.failOrder(ctx, order, fmt.Errorf("wallet %s not found", order.WalletID))
		return model.StatusFailed, batch.Terminal(order.OrderID, fmt.Errorf("wallet %s not found", order.WalletID))
	}
	octx.Wallet = wallet

	// The native asset has no allowance to grant; it gets wrapped at
	// execution time instead.
	if s.registry.IsNative(order.SellToken) {
		return s.markApproved(ctx, order)
	}

	sellAmount, err := decimal.NewFromString(order.SellAmount)
	if err != nil {
		s.failOrder(ctx, order, fmt.Errorf("malformed sell amount %q: %w", order.SellAmount, err))
		return model.StatusFailed, batch.Terminal(order.OrderID, err)
	}

	balance, err := s.reader.BalanceOf(ctx, order.SellToken, wallet.Address)
	if err != nil {
		return "", batch.Transient(order.OrderID, err)
	}
	if balance.LessThan(sellAmount) {
		// The wallet may be funded before the next run; leave the order
		// at submitted.
		return "", batch.InsufficientFunds(order.OrderID,
			fmt.Errorf("balance %s below sell amount %s %s", balance, sellAmount, order.SellToken.Symbol))
	}

	allowance, err := s.reader.Allowance(ctx, order.SellToken, wallet.Address, s.spender)
	if err != nil {
		return "", batch.Transient(order.OrderID, err)
	}
	if allowance.GreaterThanOrEqual(sellAmount) {
		return s.markApproved(ctx, order)
	}

	return s.submitApproval(ctx, order, wallet, sellAmount)
}

func (s *ApprovalStage) submitApproval(ctx context.Context, order model.Order, wallet *model.Wallet, sellAmount decimal.Decimal) (model.OrderStatus, *batch.StageError) {
	amountBase, err := chain.ToBaseUnits(sellAmount.String(), order.SellToken.Decimals)
	if err != nil {
		s.failOrder(ctx, order, err)
		return model.StatusFailed, batch.Terminal(order.OrderID, err)
	}

	approveTx, err := chain.BuildApprove(order.SellToken, s.spender, amountBase)
	if err != nil {
		return "", batch.Transient(order.OrderID, err)
	}

	result, err := s.submitter.Submit(ctx, wallet, approveTx)
	if err != nil {
		if errors.Is(err, chain.ErrTxRejected) {
			s.failOrder(ctx, order, err)
			return model.StatusFailed, batch.Terminal(order.OrderID, err)
		}
		return "", batch.Transient(order.OrderID, err)
	}

	orderID := order.OrderID
	if err := s.txs.CreateTransaction(ctx, model.Transaction{
		TransactionID: uuid.New().String(),
		OrderID:       &orderID,
		WalletID:      wallet.WalletID,
		FromAddress:   wallet.Address,
		ToAddress:     result.To,
		TxHash:        result.Hash,
		Type:          model.TxTypeApproval,
		Status:        model.TxStatusPending,
	}); err != nil {
		// The approval is on-chain; the tracker will not see it, but the
		// next approval run finds the allowance satisfied.
		s.logger.Error("Failed to record approval transaction",
			zap.String("order_id", order.OrderID),
			zap.String("tx_hash", result.Hash),
			zap.Error(err))
	}

	return s.transition(ctx, order, model.StatusApprovalPending)
}

// markApproved short-circuits to the post-approval status when no approval
// transaction is needed.
func (s *ApprovalStage) markApproved(ctx context.Context, order model.Order) (model.OrderStatus, *batch.StageError) {
	return s.transition(ctx, order, approvedStatusFor(order))
}

func (s *ApprovalStage) transition(ctx context.Context, order model.Order, to model.OrderStatus) (model.OrderStatus, *batch.StageError) {
	if err := lifecycle.Transition(&order, to); err != nil {
		s.failOrder(ctx, order, err)
		return model.StatusFailed, batch.Terminal(order.OrderID, err)
	}
	if err := s.orders.UpdateOrderStatus(ctx, order.OrderID, to); err != nil {
		return "", batch.Transient(order.OrderID, err)
	}
	return to, nil
}

func (s *ApprovalStage) failOrder(ctx context.Context, order model.Order, cause error) {
	s.logger.Error("Order failed during approval",
		zap.String("order_id", order.OrderID),
		zap.Error(cause))
	if err := s.orders.UpdateOrderStatus(ctx, order.OrderID, model.StatusFailed); err != nil {
		s.logger.Error("Failed to mark order as failed",
			zap.String("order_id", order.OrderID),
			zap.Error(err))
	}
}

func (s *ApprovalStage) logSummary(orders []model.Order, results []batch.Result[model.OrderStatus]) {
	advanced := 0
	for _, r := range results {
		if r.OK {
			advanced++
		}
	}
	s.logger.Info("Approval stage run complete",
		zap.Int("candidates", len(orders)),
		zap.Int("advanced", advanced))
}

// approvedStatusFor picks where an order with a satisfied allowance goes:
// limit orders wait for their price criteria, dca orders enter their tick
// schedule, market orders head straight for criteria which waves them
// through to execution.
func approvedStatusFor(order model.Order) model.OrderStatus {
	if order.OrderType == model.OrderTypeDca {
		return model.StatusActive
	}
	return model.StatusApprovalCompleted
}
