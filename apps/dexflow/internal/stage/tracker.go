package stage

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"dexflow/apps/dexflow/internal/chain"
	"dexflow/apps/dexflow/internal/lifecycle"
	"dexflow/apps/dexflow/internal/model"
)

// NativeDecimals is the precision transaction fees are recorded at.
const NativeDecimals = 18

// Tracker settles pending transactions: a mined receipt confirms the
// transaction, records its fee, and advances the owning order; a receipt
// that reverted fails both. Transactions unmined after maxPolls sweeps are
// given up on rather than polled forever.
type Tracker struct {
	orders   OrderStore
	txs      TransactionStore
	receipts ReceiptSource
	notifier Notifier
	maxPolls int
	logger   *zap.Logger
}

func NewTracker(
	orders OrderStore,
	txs TransactionStore,
	receipts ReceiptSource,
	notifier Notifier,
	maxPolls int,
	logger *zap.Logger) *Tracker {
	return &Tracker{
		orders:   orders,
		txs:      txs,
		receipts: receipts,
		notifier: notifier,
		maxPolls: maxPolls,
		logger:   logger,
	}
}

func (t *Tracker) Name() string { return "tracker" }

// trackOutcome is one transaction's settled poll result, aligned by slice
// position with the pending list.
type trackOutcome struct {
	update      *model.TransactionUpdate
	orderStatus model.OrderStatus // empty = no order transition
	orderID     string
}

func (t *Tracker) Run(ctx context.Context) error {
	pending, err := t.txs.ListPendingTransactions(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	orders, err := t.ordersByID(ctx, pending)
	if err != nil {
		return err
	}

	// Same settle-all discipline as the order stages: every pending
	// transaction gets polled, one slot each, no short-circuit.
	outcomes := make([]trackOutcome, len(pending))
	var wg sync.WaitGroup
	for i, tx := range pending {
		wg.Add(1)
		go func(i int, tx model.Transaction) {
			defer wg.Done()
			outcomes[i] = t.poll(ctx, tx, orders)
		}(i, tx)
	}
	wg.Wait()

	updates := make([]model.TransactionUpdate, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.update != nil {
			updates = append(updates, *outcome.update)
		}
	}
	if err := t.txs.BulkUpdateTransactions(ctx, updates); err != nil {
		return fmt.Errorf("failed to flush transaction updates: %w", err)
	}

	for _, outcome := range outcomes {
		if outcome.orderStatus == "" {
			continue
		}
		if err := t.orders.UpdateOrderStatus(ctx, outcome.orderID, outcome.orderStatus); err != nil {
			t.logger.Error("Failed to advance order after receipt",
				zap.String("order_id", outcome.orderID),
				zap.Error(err))
			continue
		}
		if order, ok := orders[outcome.orderID]; ok {
			t.notifyOrder(order, outcome.orderStatus)
		}
	}

	t.logger.Info("Tracker run complete",
		zap.Int("pending", len(pending)),
		zap.Int("settled", len(updates)))
	return nil
}

// poll fetches one transaction's receipt and decides its update and any
// order transition. Errors leave the transaction untouched for next sweep.
func (t *Tracker) poll(ctx context.Context, tx model.Transaction, orders map[string]model.Order) trackOutcome {
	receipt, err := t.receipts.GetReceipt(ctx, tx.TxHash)
	if err != nil {
		t.logger.Warn("Failed to poll receipt",
			zap.String("tx_hash", tx.TxHash),
			zap.Error(err))
		return trackOutcome{}
	}

	if receipt == nil {
		pollCount := tx.PollCount + 1
		if pollCount >= t.maxPolls {
			t.logger.Error("Giving up on unconfirmed transaction",
				zap.String("tx_hash", tx.TxHash),
				zap.Int("polls", pollCount))
			return t.settle(tx, orders, model.TxStatusFailed, nil, pollCount)
		}
		return trackOutcome{update: &model.TransactionUpdate{
			TransactionID: tx.TransactionID,
			Status:        model.TxStatusPending,
			PollCount:     pollCount,
		}}
	}

	if !receipt.Confirmed {
		return t.settle(tx, orders, model.TxStatusFailed, nil, tx.PollCount)
	}

	fee := chain.FromBaseUnits(receipt.FeeWei, NativeDecimals)
	return t.settle(tx, orders, model.TxStatusConfirmed, &fee, tx.PollCount)
}

// settle builds the transaction update and the owning order's transition for
// a terminal receipt outcome.
func (t *Tracker) settle(tx model.Transaction, orders map[string]model.Order, status model.TransactionStatus, fee *string, pollCount int) trackOutcome {
	outcome := trackOutcome{update: &model.TransactionUpdate{
		TransactionID: tx.TransactionID,
		Status:        status,
		Fee:           fee,
		PollCount:     pollCount,
	}}

	if tx.OrderID == nil {
		return outcome
	}
	order, ok := orders[*tx.OrderID]
	if !ok {
		t.logger.Warn("Pending transaction references unknown order",
			zap.String("tx_hash", tx.TxHash),
			zap.String("order_id", *tx.OrderID))
		return outcome
	}

	var next model.OrderStatus
	switch {
	case status == model.TxStatusFailed:
		next = model.StatusFailed
	case tx.Type == model.TxTypeApproval:
		next = approvedStatusFor(order)
	case tx.Type == model.TxTypeSwap || tx.Type == model.TxTypeWithdraw:
		next = model.StatusCompleted
	default:
		// Wrap deposits settle without moving the order.
		return outcome
	}

	// The order may have moved on (typically expired) while the transaction
	// was in flight. Settle the transaction but leave the order where it is.
	if !lifecycle.CanTransition(order.Status, next) {
		t.logger.Warn("Skipping receipt-driven order transition",
			zap.String("order_id", order.OrderID),
			zap.String("tx_hash", tx.TxHash),
			zap.String("from", string(order.Status)),
			zap.String("to", string(next)))
		return outcome
	}

	outcome.orderID = order.OrderID
	outcome.orderStatus = next
	return outcome
}

func (t *Tracker) ordersByID(ctx context.Context, pending []model.Transaction) (map[string]model.Order, error) {
	ids := make([]string, 0, len(pending))
	seen := make(map[string]bool)
	for _, tx := range pending {
		if tx.OrderID != nil && !seen[*tx.OrderID] {
			ids = append(ids, *tx.OrderID)
			seen[*tx.OrderID] = true
		}
	}

	orders, err := t.orders.ListOrdersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders for pending transactions: %w", err)
	}

	byID := make(map[string]model.Order, len(orders))
	for _, order := range orders {
		byID[order.OrderID] = order
	}
	return byID, nil
}

func (t *Tracker) notifyOrder(order model.Order, status model.OrderStatus) {
	var message string
	switch status {
	case model.StatusCompleted:
		message = fmt.Sprintf("Your %s order %s/%s completed", order.OrderType, order.SellToken.Symbol, order.BuyToken.Symbol)
	case model.StatusFailed:
		message = fmt.Sprintf("Your %s order %s/%s failed on-chain", order.OrderType, order.SellToken.Symbol, order.BuyToken.Symbol)
	default:
		return
	}
	t.notifier.Notify(order.UserID, order.OrderID, string(status), message)
}
