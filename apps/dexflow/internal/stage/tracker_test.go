package stage

import (
	"context"
	"math/big"
	"testing"

	"go.uber.org/zap"

	"dexflow/apps/dexflow/internal/chain"
	"dexflow/apps/dexflow/internal/model"
)

func pendingTx(id, orderID, hash string, txType model.TransactionType, pollCount int) model.Transaction {
	oid := orderID
	return model.Transaction{
		TransactionID: id,
		OrderID:       &oid,
		WalletID:      "wallet-1",
		FromAddress:   "0xfrom",
		ToAddress:     "0xto",
		TxHash:        hash,
		Type:          txType,
		Status:        model.TxStatusPending,
		PollCount:     pollCount,
	}
}

func findTx(t *testing.T, txs *fakeTransactionStore, id string) model.Transaction {
	t.Helper()
	for _, tx := range txs.all() {
		if tx.TransactionID == id {
			return tx
		}
	}
	t.Fatalf("transaction %s not found", id)
	return model.Transaction{}
}

func TestTrackerConfirmsApprovalAndAdvancesOrder(t *testing.T) {
	order := limitOrder("order-1", testUsdc, testWeth, "1000", "1800")
	order.Status = model.StatusApprovalPending
	orders := newFakeOrderStore(order)

	txs := &fakeTransactionStore{}
	txs.CreateTransaction(context.Background(), pendingTx("tx-1", "order-1", "0xabc", model.TxTypeApproval, 0))

	receipts := &fakeReceipts{receipts: map[string]*chain.Receipt{
		"0xabc": {Confirmed: true, FeeWei: big.NewInt(2000000000000000)},
	}}

	tracker := NewTracker(orders, txs, receipts, &recordingNotifier{}, 10, zap.NewNop())
	if err := tracker.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	tx := findTx(t, txs, "tx-1")
	if tx.Status != model.TxStatusConfirmed {
		t.Errorf("transaction status = %s, want %s", tx.Status, model.TxStatusConfirmed)
	}
	if tx.Fee == nil || *tx.Fee != "0.002" {
		t.Errorf("transaction fee = %v, want 0.002", tx.Fee)
	}
	if got := orders.get("order-1").Status; got != model.StatusApprovalCompleted {
		t.Errorf("order status = %s, want %s", got, model.StatusApprovalCompleted)
	}
}

func TestTrackerConfirmedApprovalActivatesDcaOrder(t *testing.T) {
	order := limitOrder("order-1", testUsdc, testWeth, "1000", "1800")
	order.OrderType = model.OrderTypeDca
	order.Status = model.StatusApprovalPending
	orders := newFakeOrderStore(order)

	txs := &fakeTransactionStore{}
	txs.CreateTransaction(context.Background(), pendingTx("tx-1", "order-1", "0xabc", model.TxTypeApproval, 0))

	receipts := &fakeReceipts{receipts: map[string]*chain.Receipt{
		"0xabc": {Confirmed: true, FeeWei: big.NewInt(1)},
	}}

	tracker := NewTracker(orders, txs, receipts, &recordingNotifier{}, 10, zap.NewNop())
	if err := tracker.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := orders.get("order-1").Status; got != model.StatusActive {
		t.Errorf("dca order status = %s, want %s", got, model.StatusActive)
	}
}

func TestTrackerCompletesOrderOnConfirmedSwap(t *testing.T) {
	order := limitOrder("order-1", testUsdc, testWeth, "1000", "1800")
	order.Status = model.StatusExecutionPending
	orders := newFakeOrderStore(order)

	txs := &fakeTransactionStore{}
	txs.CreateTransaction(context.Background(), pendingTx("tx-1", "order-1", "0xswap", model.TxTypeSwap, 0))

	receipts := &fakeReceipts{receipts: map[string]*chain.Receipt{
		"0xswap": {Confirmed: true, FeeWei: big.NewInt(1)},
	}}
	notifier := &recordingNotifier{}

	tracker := NewTracker(orders, txs, receipts, notifier, 10, zap.NewNop())
	if err := tracker.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := orders.get("order-1").Status; got != model.StatusCompleted {
		t.Errorf("order status = %s, want %s", got, model.StatusCompleted)
	}
	if events := notifier.forOrder("order-1"); len(events) != 1 {
		t.Errorf("got %d notifications, want 1", len(events))
	}
}

func TestTrackerIncrementsPollCountWhileUnmined(t *testing.T) {
	order := limitOrder("order-1", testUsdc, testWeth, "1000", "1800")
	order.Status = model.StatusApprovalPending
	orders := newFakeOrderStore(order)

	txs := &fakeTransactionStore{}
	txs.CreateTransaction(context.Background(), pendingTx("tx-1", "order-1", "0xabc", model.TxTypeApproval, 3))

	tracker := NewTracker(orders, txs, &fakeReceipts{receipts: map[string]*chain.Receipt{}}, &recordingNotifier{}, 10, zap.NewNop())
	if err := tracker.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	tx := findTx(t, txs, "tx-1")
	if tx.Status != model.TxStatusPending {
		t.Errorf("transaction status = %s, want %s", tx.Status, model.TxStatusPending)
	}
	if tx.PollCount != 4 {
		t.Errorf("poll count = %d, want 4", tx.PollCount)
	}
	if got := orders.get("order-1").Status; got != model.StatusApprovalPending {
		t.Errorf("order status = %s, want %s", got, model.StatusApprovalPending)
	}
}

func TestTrackerGivesUpAfterMaxPolls(t *testing.T) {
	order := limitOrder("order-1", testUsdc, testWeth, "1000", "1800")
	order.Status = model.StatusApprovalPending
	orders := newFakeOrderStore(order)

	txs := &fakeTransactionStore{}
	txs.CreateTransaction(context.Background(), pendingTx("tx-1", "order-1", "0xabc", model.TxTypeApproval, 9))

	tracker := NewTracker(orders, txs, &fakeReceipts{receipts: map[string]*chain.Receipt{}}, &recordingNotifier{}, 10, zap.NewNop())
	if err := tracker.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	tx := findTx(t, txs, "tx-1")
	if tx.Status != model.TxStatusFailed {
		t.Errorf("transaction status = %s, want %s", tx.Status, model.TxStatusFailed)
	}
	if got := orders.get("order-1").Status; got != model.StatusFailed {
		t.Errorf("order status = %s, want %s", got, model.StatusFailed)
	}
}

func TestTrackerRevertedReceiptFailsBoth(t *testing.T) {
	order := limitOrder("order-1", testUsdc, testWeth, "1000", "1800")
	order.Status = model.StatusExecutionPending
	orders := newFakeOrderStore(order)

	txs := &fakeTransactionStore{}
	txs.CreateTransaction(context.Background(), pendingTx("tx-1", "order-1", "0xswap", model.TxTypeSwap, 0))

	receipts := &fakeReceipts{receipts: map[string]*chain.Receipt{
		"0xswap": {Confirmed: false},
	}}
	notifier := &recordingNotifier{}

	tracker := NewTracker(orders, txs, receipts, notifier, 10, zap.NewNop())
	if err := tracker.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := findTx(t, txs, "tx-1").Status; got != model.TxStatusFailed {
		t.Errorf("transaction status = %s, want %s", got, model.TxStatusFailed)
	}
	if got := orders.get("order-1").Status; got != model.StatusFailed {
		t.Errorf("order status = %s, want %s", got, model.StatusFailed)
	}
	if events := notifier.forOrder("order-1"); len(events) != 1 {
		t.Errorf("got %d notifications, want 1", len(events))
	}
}

func TestTrackerConfirmedReceiptCannotReviveExpiredOrder(t *testing.T) {
	order := limitOrder("order-1", testUsdc, testWeth, "1000", "1800")
	order.Status = model.StatusExpired
	orders := newFakeOrderStore(order)

	txs := &fakeTransactionStore{}
	txs.CreateTransaction(context.Background(), pendingTx("tx-1", "order-1", "0xabc", model.TxTypeApproval, 0))

	receipts := &fakeReceipts{receipts: map[string]*chain.Receipt{
		"0xabc": {Confirmed: true, FeeWei: big.NewInt(1)},
	}}
	notifier := &recordingNotifier{}

	tracker := NewTracker(orders, txs, receipts, notifier, 10, zap.NewNop())
	if err := tracker.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	// The approval landed, but the order already expired while it was in
	// flight; the transaction settles and the order stays expired.
	if got := findTx(t, txs, "tx-1").Status; got != model.TxStatusConfirmed {
		t.Errorf("transaction status = %s, want %s", got, model.TxStatusConfirmed)
	}
	if got := orders.get("order-1").Status; got != model.StatusExpired {
		t.Errorf("order status = %s, want %s", got, model.StatusExpired)
	}
	if events := notifier.forOrder("order-1"); len(events) != 0 {
		t.Errorf("got %d notifications, want 0", len(events))
	}
}

func TestTrackerGiveUpLeavesTerminalOrderAlone(t *testing.T) {
	order := limitOrder("order-1", testUsdc, testWeth, "1000", "1800")
	order.Status = model.StatusExpired
	orders := newFakeOrderStore(order)

	txs := &fakeTransactionStore{}
	txs.CreateTransaction(context.Background(), pendingTx("tx-1", "order-1", "0xabc", model.TxTypeApproval, 9))

	tracker := NewTracker(orders, txs, &fakeReceipts{receipts: map[string]*chain.Receipt{}}, &recordingNotifier{}, 10, zap.NewNop())
	if err := tracker.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := findTx(t, txs, "tx-1").Status; got != model.TxStatusFailed {
		t.Errorf("transaction status = %s, want %s", got, model.TxStatusFailed)
	}
	if got := orders.get("order-1").Status; got != model.StatusExpired {
		t.Errorf("order status = %s, want %s", got, model.StatusExpired)
	}
}

func TestTrackerConfirmedWrapLeavesOrderAlone(t *testing.T) {
	order := limitOrder("order-1", testEth, testUsdc, "1", "1800")
	order.Status = model.StatusExecutionPending
	orders := newFakeOrderStore(order)

	txs := &fakeTransactionStore{}
	txs.CreateTransaction(context.Background(), pendingTx("tx-1", "order-1", "0xwrap", model.TxTypeDeposit, 0))

	receipts := &fakeReceipts{receipts: map[string]*chain.Receipt{
		"0xwrap": {Confirmed: true, FeeWei: big.NewInt(1)},
	}}

	tracker := NewTracker(orders, txs, receipts, &recordingNotifier{}, 10, zap.NewNop())
	if err := tracker.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := findTx(t, txs, "tx-1").Status; got != model.TxStatusConfirmed {
		t.Errorf("transaction status = %s, want %s", got, model.TxStatusConfirmed)
	}
	if got := orders.get("order-1").Status; got != model.StatusExecutionPending {
		t.Errorf("order status = %s, want %s", got, model.StatusExecutionPending)
	}
}
