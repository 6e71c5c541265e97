package stage

import (
	"context"

	"github.com/shopspring/decimal"

	"dexflow/apps/dexflow/internal/chain"
	"dexflow/apps/dexflow/internal/model"
	"dexflow/apps/dexflow/internal/oracle"
)

// The stages depend on narrow interfaces rather than concrete clients so
// each collaborator can be swapped independently (and faked in tests).

// OrderStore is the persisted order state the pipeline coordinates through.
type OrderStore interface {
	ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)
	ListOrdersByIDs(ctx context.Context, ids []string) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error
	UpdateOrderBuyAmount(ctx context.Context, orderID string, buyAmount string) error
	BulkUpdateOrderStatus(ctx context.Context, status model.OrderStatus, ids []string) error
}

// TransactionStore persists broadcast transactions for the tracker.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx model.Transaction) error
	ListPendingTransactions(ctx context.Context) ([]model.Transaction, error)
	BulkUpdateTransactions(ctx context.Context, updates []model.TransactionUpdate) error
}

// WalletStore resolves order wallets. Read-only.
type WalletStore interface {
	GetWallet(ctx context.Context, walletID string) (*model.Wallet, error)
}

// ChainReader reads on-chain ERC20 state.
type ChainReader interface {
	BalanceOf(ctx context.Context, token model.Token, owner string) (decimal.Decimal, error)
	Allowance(ctx context.Context, token model.Token, owner, spender string) (decimal.Decimal, error)
}

// TxSubmitter signs and broadcasts prepared transactions. A chain.ErrTxRejected
// wrapped in the returned error marks a terminal failure.
type TxSubmitter interface {
	Submit(ctx context.Context, wallet *model.Wallet, tx chain.PreparedTx) (chain.SubmitResult, error)
}

// MarketOracle quotes pairs and generates executable swap routes.
type MarketOracle interface {
	ResolvePair(ctx context.Context, a, b model.Token) (string, error)
	QuoteOneUnit(ctx context.Context, base, quote model.Token) (decimal.Decimal, error)
	GenerateRoute(ctx context.Context, tokenIn, tokenOut model.Token, amountIn decimal.Decimal, recipient string) (*oracle.Route, error)
}

// ReceiptSource polls for mined transaction receipts. A nil receipt with a
// nil error means not mined yet.
type ReceiptSource interface {
	GetReceipt(ctx context.Context, txHash string) (*chain.Receipt, error)
}

// Notifier delivers best-effort user updates; failures never propagate.
type Notifier interface {
	Notify(userID, orderID, status, message string)
}
