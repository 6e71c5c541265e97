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
	"dexflow/apps/dexflow/internal/model"
	"dexflow/apps/dexflow/internal/oracle"
	"dexflow/apps/dexflow/internal/tokens"
)

// swapExecutor is the shared route-and-submit path: the execution stage uses
// it for limit and market orders, the criteria stage inlines it for dca
// ticks.
type swapExecutor struct {
	orders    OrderStore
	txs       TransactionStore
	wallets   WalletStore
	submitter TxSubmitter
	oracle    MarketOracle
	registry  *tokens.Registry
	logger    *zap.Logger
}

// swapOutcome reports a successfully broadcast swap.
type swapOutcome struct {
	TxHash      string
	RealizedBuy decimal.Decimal
}

// execute wraps the native sell asset if needed, generates a route for the
// order's pair, and broadcasts it. Transient and route failures leave the
// order's status for the caller to keep unchanged; terminal failures are
// reported for escalation.
func (e *swapExecutor) execute(ctx context.Context, order model.Order, octx *batch.OrderContext) (swapOutcome, *batch.StageError) {
	wallet := octx.Wallet
	if wallet == nil {
		var err error
		wallet, err = e.wallets.GetWallet(ctx, order.WalletID)
		if err != nil {
			return swapOutcome{}, batch.Transient(order.OrderID, err)
		}
		if wallet == nil {
			return swapOutcome{}, batch.Terminal(order.OrderID, fmt.Errorf("wallet %s not found", order.WalletID))
		}
		octx.Wallet = wallet
	}

	sellAmount, err := decimal.NewFromString(order.SellAmount)
	if err != nil {
		return swapOutcome{}, batch.Terminal(order.OrderID, fmt.Errorf("malformed sell amount %q: %w", order.SellAmount, err))
	}

	// Buying with the native asset: wrap it first so the router sees an
	// ERC20 on the sell side.
	if order.OrderMode == model.OrderModeBuy && e.registry.IsNative(order.SellToken) {
		if stageErr := e.wrapNative(ctx, order, wallet, sellAmount); stageErr != nil {
			return swapOutcome{}, stageErr
		}
	}

	tokenIn := e.registry.ForSwap(order.SellToken)
	tokenOut := e.registry.ForSwap(order.BuyToken)

	route, err := e.oracle.GenerateRoute(ctx, tokenIn, tokenOut, sellAmount, wallet.Address)
	if err != nil {
		if errors.Is(err, oracle.ErrNoRoute) {
			return swapOutcome{}, batch.RouteUnavailable(order.OrderID, err)
		}
		return swapOutcome{}, batch.Transient(order.OrderID, err)
	}
	octx.Route = route

	result, err := e.submitter.Submit(ctx, wallet, route.Tx)
	if err != nil {
		if errors.Is(err, chain.ErrTxRejected) {
			return swapOutcome{}, batch.Terminal(order.OrderID, err)
		}
		return swapOutcome{}, batch.Transient(order.OrderID, err)
	}

	// Selling into the native asset leaves wrapped output to unwrap; the
	// recorded transaction type distinguishes the two shapes.
	txType := model.TxTypeSwap
	if order.OrderMode == model.OrderModeSell && e.registry.IsNative(order.BuyToken) {
		txType = model.TxTypeWithdraw
		if stageErr := e.unwrapNative(ctx, order, wallet, route); stageErr != nil {
			// The swap itself landed; keep going and let the tracker
			// settle it. The wrapped balance stays spendable.
			e.logger.Warn("Failed to unwrap native output",
				zap.String("order_id", order.OrderID),
				zap.String("error", stageErr.Error()))
		}
	}

	orderID := order.OrderID
	if err := e.txs.CreateTransaction(ctx, model.Transaction{
		TransactionID: uuid.New().String(),
		OrderID:       &orderID,
		WalletID:      wallet.WalletID,
		FromAddress:   wallet.Address,
		ToAddress:     result.To,
		TxHash:        result.Hash,
		Type:          txType,
		Status:        model.TxStatusPending,
	}); err != nil {
		e.logger.Error("Failed to record swap transaction",
			zap.String("order_id", order.OrderID),
			zap.String("tx_hash", result.Hash),
			zap.Error(err))
	}

	if err := e.orders.UpdateOrderBuyAmount(ctx, order.OrderID, route.ExpectedOut.String()); err != nil {
		e.logger.Error("Failed to record realized buy amount",
			zap.String("order_id", order.OrderID),
			zap.Error(err))
	}

	return swapOutcome{TxHash: result.Hash, RealizedBuy: route.ExpectedOut}, nil
}

func (e *swapExecutor) wrapNative(ctx context.Context, order model.Order, wallet *model.Wallet, amount decimal.Decimal) *batch.StageError {
	amountBase, err := chain.ToBaseUnits(amount.String(), order.SellToken.Decimals)
	if err != nil {
		return batch.Terminal(order.OrderID, err)
	}

	wrapTx, err := chain.BuildWrap(e.registry.WrappedNativeAddress(), amountBase)
	if err != nil {
		return batch.Transient(order.OrderID, err)
	}

	result, err := e.submitter.Submit(ctx, wallet, wrapTx)
	if err != nil {
		if errors.Is(err, chain.ErrTxRejected) {
			return batch.Terminal(order.OrderID, err)
		}
		return batch.Transient(order.OrderID, err)
	}

	orderID := order.OrderID
	if err := e.txs.CreateTransaction(ctx, model.Transaction{
		TransactionID: uuid.New().String(),
		OrderID:       &orderID,
		WalletID:      wallet.WalletID,
		FromAddress:   wallet.Address,
		ToAddress:     result.To,
		TxHash:        result.Hash,
		Type:          model.TxTypeDeposit,
		Status:        model.TxStatusPending,
	}); err != nil {
		e.logger.Error("Failed to record wrap transaction",
			zap.String("order_id", order.OrderID),
			zap.Error(err))
	}
	return nil
}

func (e *swapExecutor) unwrapNative(ctx context.Context, order model.Order, wallet *model.Wallet, route *oracle.Route) *batch.StageError {
	unwrapTx, err := chain.BuildUnwrap(e.registry.WrappedNativeAddress(), route.AmountOutMin)
	if err != nil {
		return batch.Transient(order.OrderID, err)
	}

	if _, err := e.submitter.Submit(ctx, wallet, unwrapTx); err != nil {
		if errors.Is(err, chain.ErrTxRejected) {
			return batch.Terminal(order.OrderID, err)
		}
		return batch.Transient(order.OrderID, err)
	}
	return nil
}
