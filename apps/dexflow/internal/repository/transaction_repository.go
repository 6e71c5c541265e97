package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"dexflow/apps/dexflow/internal/model"
)

const transactionColumns = `transaction_id, order_id, wallet_id, from_address, to_address,
		tx_hash, transaction_type, transaction_status, transaction_fee, poll_count, created_at, updated_at`

type TransactionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewTransactionRepository(db *sql.DB, logger *zap.Logger) *TransactionRepository {
	return &TransactionRepository{db: db, logger: logger}
}

func (r *TransactionRepository) CreateTransaction(ctx context.Context, tx model.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (transaction_id, order_id, wallet_id, from_address, to_address,
			tx_hash, transaction_type, transaction_status, transaction_fee, poll_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`, tx.TransactionID, tx.OrderID, tx.WalletID, tx.FromAddress, tx.ToAddress,
		tx.TxHash, tx.Type, tx.Status, tx.Fee, tx.PollCount)

	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	r.logger.Info("Created transaction",
		zap.String("transaction_id", tx.TransactionID),
		zap.String("tx_hash", tx.TxHash),
		zap.String("type", string(tx.Type)),
		zap.String("status", string(tx.Status)))
	return nil
}

func (r *TransactionRepository) ListPendingTransactions(ctx context.Context) ([]model.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE transaction_status = $1
		ORDER BY created_at
	`, model.TxStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func (r *TransactionRepository) ListTransactionsByOrderID(ctx context.Context, orderID string) ([]model.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE order_id = $1
		ORDER BY created_at
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions by order: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// BulkUpdateTransactions applies tracker outcomes in one database
// transaction so a sweep's writes land together.
func (r *TransactionRepository) BulkUpdateTransactions(ctx context.Context, updates []model.TransactionUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin bulk transaction update: %w", err)
	}
	defer tx.Rollback() // Will be ignored if tx.Commit() succeeds

	for _, u := range updates {
		_, err := tx.ExecContext(ctx, `
			UPDATE transactions
			SET transaction_status = $1,
				transaction_fee = COALESCE($2, transaction_fee),
				poll_count = $3,
				updated_at = NOW()
			WHERE transaction_id = $4
		`, u.Status, u.Fee, u.PollCount, u.TransactionID)
		if err != nil {
			return fmt.Errorf("failed to update transaction %s: %w", u.TransactionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bulk transaction update: %w", err)
	}

	r.logger.Info("Bulk updated transactions", zap.Int("count", len(updates)))
	return nil
}

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var txs []model.Transaction
	for rows.Next() {
		var tx model.Transaction
		if err := rows.Scan(&tx.TransactionID, &tx.OrderID, &tx.WalletID, &tx.FromAddress, &tx.ToAddress,
			&tx.TxHash, &tx.Type, &tx.Status, &tx.Fee, &tx.PollCount, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txs, nil
}
