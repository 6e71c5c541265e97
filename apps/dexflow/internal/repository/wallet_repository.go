package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"dexflow/apps/dexflow/internal/model"
)

type WalletRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewWalletRepository(db *sql.DB, logger *zap.Logger) *WalletRepository {
	return &WalletRepository{db: db, logger: logger}
}

func (r *WalletRepository) GetWallet(ctx context.Context, walletID string) (*model.Wallet, error) {
	var wallet model.Wallet
	err := r.db.QueryRowContext(ctx, `
		SELECT wallet_id, address, encrypted_private_key, chain_id, user_id
		FROM wallets
		WHERE wallet_id = $1
	`, walletID).Scan(&wallet.WalletID, &wallet.Address, &wallet.EncryptedPrivateKey, &wallet.ChainID, &wallet.UserID)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return &wallet, nil
}

func (r *WalletRepository) ListWalletsByUser(ctx context.Context, userID string) ([]model.Wallet, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT wallet_id, address, encrypted_private_key, chain_id, user_id
		FROM wallets
		WHERE user_id = $1
		ORDER BY wallet_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []model.Wallet
	for rows.Next() {
		var wallet model.Wallet
		if err := rows.Scan(&wallet.WalletID, &wallet.Address, &wallet.EncryptedPrivateKey, &wallet.ChainID, &wallet.UserID); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, wallet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallets: %w", err)
	}

	return wallets, nil
}
