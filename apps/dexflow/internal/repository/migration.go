package repository

import (
	"database/sql"
	"fmt"
)

// InitMigration initializes the database. In production, this would use a proper migration
// library like go-migrate
func InitMigration(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS wallets (
			wallet_id UUID PRIMARY KEY,
			address VARCHAR(42) NOT NULL,
			encrypted_private_key TEXT NOT NULL,
			chain_id BIGINT NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			UNIQUE(address, chain_id)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			order_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			wallet_id UUID NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			chain_id BIGINT NOT NULL,
			order_type VARCHAR(10) NOT NULL,
			order_mode VARCHAR(4) NOT NULL,
			buy_token_symbol VARCHAR(20) NOT NULL,
			buy_token_address VARCHAR(42) NOT NULL,
			buy_token_decimals INTEGER NOT NULL,
			sell_token_symbol VARCHAR(20) NOT NULL,
			sell_token_address VARCHAR(42) NOT NULL,
			sell_token_decimals INTEGER NOT NULL,
			buy_amount DECIMAL(78,18) NOT NULL DEFAULT 0,
			sell_amount DECIMAL(78,18) NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL,
			target_price DECIMAL(78,18),
			min_price DECIMAL(78,18),
			max_price DECIMAL(78,18),
			interval_minutes INTEGER,
			interval_hours INTEGER,
			duration_minutes INTEGER,
			expiration_date TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_type_status ON orders (order_type, status)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			transaction_id UUID PRIMARY KEY,
			order_id UUID,
			wallet_id UUID NOT NULL,
			from_address VARCHAR(42) NOT NULL,
			to_address VARCHAR(42) NOT NULL,
			tx_hash VARCHAR(66) NOT NULL,
			transaction_type VARCHAR(10) NOT NULL,
			transaction_status VARCHAR(10) NOT NULL DEFAULT 'pending',
			transaction_fee DECIMAL(78,18),
			poll_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE(tx_hash)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions (transaction_status)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_order ON transactions (order_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}

	return nil
}
