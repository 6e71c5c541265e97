package model

import (
	"time"
)

type TransactionType string

const (
	TxTypeApproval TransactionType = "approval"
	TxTypeSwap     TransactionType = "swap"
	TxTypeDeposit  TransactionType = "deposit"
	TxTypeWithdraw TransactionType = "withdraw"
)

type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusConfirmed TransactionStatus = "confirmed"
	TxStatusFailed    TransactionStatus = "failed"
)

// TransactionUpdate is one settled tracker outcome. A nil Fee leaves the
// stored fee untouched.
type TransactionUpdate struct {
	TransactionID string
	Status        TransactionStatus
	Fee           *string
	PollCount     int
}

type Transaction struct {
	TransactionID string            `db:"transaction_id"`
	OrderID       *string           `db:"order_id"` // nil for plain transfers
	WalletID      string            `db:"wallet_id"`
	FromAddress   string            `db:"from_address"`
	ToAddress     string            `db:"to_address"`
	TxHash        string            `db:"tx_hash"`
	Type          TransactionType   `db:"transaction_type"`
	Status        TransactionStatus `db:"transaction_status"`
	Fee           *string           `db:"transaction_fee"` // set on confirmation
	PollCount     int               `db:"poll_count"`
	CreatedAt     time.Time         `db:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at"`
}
