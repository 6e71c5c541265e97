package model

import (
	"time"
)

type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
	OrderTypeDca    OrderType = "dca"
)

type OrderMode string

const (
	OrderModeBuy  OrderMode = "buy"
	OrderModeSell OrderMode = "sell"
)

type OrderStatus string

const (
	StatusSubmitted         OrderStatus = "submitted"
	StatusApprovalPending   OrderStatus = "approval_pending"
	StatusApprovalCompleted OrderStatus = "approval_completed"
	StatusExecutionReady    OrderStatus = "execution_ready"
	StatusExecutionPending  OrderStatus = "execution_pending"
	StatusCompleted         OrderStatus = "completed"
	StatusDcaExecuted       OrderStatus = "dca_executed"
	StatusActive            OrderStatus = "active"
	StatusFailed            OrderStatus = "failed"
	StatusExpired           OrderStatus = "expired"
)

// Token describes one side of a trading pair. Amounts elsewhere stay as
// decimal strings until a stage converts them to base units.
type Token struct {
	Symbol          string `db:"symbol"`
	ChainID         int64  `db:"chain_id"`
	ContractAddress string `db:"contract_address"`
	Decimals        int    `db:"decimals"`
}

type Order struct {
	OrderID    string      `db:"order_id"`
	WalletID   string      `db:"wallet_id"`
	UserID     string      `db:"user_id"`
	ChainID    int64       `db:"chain_id"`
	OrderType  OrderType   `db:"order_type"`
	OrderMode  OrderMode   `db:"order_mode"`
	BuyToken   Token       `db:"buy_token"`
	SellToken  Token       `db:"sell_token"`
	BuyAmount  string      `db:"buy_amount"`
	SellAmount string      `db:"sell_amount"`
	Status     OrderStatus `db:"status"`

	// Limit orders only.
	TargetPrice *string `db:"target_price"`

	// Dca orders only. IntervalHours takes precedence over IntervalMinutes
	// when both are set.
	MinPrice        *string `db:"min_price"`
	MaxPrice        *string `db:"max_price"`
	IntervalMinutes *int    `db:"interval_minutes"`
	IntervalHours   *int    `db:"interval_hours"`
	DurationMinutes *int    `db:"duration_minutes"`

	ExpirationDate *time.Time `db:"expiration_date"` // nil = never expires
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// OrderFilter narrows order listings. Nil fields match everything.
type OrderFilter struct {
	OrderType   *OrderType
	OrderStatus *OrderStatus
}

// EffectiveIntervalMinutes returns the Dca tick interval in minutes. The
// hours field wins over the minutes field when both are populated.
func (o *Order) EffectiveIntervalMinutes() int {
	if o.IntervalHours != nil && *o.IntervalHours > 0 {
		return *o.IntervalHours * 60
	}
	if o.IntervalMinutes != nil {
		return *o.IntervalMinutes
	}
	return 0
}
