package test

import (
	"time"
)

const (
	// Test server configuration
	BaseURL = "http://localhost:8080"

	// Test identities; the wallet must exist in the target database
	TestUserID   = "user-itest"
	TestWalletID = "wallet-itest"

	// Test wallet address (example address)
	TestWalletAddress = "0x0B8fA6F76eB75ae3a4ca28eb3020DFC4503F2136"

	// Test order parameters
	TestSellToken  = "USDC"
	TestBuyToken   = "WETH"
	TestSellAmount = "100"
	TestTargetRate = "1800"
)

// CreateOrderRequest represents the request body for submitting an order
type CreateOrderRequest struct {
	UserID          string     `json:"user_id"`
	WalletID        string     `json:"wallet_id"`
	OrderType       string     `json:"order_type"`
	OrderMode       string     `json:"order_mode"`
	SellTokenSymbol string     `json:"sell_token_symbol"`
	BuyTokenSymbol  string     `json:"buy_token_symbol"`
	SellAmount      string     `json:"sell_amount"`
	TargetPrice     *string    `json:"target_price,omitempty"`
	MinPrice        *string    `json:"min_price,omitempty"`
	MaxPrice        *string    `json:"max_price,omitempty"`
	IntervalMinutes *int       `json:"interval_minutes,omitempty"`
	IntervalHours   *int       `json:"interval_hours,omitempty"`
	ExpirationDate  *time.Time `json:"expiration_date,omitempty"`
}

// OrderResponse represents the API response for order information
type OrderResponse struct {
	OrderID         string     `json:"order_id"`
	WalletID        string     `json:"wallet_id"`
	UserID          string     `json:"user_id"`
	OrderType       string     `json:"order_type"`
	OrderMode       string     `json:"order_mode"`
	SellTokenSymbol string     `json:"sell_token_symbol"`
	BuyTokenSymbol  string     `json:"buy_token_symbol"`
	SellAmount      string     `json:"sell_amount"`
	BuyAmount       string     `json:"buy_amount,omitempty"`
	Status          string     `json:"status"`
	TargetPrice     *string    `json:"target_price,omitempty"`
	ExpirationDate  *time.Time `json:"expiration_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// TransactionResponse represents the API response for transaction information
type TransactionResponse struct {
	TransactionID string  `json:"transaction_id"`
	OrderID       *string `json:"order_id,omitempty"`
	TxHash        string  `json:"tx_hash"`
	Type          string  `json:"type"`
	Status        string  `json:"status"`
	Fee           *string `json:"fee,omitempty"`
}

// BalanceResponse represents the API response for wallet balance information
type BalanceResponse struct {
	WalletAddress string                  `json:"wallet_address"`
	Balances      map[string]TokenBalance `json:"balances"`
}

// TokenBalance represents balance information for a specific token
type TokenBalance struct {
	Balance  string `json:"balance"`
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
}

// QuoteResponse represents the API response for a pair quote
type QuoteResponse struct {
	BaseSymbol    string `json:"base_symbol"`
	CounterSymbol string `json:"counter_symbol"`
	PairAddress   string `json:"pair_address"`
	Price         string `json:"price"`
}

// ErrorResponse represents the API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
