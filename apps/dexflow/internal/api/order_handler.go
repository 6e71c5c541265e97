package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dexflow/apps/dexflow/internal/model"
	"dexflow/apps/dexflow/internal/repository"
	"dexflow/apps/dexflow/internal/tokens"
)

// OrderHandler handles order-related API endpoints
type OrderHandler struct {
	orderRepository       *repository.OrderRepository
	transactionRepository *repository.TransactionRepository
	walletRepository      *repository.WalletRepository
	registry              *tokens.Registry
	logger                *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(
	orderRepository *repository.OrderRepository,
	transactionRepository *repository.TransactionRepository,
	walletRepository *repository.WalletRepository,
	registry *tokens.Registry,
	logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderRepository:       orderRepository,
		transactionRepository: transactionRepository,
		walletRepository:      walletRepository,
		registry:              registry,
		logger:                logger,
	}
}

// CreateOrder handles POST /api/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_request_body", "Invalid JSON in request body")
		return
	}

	order, errCode, errMsg := h.buildOrder(r, req)
	if errCode != "" {
		h.writeErrorResponse(w, http.StatusBadRequest, errCode, errMsg)
		return
	}

	if err := h.orderRepository.CreateOrder(r.Context(), *order); err != nil {
		h.logger.Error("Failed to create order", zap.Error(err))
		h.writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to create order")
		return
	}

	h.logger.Info("Accepted order",
		zap.String("order_id", order.OrderID),
		zap.String("order_type", string(order.OrderType)),
		zap.String("pair", order.SellToken.Symbol+"/"+order.BuyToken.Symbol))

	h.writeJSONResponse(w, http.StatusCreated, toOrderResponse(*order))
}

// buildOrder validates a create request and assembles the order it describes.
// A non-empty error code means the request was rejected.
func (h *OrderHandler) buildOrder(r *http.Request, req CreateOrderRequest) (*model.Order, string, string) {
	if req.UserID == "" || req.WalletID == "" {
		return nil, "missing_identity", "user_id and wallet_id are required"
	}

	orderType := model.OrderType(strings.ToLower(req.OrderType))
	switch orderType {
	case model.OrderTypeMarket, model.OrderTypeLimit, model.OrderTypeDca:
	default:
		return nil, "invalid_order_type", "Order type must be market, limit, or dca"
	}

	orderMode := model.OrderMode(strings.ToLower(req.OrderMode))
	if orderMode != model.OrderModeBuy && orderMode != model.OrderModeSell {
		return nil, "invalid_order_mode", "Order mode must be buy or sell"
	}

	sellToken, exists := h.registry.GetBySymbol(req.SellTokenSymbol)
	if !exists {
		return nil, "unsupported_sell_token", "Sell token is not supported"
	}
	buyToken, exists := h.registry.GetBySymbol(req.BuyTokenSymbol)
	if !exists {
		return nil, "unsupported_buy_token", "Buy token is not supported"
	}
	if strings.EqualFold(sellToken.Symbol, buyToken.Symbol) {
		return nil, "invalid_pair", "Sell and buy tokens must differ"
	}

	sellAmount, err := decimal.NewFromString(req.SellAmount)
	if err != nil || !sellAmount.IsPositive() {
		return nil, "invalid_sell_amount", "Sell amount must be a positive decimal"
	}

	switch orderType {
	case model.OrderTypeLimit:
		if req.TargetPrice == nil {
			return nil, "missing_target_price", "Limit orders require a target price"
		}
		if target, err := decimal.NewFromString(*req.TargetPrice); err != nil || !target.IsPositive() {
			return nil, "invalid_target_price", "Target price must be a positive decimal"
		}
	case model.OrderTypeDca:
		if req.MinPrice == nil || req.MaxPrice == nil {
			return nil, "missing_price_band", "Dca orders require min and max price"
		}
		minPrice, err := decimal.NewFromString(*req.MinPrice)
		if err != nil {
			return nil, "invalid_min_price", "Min price must be a decimal"
		}
		maxPrice, err := decimal.NewFromString(*req.MaxPrice)
		if err != nil {
			return nil, "invalid_max_price", "Max price must be a decimal"
		}
		if maxPrice.LessThan(minPrice) {
			return nil, "invalid_price_band", "Max price must not be below min price"
		}
		if hasInterval := (req.IntervalMinutes != nil && *req.IntervalMinutes > 0) ||
			(req.IntervalHours != nil && *req.IntervalHours > 0); !hasInterval {
			return nil, "missing_interval", "Dca orders require a positive interval"
		}
	}

	wallet, err := h.walletRepository.GetWallet(r.Context(), req.WalletID)
	if err != nil {
		h.logger.Error("Failed to look up wallet", zap.String("wallet_id", req.WalletID), zap.Error(err))
		return nil, "database_error", "Failed to look up wallet"
	}
	if wallet == nil {
		return nil, "wallet_not_found", "Wallet not found"
	}
	if wallet.UserID != req.UserID {
		return nil, "wallet_not_owned", "Wallet does not belong to user"
	}

	return &model.Order{
		OrderID:         uuid.New().String(),
		WalletID:        req.WalletID,
		UserID:          req.UserID,
		ChainID:         wallet.ChainID,
		OrderType:       orderType,
		OrderMode:       orderMode,
		BuyToken:        *buyToken,
		SellToken:       *sellToken,
		SellAmount:      sellAmount.String(),
		Status:          model.StatusSubmitted,
		TargetPrice:     req.TargetPrice,
		MinPrice:        req.MinPrice,
		MaxPrice:        req.MaxPrice,
		IntervalMinutes: req.IntervalMinutes,
		IntervalHours:   req.IntervalHours,
		DurationMinutes: req.DurationMinutes,
		ExpirationDate:  req.ExpirationDate,
	}, "", ""
}

// ListOrders handles GET /api/orders with optional status and type filters
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var filter model.OrderFilter
	if v := r.URL.Query().Get("status"); v != "" {
		status := model.OrderStatus(strings.ToLower(v))
		filter.OrderStatus = &status
	}
	if v := r.URL.Query().Get("type"); v != "" {
		orderType := model.OrderType(strings.ToLower(v))
		filter.OrderType = &orderType
	}

	orders, err := h.orderRepository.ListOrders(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		h.writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to list orders")
		return
	}

	responses := make([]OrderResponse, len(orders))
	for i, order := range orders {
		responses[i] = toOrderResponse(order)
	}
	h.writeJSONResponse(w, http.StatusOK, responses)
}

// GetOrder handles GET /api/orders/{order_id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orderID := vars["order_id"]

	order, err := h.orderRepository.GetOrderByID(r.Context(), orderID)
	if err != nil {
		h.logger.Error("Failed to get order", zap.String("order_id", orderID), zap.Error(err))
		h.writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to retrieve order")
		return
	}
	if order == nil {
		h.writeErrorResponse(w, http.StatusNotFound, "order_not_found", "Order not found")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, toOrderResponse(*order))
}

// GetOrderTransactions handles GET /api/orders/{order_id}/transactions
func (h *OrderHandler) GetOrderTransactions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orderID := vars["order_id"]

	order, err := h.orderRepository.GetOrderByID(r.Context(), orderID)
	if err != nil {
		h.logger.Error("Failed to get order", zap.String("order_id", orderID), zap.Error(err))
		h.writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to retrieve order")
		return
	}
	if order == nil {
		h.writeErrorResponse(w, http.StatusNotFound, "order_not_found", "Order not found")
		return
	}

	txs, err := h.transactionRepository.ListTransactionsByOrderID(r.Context(), orderID)
	if err != nil {
		h.logger.Error("Failed to list order transactions", zap.String("order_id", orderID), zap.Error(err))
		h.writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to list transactions")
		return
	}

	responses := make([]TransactionResponse, len(txs))
	for i, tx := range txs {
		responses[i] = TransactionResponse{
			TransactionID: tx.TransactionID,
			OrderID:       tx.OrderID,
			FromAddress:   tx.FromAddress,
			ToAddress:     tx.ToAddress,
			TxHash:        tx.TxHash,
			Type:          string(tx.Type),
			Status:        string(tx.Status),
			Fee:           tx.Fee,
			CreatedAt:     tx.CreatedAt,
		}
	}
	h.writeJSONResponse(w, http.StatusOK, responses)
}

func toOrderResponse(order model.Order) OrderResponse {
	return OrderResponse{
		OrderID:         order.OrderID,
		WalletID:        order.WalletID,
		UserID:          order.UserID,
		OrderType:       string(order.OrderType),
		OrderMode:       string(order.OrderMode),
		SellTokenSymbol: order.SellToken.Symbol,
		BuyTokenSymbol:  order.BuyToken.Symbol,
		SellAmount:      order.SellAmount,
		BuyAmount:       order.BuyAmount,
		Status:          string(order.Status),
		TargetPrice:     order.TargetPrice,
		MinPrice:        order.MinPrice,
		MaxPrice:        order.MaxPrice,
		IntervalMinutes: order.IntervalMinutes,
		IntervalHours:   order.IntervalHours,
		ExpirationDate:  order.ExpirationDate,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

// writeJSONResponse writes a JSON response with the specified status code
func (h *OrderHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeErrorResponse writes an error response
func (h *OrderHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	errorResponse := ErrorResponse{
		Error:   errorCode,
		Message: message,
	}
	h.writeJSONResponse(w, statusCode, errorResponse)
}
