package api

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"dexflow/apps/dexflow/internal/chain"
	"dexflow/apps/dexflow/internal/tokens"
)

// BalanceHandler handles balance-related API endpoints
type BalanceHandler struct {
	reader   *chain.Reader
	registry *tokens.Registry
	logger   *zap.Logger
}

// NewBalanceHandler creates a new BalanceHandler
func NewBalanceHandler(reader *chain.Reader, registry *tokens.Registry, logger *zap.Logger) *BalanceHandler {
	return &BalanceHandler{
		reader:   reader,
		registry: registry,
		logger:   logger,
	}
}

// GetBalance handles GET /api/balance/{wallet_address}
func (h *BalanceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	walletAddress := vars["wallet_address"]

	if !common.IsHexAddress(walletAddress) {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_wallet_address", "Invalid Ethereum address format")
		return
	}

	balances := make(map[string]TokenBalance)
	for _, token := range h.registry.GetAll() {
		// The native pseudo-token reads its wrapped contract's balance.
		queried := h.registry.ForSwap(token)

		balance, err := h.reader.BalanceOf(r.Context(), queried, walletAddress)
		if err != nil {
			h.logger.Error("Failed to get token balance",
				zap.String("token", token.Symbol),
				zap.String("address", walletAddress),
				zap.Error(err))
			// Continue with other tokens instead of failing completely
			balances[token.Symbol] = TokenBalance{
				Balance:  "0",
				Symbol:   token.Symbol,
				Address:  queried.ContractAddress,
				Decimals: token.Decimals,
			}
			continue
		}

		balances[token.Symbol] = TokenBalance{
			Balance:  balance.String(),
			Symbol:   token.Symbol,
			Address:  queried.ContractAddress,
			Decimals: token.Decimals,
		}
	}

	response := BalanceResponse{
		WalletAddress: walletAddress,
		Balances:      balances,
	}

	h.logger.Info("Retrieved wallet balances",
		zap.String("wallet_address", walletAddress),
		zap.Int("token_count", len(balances)))

	h.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response with the specified status code
func (h *BalanceHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeErrorResponse writes an error response
func (h *BalanceHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	errorResponse := ErrorResponse{
		Error:   errorCode,
		Message: message,
	}
	h.writeJSONResponse(w, statusCode, errorResponse)
}
