package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"dexflow/apps/dexflow/internal/oracle"
	"dexflow/apps/dexflow/internal/tokens"
)

// QuoteHandler serves live pair quotes from the router
type QuoteHandler struct {
	oracle   *oracle.RouterOracle
	registry *tokens.Registry
	logger   *zap.Logger
}

// NewQuoteHandler creates a new QuoteHandler
func NewQuoteHandler(routerOracle *oracle.RouterOracle, registry *tokens.Registry, logger *zap.Logger) *QuoteHandler {
	return &QuoteHandler{
		oracle:   routerOracle,
		registry: registry,
		logger:   logger,
	}
}

// GetQuote handles GET /api/quote?base=&counter=
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	baseSymbol := r.URL.Query().Get("base")
	counterSymbol := r.URL.Query().Get("counter")
	if baseSymbol == "" || counterSymbol == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "missing_pair", "base and counter query parameters are required")
		return
	}

	base, exists := h.registry.GetBySymbol(baseSymbol)
	if !exists {
		h.writeErrorResponse(w, http.StatusBadRequest, "unsupported_base", "Base token is not supported")
		return
	}
	counter, exists := h.registry.GetBySymbol(counterSymbol)
	if !exists {
		h.writeErrorResponse(w, http.StatusBadRequest, "unsupported_counter", "Counter token is not supported")
		return
	}

	baseToken := h.registry.ForSwap(*base)
	counterToken := h.registry.ForSwap(*counter)

	pair, err := h.oracle.ResolvePair(r.Context(), baseToken, counterToken)
	if err != nil {
		if errors.Is(err, oracle.ErrNoRoute) {
			h.writeErrorResponse(w, http.StatusNotFound, "no_route", "No pool exists for this pair")
			return
		}
		h.logger.Error("Failed to resolve pair",
			zap.String("base", base.Symbol),
			zap.String("counter", counter.Symbol),
			zap.Error(err))
		h.writeErrorResponse(w, http.StatusInternalServerError, "quote_error", "Failed to resolve pair")
		return
	}

	price, err := h.oracle.QuoteOneUnit(r.Context(), baseToken, counterToken)
	if err != nil {
		h.logger.Error("Failed to quote pair",
			zap.String("base", base.Symbol),
			zap.String("counter", counter.Symbol),
			zap.Error(err))
		h.writeErrorResponse(w, http.StatusInternalServerError, "quote_error", "Failed to quote pair")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, QuoteResponse{
		BaseSymbol:    base.Symbol,
		CounterSymbol: counter.Symbol,
		PairAddress:   pair,
		Price:         price.String(),
	})
}

// writeJSONResponse writes a JSON response with the specified status code
func (h *QuoteHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeErrorResponse writes an error response
func (h *QuoteHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	errorResponse := ErrorResponse{
		Error:   errorCode,
		Message: message,
	}
	h.writeJSONResponse(w, statusCode, errorResponse)
}
