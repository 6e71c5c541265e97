package stage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dexflow/apps/dexflow/internal/lifecycle"
	"dexflow/apps/dexflow/internal/model"
)

// ExpiryMonitor expires orders whose expiration date has passed before they
// reached execution. Orders already executing or settled are never expired.
// Orders without an expiration date live forever unless expireUndated is set.
type ExpiryMonitor struct {
	orders        OrderStore
	notifier      Notifier
	expireUndated bool
	logger        *zap.Logger
	now           func() time.Time
}

func NewExpiryMonitor(orders OrderStore, notifier Notifier, expireUndated bool, logger *zap.Logger) *ExpiryMonitor {
	return &ExpiryMonitor{
		orders:        orders,
		notifier:      notifier,
		expireUndated: expireUndated,
		logger:        logger,
		now:           time.Now,
	}
}

func (m *ExpiryMonitor) Name() string { return "expiry" }

func (m *ExpiryMonitor) Run(ctx context.Context) error {
	orders, err := m.orders.ListOrders(ctx, model.OrderFilter{})
	if err != nil {
		return fmt.Errorf("failed to fetch orders for expiry sweep: %w", err)
	}

	now := m.now()
	var expired []model.Order
	for _, order := range orders {
		if m.isExpired(order, now) {
			expired = append(expired, order)
		}
	}
	if len(expired) == 0 {
		return nil
	}

	ids := make([]string, len(expired))
	for i, order := range expired {
		ids[i] = order.OrderID
	}
	if err := m.orders.BulkUpdateOrderStatus(ctx, model.StatusExpired, ids); err != nil {
		return fmt.Errorf("failed to expire orders: %w", err)
	}

	for _, order := range expired {
		m.notifier.Notify(order.UserID, order.OrderID, string(model.StatusExpired),
			fmt.Sprintf("Your %s order %s/%s expired without executing", order.OrderType, order.SellToken.Symbol, order.BuyToken.Symbol))
	}

	m.logger.Info("Expiry sweep complete",
		zap.Int("scanned", len(orders)),
		zap.Int("expired", len(expired)))
	return nil
}

func (m *ExpiryMonitor) isExpired(order model.Order, now time.Time) bool {
	if !lifecycle.CanTransition(order.Status, model.StatusExpired) {
		return false
	}
	if order.ExpirationDate == nil {
		return m.expireUndated
	}
	return order.ExpirationDate.Before(now)
}
