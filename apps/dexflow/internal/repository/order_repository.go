package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"dexflow/apps/dexflow/internal/model"
)

const orderColumns = `order_id, wallet_id, user_id, chain_id, order_type, order_mode,
		buy_token_symbol, buy_token_address, buy_token_decimals,
		sell_token_symbol, sell_token_address, sell_token_decimals,
		buy_amount, sell_amount, status, target_price,
		min_price, max_price, interval_minutes, interval_hours, duration_minutes,
		expiration_date, created_at, updated_at`

type OrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOrderRepository(db *sql.DB, logger *zap.Logger) *OrderRepository {
	return &OrderRepository{db: db, logger: logger}
}

func (r *OrderRepository) ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []interface{}{}

	if filter.OrderType != nil {
		args = append(args, *filter.OrderType)
		query += fmt.Sprintf(" AND order_type = $%d", len(args))
	}
	if filter.OrderStatus != nil {
		args = append(args, *filter.OrderStatus)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

func (r *OrderRepository) ListOrdersByIDs(ctx context.Context, ids []string) ([]model.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE order_id = ANY($1)
		ORDER BY created_at
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list orders by ids: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

func (r *OrderRepository) GetOrderByID(ctx context.Context, orderID string) (*model.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE order_id = $1
	`, orderID)

	order, err := scanOrder(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order by ID: %w", err)
	}
	return order, nil
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order model.Order) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (order_id, wallet_id, user_id, chain_id, order_type, order_mode,
			buy_token_symbol, buy_token_address, buy_token_decimals,
			sell_token_symbol, sell_token_address, sell_token_decimals,
			buy_amount, sell_amount, status, target_price,
			min_price, max_price, interval_minutes, interval_hours, duration_minutes,
			expiration_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, NOW(), NOW())
	`, order.OrderID, order.WalletID, order.UserID, order.ChainID, order.OrderType, order.OrderMode,
		order.BuyToken.Symbol, order.BuyToken.ContractAddress, order.BuyToken.Decimals,
		order.SellToken.Symbol, order.SellToken.ContractAddress, order.SellToken.Decimals,
		order.BuyAmount, order.SellAmount, order.Status, order.TargetPrice,
		order.MinPrice, order.MaxPrice, order.IntervalMinutes, order.IntervalHours, order.DurationMinutes,
		order.ExpirationDate)

	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Info("Created order",
		zap.String("order_id", order.OrderID),
		zap.String("order_type", string(order.OrderType)),
		zap.String("status", string(order.Status)))
	return nil
}

func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW() WHERE order_id = $2
	`, status, orderID)

	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	r.logger.Info("Updated order status",
		zap.String("order_id", orderID),
		zap.String("status", string(status)))
	return nil
}

// UpdateOrderBuyAmount records the realized buy-side amount once a route's
// expected output is known.
func (r *OrderRepository) UpdateOrderBuyAmount(ctx context.Context, orderID string, buyAmount string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders SET buy_amount = $1, updated_at = NOW() WHERE order_id = $2
	`, buyAmount, orderID)

	if err != nil {
		return fmt.Errorf("failed to update order buy amount: %w", err)
	}
	return nil
}

func (r *OrderRepository) BulkUpdateOrderStatus(ctx context.Context, status model.OrderStatus, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW() WHERE order_id = ANY($2)
	`, status, pq.Array(ids))

	if err != nil {
		return fmt.Errorf("failed to bulk update order status: %w", err)
	}

	r.logger.Info("Bulk updated order status",
		zap.String("status", string(status)),
		zap.Int("count", len(ids)))
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var order model.Order
	err := row.Scan(
		&order.OrderID, &order.WalletID, &order.UserID, &order.ChainID, &order.OrderType, &order.OrderMode,
		&order.BuyToken.Symbol, &order.BuyToken.ContractAddress, &order.BuyToken.Decimals,
		&order.SellToken.Symbol, &order.SellToken.ContractAddress, &order.SellToken.Decimals,
		&order.BuyAmount, &order.SellAmount, &order.Status, &order.TargetPrice,
		&order.MinPrice, &order.MaxPrice, &order.IntervalMinutes, &order.IntervalHours, &order.DurationMinutes,
		&order.ExpirationDate, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	order.BuyToken.ChainID = order.ChainID
	order.SellToken.ChainID = order.ChainID
	return &order, nil
}

func scanOrders(rows *sql.Rows) ([]model.Order, error) {
	var orders []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}
