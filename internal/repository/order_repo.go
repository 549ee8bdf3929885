package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"thoub/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository interface {
	// CreateWithItems inserts the order and all of its items in one
	// transaction; either everything lands or nothing does.
	CreateWithItems(ctx context.Context, o *model.Order) error
	// ListByUser returns the user's order history, newest first, with
	// items attached.
	ListByUser(ctx context.Context, userID string) ([]model.Order, error)
}

type orderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) OrderRepository {
	return &orderRepo{pool: pool}
}

func (r *orderRepo) CreateWithItems(ctx context.Context, o *model.Order) error {
	shipping, err := json.Marshal(o.ShippingDetails)
	if err != nil {
		return fmt.Errorf("marshaling shipping details: %w", err)
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction for order create: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	const orderQ = `
		INSERT INTO orders (id, user_id, shipping_details, total, status, stripe_session_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, orderQ, o.ID, o.UserID, shipping, o.Total, o.Status, o.StripeSessionID).Scan(&o.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting order for user %s: %w", o.UserID, err)
	}
	const itemQ = `
		INSERT INTO order_items (id, order_id, measurement_id, config, quantity, unit_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		cfg, err := json.Marshal(item.Config)
		if err != nil {
			return fmt.Errorf("marshaling item config: %w", err)
		}
		if _, err := tx.Exec(ctx, itemQ, item.ID, item.OrderID, item.MeasurementID, cfg, item.Quantity, item.UnitAmount); err != nil {
			return fmt.Errorf("inserting order item for order %s: %w", o.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order for user %s: %w", o.UserID, err)
	}
	return nil
}

func (r *orderRepo) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	const q = `
		SELECT id, user_id, shipping_details, total, status, stripe_session_id, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %s: %w", userID, err)
	}
	defer rows.Close()

	var orders []model.Order
	byID := map[string]int{}
	for rows.Next() {
		var o model.Order
		var shipping []byte
		if err := rows.Scan(&o.ID, &o.UserID, &shipping, &o.Total, &o.Status, &o.StripeSessionID, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning order row: %w", err)
		}
		if err := json.Unmarshal(shipping, &o.ShippingDetails); err != nil {
			return nil, fmt.Errorf("unmarshaling shipping details: %w", err)
		}
		byID[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	const itemsQ = `
		SELECT id, order_id, measurement_id, config, quantity, unit_amount
		FROM order_items
		WHERE order_id = ANY($1)
	`
	itemRows, err := r.pool.Query(ctx, itemsQ, ids)
	if err != nil {
		return nil, fmt.Errorf("listing order items for user %s: %w", userID, err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var item model.OrderItem
		var cfg []byte
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.MeasurementID, &cfg, &item.Quantity, &item.UnitAmount); err != nil {
			return nil, fmt.Errorf("scanning order item row: %w", err)
		}
		if err := json.Unmarshal(cfg, &item.Config); err != nil {
			return nil, fmt.Errorf("unmarshaling item config: %w", err)
		}
		if idx, ok := byID[item.OrderID]; ok {
			orders[idx].Items = append(orders[idx].Items, item)
		}
	}
	return orders, itemRows.Err()
}
