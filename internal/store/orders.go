package store

import (
	"context"
	"database/sql"
	"fmt"

	"digital-store/internal/models"
)

// CreateOrderWithItems persists an order and its items in one
// transaction, so a failed item insert never leaves an orphaned order
// row behind.
func (s *Store) CreateOrderWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, order, `
		INSERT INTO orders (order_number, session_id, total_amount, paypal_order_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		order.OrderNumber, order.SessionID, order.TotalAmount, order.PayPalOrderID, order.Status)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		err = tx.GetContext(ctx, &items[i].ID, `
			INSERT INTO order_items (order_id, product_id, quantity, price)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			items[i].OrderID, items[i].ProductID, items[i].Quantity, items[i].Price)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByProviderID retrieves an order by its PayPal order id
func (s *Store) GetOrderByProviderID(ctx context.Context, paypalOrderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE paypal_order_id = $1", paypalOrderID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByNumber retrieves an order by its human-readable number
func (s *Store) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE order_number = $1", orderNumber)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// CompleteOrder marks the order completed and clears the session's
// cart in one transaction.
func (s *Store) CompleteOrder(ctx context.Context, orderID int64, sessionID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1 WHERE id = $2",
		models.OrderStatusCompleted, orderID); err != nil {
		return fmt.Errorf("failed to complete order: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM cart_items WHERE session_id = $1", sessionID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return tx.Commit()
}

// MarkOrderFailed moves the order to the failed terminal state
func (s *Store) MarkOrderFailed(ctx context.Context, orderID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1 WHERE id = $2",
		models.OrderStatusFailed, orderID)
	return err
}
