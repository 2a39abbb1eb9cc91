package store

import (
	"context"
	"database/sql"

	"digital-store/internal/models"
)

// UpsertCartItem inserts a (session, product) row with quantity 1, or
// increments the existing row's quantity.
func (s *Store) UpsertCartItem(ctx context.Context, sessionID string, productID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_items (session_id, product_id, quantity)
		VALUES ($1, $2, 1)
		ON CONFLICT (session_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + 1`,
		sessionID, productID)
	return err
}

// GetCartItem retrieves a cart row by its ID
func (s *Store) GetCartItem(ctx context.Context, itemID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := s.db.GetContext(ctx, &item, "SELECT * FROM cart_items WHERE id = $1", itemID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateCartItemQuantity sets the quantity of a cart row
func (s *Store) UpdateCartItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = $1 WHERE id = $2", quantity, itemID)
	return err
}

// DeleteCartItem removes a cart row
func (s *Store) DeleteCartItem(ctx context.Context, itemID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE id = $1", itemID)
	return err
}

// GetCartLines retrieves a session's cart joined with product titles
// and current prices, in insertion order.
func (s *Store) GetCartLines(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := s.db.SelectContext(ctx, &lines, `
		SELECT ci.id, ci.session_id, ci.product_id, ci.quantity, ci.created_at,
		       p.title, p.price
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.session_id = $1
		ORDER BY ci.id`,
		sessionID)
	return lines, err
}

// CountCartItems counts a session's cart rows
func (s *Store) CountCartItems(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM cart_items WHERE session_id = $1", sessionID)
	return count, err
}

// ClearCart deletes all cart rows for a session
func (s *Store) ClearCart(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE session_id = $1", sessionID)
	return err
}
