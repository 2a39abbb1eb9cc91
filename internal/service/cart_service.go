package service

import (
	"context"
	"errors"

	"digital-store/internal/models"
	"digital-store/internal/store"
	"digital-store/internal/util"

	"go.uber.org/zap"
)

// CartService owns the session-scoped cart.
type CartService struct {
	cart     CartStore
	products ProductReader
	logger   *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(cart CartStore, products ProductReader) *CartService {
	return &CartService{
		cart:     cart,
		products: products,
		logger:   util.GetLogger(),
	}
}

// Add puts one unit of a product into the session's cart, incrementing
// the quantity when the product is already there.
func (s *CartService) Add(ctx context.Context, sessionID string, productID int64) (*models.Product, error) {
	product, err := s.products.GetProductByID(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.cart.UpsertCartItem(ctx, sessionID, productID); err != nil {
		return nil, err
	}

	util.CartMutationsTotal.WithLabelValues("add").Inc()
	s.logger.Debug("Product added to cart",
		zap.String("session_id", sessionID),
		zap.Int64("product_id", productID))
	return product, nil
}

// ownedItem loads a cart row and verifies it belongs to the session.
func (s *CartService) ownedItem(ctx context.Context, sessionID string, itemID int64) (*models.CartItem, error) {
	item, err := s.cart.GetCartItem(ctx, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if item.SessionID != sessionID {
		return nil, ErrForbidden
	}
	return item, nil
}

// SetQuantity updates a cart row's quantity; zero or less deletes the
// row.
func (s *CartService) SetQuantity(ctx context.Context, sessionID string, itemID int64, quantity int) error {
	item, err := s.ownedItem(ctx, sessionID, itemID)
	if err != nil {
		return err
	}

	if quantity <= 0 {
		util.CartMutationsTotal.WithLabelValues("remove").Inc()
		return s.cart.DeleteCartItem(ctx, item.ID)
	}

	util.CartMutationsTotal.WithLabelValues("update").Inc()
	return s.cart.UpdateCartItemQuantity(ctx, item.ID, quantity)
}

// Remove deletes a cart row after the ownership check.
func (s *CartService) Remove(ctx context.Context, sessionID string, itemID int64) error {
	item, err := s.ownedItem(ctx, sessionID, itemID)
	if err != nil {
		return err
	}
	util.CartMutationsTotal.WithLabelValues("remove").Inc()
	return s.cart.DeleteCartItem(ctx, item.ID)
}

// List returns the session's cart joined with products, in insertion
// order.
func (s *CartService) List(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	if sessionID == "" {
		return []models.CartLine{}, nil
	}
	lines, err := s.cart.GetCartLines(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []models.CartLine{}
	}
	return lines, nil
}

// Total recomputes the cart total from current product prices.
func (s *CartService) Total(ctx context.Context, sessionID string) (float64, error) {
	lines, err := s.List(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return cartTotal(lines), nil
}

// Count returns the number of distinct cart rows for the badge.
func (s *CartService) Count(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, nil
	}
	return s.cart.CountCartItems(ctx, sessionID)
}

// Clear empties the session's cart.
func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	return s.cart.ClearCart(ctx, sessionID)
}

func cartTotal(lines []models.CartLine) float64 {
	var total float64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}
