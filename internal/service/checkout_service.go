package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"digital-store/internal/models"
	"digital-store/internal/store"
	"digital-store/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	checkoutCurrency = "USD"
	checkoutLockTTL  = 30 * time.Second
)

// CheckoutService orchestrates the checkout workflow: cart snapshot,
// provider order creation, local persistence, capture, and cart clear.
// An order moves pending -> completed on capture, or pending -> failed
// when the provider rejects it; both are terminal.
type CheckoutService struct {
	cart    CartStore
	orders  OrderLedger
	gateway PaymentGateway
	locker  Locker
	events  OrderEvents
	baseURL string
	logger  *zap.Logger
}

// NewCheckoutService creates a new checkout orchestrator
func NewCheckoutService(cart CartStore, orders OrderLedger, gateway PaymentGateway, locker Locker, events OrderEvents, baseURL string) *CheckoutService {
	return &CheckoutService{
		cart:    cart,
		orders:  orders,
		gateway: gateway,
		locker:  locker,
		events:  events,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  util.GetLogger(),
	}
}

// InitiateResult is returned to the checkout client so it can hand the
// provider order id to the approval flow.
type InitiateResult struct {
	PayPalOrderID string `json:"order_id"`
	OrderNumber   string `json:"order_number"`
}

// Initiate snapshots the cart, creates the provider-side payment order
// and persists the local order plus its items in one transaction. A
// per-session lock rejects a second concurrent initiation for the same
// cart.
func (s *CheckoutService) Initiate(ctx context.Context, sessionID string) (*InitiateResult, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Initiate")
	defer span.End()

	acquired, err := s.locker.AcquireLock(ctx, "checkout:"+sessionID, checkoutLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire checkout lock: %w", err)
	}
	if !acquired {
		util.CheckoutsFailedTotal.WithLabelValues("concurrent").Inc()
		return nil, ErrCheckoutInProgress
	}
	defer func() {
		if err := s.locker.ReleaseLock(context.Background(), "checkout:"+sessionID); err != nil {
			s.logger.Error("Failed to release checkout lock",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
	}()

	lines, err := s.cart.GetCartLines(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if len(lines) == 0 {
		util.CheckoutsFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	total := cartTotal(lines)

	token, err := s.gateway.Authenticate(ctx)
	if err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("gateway_auth").Inc()
		return nil, err
	}

	paypalOrderID, err := s.gateway.CreateOrder(ctx, token, total, checkoutCurrency,
		s.baseURL+"/checkout/success", s.baseURL+"/checkout")
	if err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("gateway_create").Inc()
		return nil, err
	}

	order := &models.Order{
		OrderNumber:   newOrderNumber(),
		SessionID:     sessionID,
		TotalAmount:   total,
		PayPalOrderID: &paypalOrderID,
		Status:        models.OrderStatusPending,
	}

	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}

	if err := s.orders.CreateOrderWithItems(ctx, order, items); err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	util.CheckoutsInitiatedTotal.Inc()
	s.logger.Info("Checkout initiated",
		zap.String("order_number", order.OrderNumber),
		zap.String("paypal_order_id", paypalOrderID),
		zap.Float64("total", total))

	if err := s.events.PublishCheckoutInitiated(ctx, order.OrderNumber, paypalOrderID, total, len(items)); err != nil {
		s.logger.Error("Failed to publish CheckoutInitiated event", zap.Error(err))
	}

	return &InitiateResult{
		PayPalOrderID: paypalOrderID,
		OrderNumber:   order.OrderNumber,
	}, nil
}

// CaptureResult reports the outcome of a capture to the client.
type CaptureResult struct {
	Success     bool   `json:"success"`
	OrderNumber string `json:"order_number"`
}

// Capture asks the provider to capture an approved order, marks the
// local order completed and clears the session's cart in one
// transaction. Capturing an already-completed order is a no-op so a
// duplicate client call never double-applies side effects. A provider
// rejection moves the order to the failed terminal state. email, when
// non-empty, travels with the completion event for the receipt mailer.
func (s *CheckoutService) Capture(ctx context.Context, paypalOrderID, email string) (*CaptureResult, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Capture")
	defer span.End()

	order, err := s.orders.GetOrderByProviderID(ctx, paypalOrderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up order: %w", err)
	}

	if order.Status == models.OrderStatusCompleted {
		s.logger.Info("Capture called on completed order",
			zap.String("order_number", order.OrderNumber))
		return &CaptureResult{Success: true, OrderNumber: order.OrderNumber}, nil
	}
	if order.Status == models.OrderStatusFailed {
		return nil, fmt.Errorf("order %s is in a terminal failed state", order.OrderNumber)
	}

	token, err := s.gateway.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.gateway.CaptureOrder(ctx, token, paypalOrderID); err != nil {
		if markErr := s.orders.MarkOrderFailed(ctx, order.ID); markErr != nil {
			s.logger.Error("Failed to mark order failed",
				zap.String("order_number", order.OrderNumber),
				zap.Error(markErr))
		}
		util.OrdersFailedTotal.Inc()
		if pubErr := s.events.PublishOrderFailed(ctx, order.OrderNumber, paypalOrderID, err.Error()); pubErr != nil {
			s.logger.Error("Failed to publish OrderFailed event", zap.Error(pubErr))
		}
		return nil, err
	}

	if err := s.orders.CompleteOrder(ctx, order.ID, order.SessionID); err != nil {
		return nil, fmt.Errorf("failed to complete order: %w", err)
	}

	util.OrdersCompletedTotal.Inc()
	s.logger.Info("Order completed",
		zap.String("order_number", order.OrderNumber),
		zap.String("paypal_order_id", paypalOrderID))

	if err := s.events.PublishOrderCompleted(ctx, order.OrderNumber, paypalOrderID, order.TotalAmount, email); err != nil {
		s.logger.Error("Failed to publish OrderCompleted event", zap.Error(err))
	}

	return &CaptureResult{Success: true, OrderNumber: order.OrderNumber}, nil
}

// OrderByNumber returns an order with its line items for the success
// page.
func (s *CheckoutService) OrderByNumber(ctx context.Context, orderNumber string) (*models.Order, []models.OrderItem, error) {
	order, err := s.orders.GetOrderByNumber(ctx, orderNumber)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	items, err := s.orders.GetOrderItemsByOrderID(ctx, order.ID)
	if err != nil {
		return nil, nil, err
	}
	return order, items, nil
}

// newOrderNumber derives a human-readable unique order number from the
// current date and random uuid bytes, e.g. ORD-20240115-3F2A9B10.
func newOrderNumber() string {
	id := uuid.New()
	return fmt.Sprintf("ORD-%s-%s",
		time.Now().Format("20060102"),
		strings.ToUpper(hex.EncodeToString(id[:4])))
}
