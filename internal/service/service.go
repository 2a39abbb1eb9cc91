package service

import (
	"context"
	"errors"
	"time"

	"digital-store/internal/models"
)

// Service-level failures, mapped to HTTP statuses by the API layer.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("validation failed")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrOrderNotFound      = errors.New("order not found")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnconfirmedAccount = errors.New("account is not confirmed")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrChatDisabled       = errors.New("chat is not configured")
)

// ProductReader is the catalog read surface.
type ProductReader interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	ListByCategory(ctx context.Context, category, search, sort string, page, perPage int) ([]models.Product, int, error)
	GetRelatedProducts(ctx context.Context, productID int64, category string, limit int) ([]models.Product, error)
	GetFeaturedByCategory(ctx context.Context, category string, limit int) ([]models.Product, error)
	SearchProducts(ctx context.Context, query, category string) ([]models.Product, error)
}

// CartStore persists session-scoped cart rows.
type CartStore interface {
	UpsertCartItem(ctx context.Context, sessionID string, productID int64) error
	GetCartItem(ctx context.Context, itemID int64) (*models.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, itemID int64, quantity int) error
	DeleteCartItem(ctx context.Context, itemID int64) error
	GetCartLines(ctx context.Context, sessionID string) ([]models.CartLine, error)
	CountCartItems(ctx context.Context, sessionID string) (int, error)
	ClearCart(ctx context.Context, sessionID string) error
}

// OrderLedger is the durable record of checkout attempts.
type OrderLedger interface {
	CreateOrderWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error
	GetOrderByProviderID(ctx context.Context, paypalOrderID string) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	CompleteOrder(ctx context.Context, orderID int64, sessionID string) error
	MarkOrderFailed(ctx context.Context, orderID int64) error
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByConfirmationToken(ctx context.Context, token string) (*models.User, error)
	GetUserByResetToken(ctx context.Context, token string) (*models.User, error)
	ConfirmUser(ctx context.Context, userID int64) error
	SetConfirmationToken(ctx context.Context, userID int64, token string) error
	SetResetToken(ctx context.Context, userID int64, token string, expiry time.Time) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

// PaymentGateway is the payment-provider adapter surface.
type PaymentGateway interface {
	Authenticate(ctx context.Context) (string, error)
	CreateOrder(ctx context.Context, accessToken string, total float64, currency, returnURL, cancelURL string) (string, error)
	CaptureOrder(ctx context.Context, accessToken, providerOrderID string) error
}

// Locker provides advisory locks keyed by string.
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// OrderEvents publishes order lifecycle events.
type OrderEvents interface {
	PublishCheckoutInitiated(ctx context.Context, orderNumber, paypalOrderID string, total float64, itemCount int) error
	PublishOrderCompleted(ctx context.Context, orderNumber, paypalOrderID string, total float64, email string) error
	PublishOrderFailed(ctx context.Context, orderNumber, paypalOrderID, reason string) error
}

// MailSender delivers transactional email best-effort.
type MailSender interface {
	Enabled() bool
	Send(to, subject, htmlBody string) error
}
