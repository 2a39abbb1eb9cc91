package models

import "time"

// Product categories
const (
	CategoryMovie    = "movie"
	CategorySoftware = "software"
	CategoryGame     = "game"
)

// ValidCategory reports whether cat is one of the known categories.
func ValidCategory(cat string) bool {
	switch cat {
	case CategoryMovie, CategorySoftware, CategoryGame:
		return true
	}
	return false
}

// Product represents a catalog entry. Products are immutable after
// seeding.
type Product struct {
	ID          int64      `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Price       float64    `db:"price" json:"price"`
	Category    string     `db:"category" json:"category"`
	ImageURL    *string    `db:"image_url" json:"image_url,omitempty"`
	ReleaseDate *time.Time `db:"release_date" json:"release_date,omitempty"`
	Rating      *float64   `db:"rating" json:"rating,omitempty"`
	Genre       *string    `db:"genre" json:"genre,omitempty"`
	Platform    *string    `db:"platform" json:"platform,omitempty"`
	Director    *string    `db:"director" json:"director,omitempty"`
	Developer   *string    `db:"developer" json:"developer,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// CartItem is one (session, product) row. Quantity is >= 1 while the
// row exists; setting it to zero deletes the row.
type CartItem struct {
	ID        int64     `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"-"`
	ProductID int64     `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CartLine is a cart item joined with its product.
type CartLine struct {
	CartItem
	Title string  `db:"title" json:"title"`
	Price float64 `db:"price" json:"price"`
}

// Subtotal is the line's contribution to the cart total.
func (l CartLine) Subtotal() float64 {
	return l.Price * float64(l.Quantity)
}

// Order statuses. Completed and failed are terminal.
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusFailed    = "failed"
)

// Order is one checkout attempt correlated with a provider-side
// payment order.
type Order struct {
	ID            int64     `db:"id" json:"id"`
	OrderNumber   string    `db:"order_number" json:"order_number"`
	SessionID     string    `db:"session_id" json:"-"`
	TotalAmount   float64   `db:"total_amount" json:"total_amount"`
	PayPalOrderID *string   `db:"paypal_order_id" json:"paypal_order_id,omitempty"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// OrderItem snapshots a cart line at order-creation time. Price is the
// unit price at that moment, decoupled from later catalog changes.
type OrderItem struct {
	ID        int64   `db:"id" json:"id"`
	OrderID   int64   `db:"order_id" json:"order_id"`
	ProductID int64   `db:"product_id" json:"product_id"`
	Quantity  int     `db:"quantity" json:"quantity"`
	Price     float64 `db:"price" json:"price"`
}

// User is a store account.
type User struct {
	ID                int64      `db:"id" json:"id"`
	Username          string     `db:"username" json:"username"`
	Email             string     `db:"email" json:"email"`
	PasswordHash      string     `db:"password_hash" json:"-"`
	IsConfirmed       bool       `db:"is_confirmed" json:"is_confirmed"`
	ConfirmationToken *string    `db:"confirmation_token" json:"-"`
	ResetToken        *string    `db:"reset_token" json:"-"`
	ResetTokenExpiry  *time.Time `db:"reset_token_expiry" json:"-"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// ResetTokenValid reports whether the user's reset token is still
// within its validity window.
func (u *User) ResetTokenValid(now time.Time) bool {
	return u.ResetToken != nil && u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now)
}
