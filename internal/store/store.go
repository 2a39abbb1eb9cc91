package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"digital-store/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = fmt.Errorf("not found")

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Catalog sort keys accepted by ListByCategory.
const (
	SortTitle     = "title"
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
	SortRating    = "rating"
)

func orderClause(sort string) string {
	switch sort {
	case SortPriceLow:
		return "price ASC, title ASC"
	case SortPriceHigh:
		return "price DESC, title ASC"
	case SortRating:
		return "rating DESC NULLS LAST, title ASC"
	default:
		return "title ASC"
	}
}

// ListByCategory retrieves one page of a category, optionally filtered
// by a case-insensitive title substring. Returns the page plus the
// total row count for the filter.
func (s *Store) ListByCategory(ctx context.Context, category, search, sort string, page, perPage int) ([]models.Product, int, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * perPage

	where := "category = $1"
	args := []interface{}{category}
	if search != "" {
		where += " AND title ILIKE $2"
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := s.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM products WHERE "+where, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT * FROM products WHERE %s ORDER BY %s LIMIT %d OFFSET %d",
		where, orderClause(sort), perPage, offset)

	var products []models.Product
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// GetRelatedProducts retrieves products sharing a category, excluding
// the product itself.
func (s *Store) GetRelatedProducts(ctx context.Context, productID int64, category string, limit int) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE category = $1 AND id != $2 ORDER BY title LIMIT $3",
		category, productID, limit)
	return products, err
}

// GetFeaturedByCategory retrieves the first products of a category for
// the home page.
func (s *Store) GetFeaturedByCategory(ctx context.Context, category string, limit int) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE category = $1 ORDER BY id LIMIT $2",
		category, limit)
	return products, err
}

// SearchProducts searches titles across all categories, optionally
// narrowed to one category.
func (s *Store) SearchProducts(ctx context.Context, query, category string) ([]models.Product, error) {
	var products []models.Product
	if category != "" {
		err := s.db.SelectContext(ctx, &products,
			"SELECT * FROM products WHERE title ILIKE $1 AND category = $2 ORDER BY title",
			"%"+query+"%", category)
		return products, err
	}
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE title ILIKE $1 ORDER BY title",
		"%"+query+"%")
	return products, err
}
