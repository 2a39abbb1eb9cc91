package service

import (
	"context"
	"errors"
	"math"

	"digital-store/internal/models"
	"digital-store/internal/store"
	"digital-store/internal/util"

	"go.uber.org/zap"
)

const (
	productsPerPage  = 12
	relatedLimit     = 4
	featuredPerGroup = 4
)

// CatalogService serves read-mostly product queries.
type CatalogService struct {
	products ProductReader
	logger   *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(products ProductReader) *CatalogService {
	return &CatalogService{
		products: products,
		logger:   util.GetLogger(),
	}
}

// CategoryPage is one page of a category listing.
type CategoryPage struct {
	Products []models.Product `json:"products"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
	Total    int              `json:"total"`
}

// ByCategory returns a filtered, sorted page of one category.
func (s *CatalogService) ByCategory(ctx context.Context, category, search, sort string, page int) (*CategoryPage, error) {
	if !models.ValidCategory(category) {
		return nil, ErrNotFound
	}
	if page < 1 {
		page = 1
	}

	products, total, err := s.products.ListByCategory(ctx, category, search, sort, page, productsPerPage)
	if err != nil {
		return nil, err
	}

	pages := int(math.Ceil(float64(total) / float64(productsPerPage)))
	if pages < 1 {
		pages = 1
	}
	if products == nil {
		products = []models.Product{}
	}

	return &CategoryPage{
		Products: products,
		Page:     page,
		Pages:    pages,
		Total:    total,
	}, nil
}

// ByID returns one product.
func (s *CatalogService) ByID(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.products.GetProductByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return product, err
}

// Related returns same-category products excluding the product itself.
func (s *CatalogService) Related(ctx context.Context, id int64) ([]models.Product, error) {
	product, err := s.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.products.GetRelatedProducts(ctx, product.ID, product.Category, relatedLimit)
}

// Featured returns up to four products per category for the home page.
func (s *CatalogService) Featured(ctx context.Context) (map[string][]models.Product, error) {
	featured := make(map[string][]models.Product, 3)
	for _, cat := range []string{models.CategoryMovie, models.CategorySoftware, models.CategoryGame} {
		products, err := s.products.GetFeaturedByCategory(ctx, cat, featuredPerGroup)
		if err != nil {
			return nil, err
		}
		if products == nil {
			products = []models.Product{}
		}
		featured[cat] = products
	}
	return featured, nil
}

// Search searches titles across all categories. An unknown category
// filter is ignored, matching the storefront's lenient search box.
func (s *CatalogService) Search(ctx context.Context, query, category string) ([]models.Product, error) {
	if query == "" {
		return nil, ErrValidation
	}
	if !models.ValidCategory(category) {
		category = ""
	}
	products, err := s.products.SearchProducts(ctx, query, category)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}
