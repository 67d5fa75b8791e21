package service

import (
	"context"
	"fmt"
	"log/slog"

	"catalog-service/internal/catalog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultPageSize = 0 // no paging unless the caller asks for it
	maxPageSize     = 100
)

type Repository interface {
	CreateWithStock(ctx context.Context, p catalog.Product, count int64) (catalog.Item, error)
	Get(ctx context.Context, id string) (catalog.Product, error)
	StockCount(ctx context.Context, productID string) (int64, error)
	List(ctx context.Context, limit, offset int) ([]catalog.Product, error)
	Count(ctx context.Context) (int64, error)
}

type Service struct {
	repo    Repository
	logger  *slog.Logger
	created prometheus.Counter
}

func New(repo Repository, logger *slog.Logger, created prometheus.Counter) *Service {
	return &Service{
		repo:    repo,
		logger:  logger,
		created: created,
	}
}

// Create assigns a fresh identifier to an already validated record and writes
// the product together with its stock row. Both the direct API path and the
// import consumer funnel through here.
func (s *Service) Create(ctx context.Context, rec catalog.Record) (catalog.Item, error) {
	product := catalog.Product{
		ID:          uuid.NewString(),
		Title:       rec.Title,
		Description: rec.Description,
		Price:       rec.Price,
	}

	item, err := s.repo.CreateWithStock(ctx, product, rec.Count)
	if err != nil {
		return catalog.Item{}, fmt.Errorf("repo create: %w", err)
	}

	s.created.Inc()
	s.logger.Info("product created",
		"product_id", item.ID,
		"title", item.Title,
		"price", item.Price,
		"count", item.Count,
	)
	return item, nil
}

// Get returns one product with its stock count, or catalog.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (catalog.Item, error) {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return catalog.Item{}, fmt.Errorf("repo get: %w", err)
	}

	count, err := s.repo.StockCount(ctx, product.ID)
	if err != nil {
		return catalog.Item{}, fmt.Errorf("repo stock count: %w", err)
	}

	return catalog.Item{Product: product, Count: count}, nil
}

// List returns products with their stock counts. The stock count is looked up
// per product rather than joined; the store keeps the two record sets
// separate. A limit below one disables paging and returns everything.
func (s *Service) List(ctx context.Context, page, limit int) ([]catalog.Item, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	offset := (page - 1) * limit

	products, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("repo list: %w", err)
	}

	items := make([]catalog.Item, 0, len(products))
	for _, product := range products {
		count, err := s.repo.StockCount(ctx, product.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("repo stock count: %w", err)
		}
		items = append(items, catalog.Item{Product: product, Count: count})
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("repo count: %w", err)
	}

	return items, total, nil
}
