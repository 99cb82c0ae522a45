package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/eshop/services/orders/internal/cache"
	"example.com/eshop/services/orders/internal/models"
	"example.com/eshop/services/orders/internal/repositories"
)

const productListCacheTTL = 5 * time.Minute

// ProductService owns the live product catalog.
type ProductService struct {
	repo  repositories.ProductRepository
	cache *cache.RedisCache
}

// NewProductService creates a new product service
func NewProductService(repo repositories.ProductRepository, redisCache *cache.RedisCache) *ProductService {
	return &ProductService{
		repo:  repo,
		cache: redisCache,
	}
}

// Create adds a product to the catalog.
func (s *ProductService) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.Name == "" {
		return nil, NewValidationError("Názov produktu je povinný")
	}
	if product.Price.IsNegative() {
		return nil, NewValidationError("Cena produktu nesmie byť záporná")
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, &PersistenceError{Err: err}
	}
	s.invalidateListing(ctx)

	log.Info().
		Str("product_id", product.ID.String()).
		Str("name", product.Name).
		Msg("Product created")
	return product, nil
}

// List returns all live catalog products.
func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	if s.cache != nil {
		var cached []models.Product
		if err := s.cache.Get(ctx, cache.ProductListCacheKey(), &cached); err == nil {
			return cached, nil
		}
	}

	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.ProductListCacheKey(), products, productListCacheTTL); err != nil {
			log.Warn().Err(err).Msg("Failed to cache product listing")
		}
	}
	return products, nil
}

// Delete soft-deletes a catalog product. Existing order-item snapshots
// keep their frozen name, price and weight.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return &PersistenceError{Err: err}
	}
	s.invalidateListing(ctx)

	log.Info().Str("product_id", id.String()).Msg("Product removed from catalog")
	return nil
}

// invalidateListing drops the cached catalog listing after a write.
func (s *ProductService) invalidateListing(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.ProductListCacheKey()); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate product listing cache")
	}
}
