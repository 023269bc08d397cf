package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/nbarsukov/shop-backend/internal/cache"
	"github.com/nbarsukov/shop-backend/internal/logging"
	"github.com/nbarsukov/shop-backend/internal/models"
	"github.com/nbarsukov/shop-backend/internal/repo"
	"github.com/nbarsukov/shop-backend/internal/transport"
)

// ErrSearchUnavailable is returned when no search index is configured.
var ErrSearchUnavailable = errors.New("product search is not available")

type Indexer interface {
	IndexProduct(ctx context.Context, product models.Product) error
	DeleteProduct(ctx context.Context, id uint64) error
	Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error)
}

type ProductService struct {
	DB       *gorm.DB
	Repo     *repo.GormRepo
	Cache    cache.Cache // optional; nil disables caching
	CacheTTL time.Duration
	Index    Indexer // optional; nil disables search and indexing
}

// GetByID reads cache-aside: a hit never touches the store, a miss
// populates the cache before returning. Misses on nonexistent products are
// not cached.
func (s *ProductService) GetByID(ctx context.Context, id uint64) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "product.get", "product_id", id)

	key := cache.ProductKey(id)
	if s.Cache != nil {
		cached, err := s.Cache.Get(ctx, key)
		if err == nil {
			var product models.Product
			if jsonErr := json.Unmarshal([]byte(cached), &product); jsonErr == nil {
				return &product, nil
			}
			l.Warn("cache_entry_corrupt", "key", key)
		} else if !errors.Is(err, cache.ErrMiss) {
			l.Warn("cache_get_failed", "error", err)
		}
	}

	product, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ProductNotFoundError{ProductID: id}
		}
		return nil, err
	}

	if s.Cache != nil {
		if data, err := json.Marshal(product); err == nil {
			if err := s.Cache.Set(ctx, key, string(data), s.CacheTTL); err != nil {
				l.Warn("cache_set_failed", "error", err)
			}
		}
	}
	return product, nil
}

func (s *ProductService) List(ctx context.Context, limit, offset int) (int64, []models.Product, error) {
	return s.Repo.ListProducts(ctx, limit, offset)
}

func (s *ProductService) Create(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "product.create", "name", req.Name)

	if err := validateProductFields(req.Name, req.Category, req.Price.IsNegative(), req.Stock); err != nil {
		return nil, err
	}

	// Pre-check plus unique-violation translation below: both paths report
	// the same conflict.
	if _, err := s.Repo.GetProductByName(ctx, req.Name); err == nil {
		return nil, &ProductNameExistsError{Name: req.Name}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}
	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		Available:   available,
	}
	if err := s.Repo.CreateProduct(ctx, product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ProductNameExistsError{Name: req.Name}
		}
		return nil, err
	}

	s.indexProduct(ctx, l, *product)
	l.Info("product_created", "product_id", product.ID)
	return product, nil
}

// Update applies only the supplied fields and invalidates (not refreshes)
// the cache entry, so the next read repopulates it.
func (s *ProductService) Update(ctx context.Context, id uint64, req transport.UpdateProductRequest) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "product.update", "product_id", id)

	product, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ProductNotFoundError{ProductID: id}
		}
		return nil, err
	}

	if req.Price != nil && req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}
	if req.Stock != nil && *req.Stock < 0 {
		return nil, fmt.Errorf("%w: stock cannot be negative", ErrValidation)
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Available != nil {
		product.Available = *req.Available
	}

	if err := s.Repo.SaveProduct(ctx, product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ProductNameExistsError{Name: product.Name}
		}
		return nil, err
	}

	s.invalidate(ctx, l, id)
	s.indexProduct(ctx, l, *product)
	l.Info("product_updated")
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id uint64) error {
	l := logging.FromContext(ctx).With("svc", "product.delete", "product_id", id)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)

		product, err := r.GetProduct(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &ProductNotFoundError{ProductID: id}
			}
			return err
		}

		count, err := r.CountOrderItemsForProduct(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return &ProductInUseError{ProductName: product.Name}
		}

		return r.DeleteProduct(ctx, id)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, l, id)
	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, id); err != nil {
			l.Warn("index_delete_failed", "error", err)
		}
	}
	l.Info("product_deleted")
	return nil
}

func (s *ProductService) Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error) {
	if s.Index == nil {
		return 0, nil, ErrSearchUnavailable
	}
	return s.Index.Search(ctx, query, from, size)
}

func (s *ProductService) invalidate(ctx context.Context, l *slog.Logger, id uint64) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Del(ctx, cache.ProductKey(id)); err != nil {
		l.Warn("cache_del_failed", "product_id", id, "error", err)
	}
}

func (s *ProductService) indexProduct(ctx context.Context, l *slog.Logger, product models.Product) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexProduct(ctx, product); err != nil {
		l.Warn("index_failed", "product_id", product.ID, "error", err)
	}
}

func validateProductFields(name, category string, priceNegative bool, stock int) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if category == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	if priceNegative {
		return fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}
	if stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", ErrValidation)
	}
	return nil
}
