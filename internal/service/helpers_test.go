package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nbarsukov/shop-backend/internal/cache"
	"github.com/nbarsukov/shop-backend/internal/hash"
	"github.com/nbarsukov/shop-backend/internal/models"
	"github.com/nbarsukov/shop-backend/internal/repo"
	"github.com/nbarsukov/shop-backend/internal/tokens"
)

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Product{}, &models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func newTestRepo(t *testing.T) (*gorm.DB, *repo.GormRepo) {
	t.Helper()

	db := initTestDB(t)
	return db, &repo.GormRepo{DB: db}
}

func newTestTokens() *tokens.Manager {
	return &tokens.Manager{
		Secret:     []byte("test-secret"),
		Issuer:     "shop-backend",
		Audience:   "shop-clients",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
}

func seedUser(t *testing.T, db *gorm.DB, username, password, role string) *models.User {
	t.Helper()

	pwHash, err := hash.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		Username:     username,
		PasswordHash: pwHash,
		Role:         role,
		Available:    true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		Category:  "test",
		Available: true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

// fakeCache is an in-memory cache.Cache that records every call.
type fakeCache struct {
	entries map[string]string
	gets    int
	sets    int
	dels    []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	f.gets++
	v, ok := f.entries[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (f *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.sets++
	f.entries[key] = value
	return nil
}

func (f *fakeCache) Del(_ context.Context, key string) error {
	f.dels = append(f.dels, key)
	delete(f.entries, key)
	return nil
}

// fakeIndex is an Indexer that records indexed and deleted documents.
type fakeIndex struct {
	indexed []models.Product
	deleted []uint64
	results []models.Product
}

func (f *fakeIndex) IndexProduct(_ context.Context, product models.Product) error {
	f.indexed = append(f.indexed, product)
	return nil
}

func (f *fakeIndex) DeleteProduct(_ context.Context, id uint64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ string, _, _ int) (int64, []models.Product, error) {
	return int64(len(f.results)), f.results, nil
}
