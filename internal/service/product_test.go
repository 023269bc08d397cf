package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nbarsukov/shop-backend/internal/cache"
	"github.com/nbarsukov/shop-backend/internal/models"
	"github.com/nbarsukov/shop-backend/internal/transport"
)

func newProductService(t *testing.T) (*ProductService, *fakeCache, *fakeIndex) {
	t.Helper()

	db, r := newTestRepo(t)
	fc := newFakeCache()
	fi := &fakeIndex{}
	return &ProductService{DB: db, Repo: r, Cache: fc, CacheTTL: 10 * time.Minute, Index: fi}, fc, fi
}

func TestGetProductPopulatesCache(t *testing.T) {
	svc, fc, _ := newProductService(t)
	product := seedProduct(t, svc.DB, "laptop", "10.00", 20)

	got, err := svc.GetByID(context.Background(), product.ID)
	require.NoError(t, err)
	require.Equal(t, "laptop", got.Name)
	require.Contains(t, fc.entries, cache.ProductKey(product.ID))

	// Second read is served from the cache even if the row changes.
	require.NoError(t, svc.DB.Model(product).Update("name", "renamed").Error)
	got, err = svc.GetByID(context.Background(), product.ID)
	require.NoError(t, err)
	require.Equal(t, "laptop", got.Name)
	require.Equal(t, 2, fc.gets)
	require.Equal(t, 1, fc.sets)
}

func TestGetProductNotFound(t *testing.T) {
	svc, fc, _ := newProductService(t)

	_, err := svc.GetByID(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)

	// Misses on nonexistent products are not cached.
	require.Empty(t, fc.entries)
}

func TestGetProductSurvivesCorruptCacheEntry(t *testing.T) {
	svc, fc, _ := newProductService(t)
	product := seedProduct(t, svc.DB, "laptop", "10.00", 20)
	fc.entries[cache.ProductKey(product.ID)] = "{not json"

	got, err := svc.GetByID(context.Background(), product.ID)
	require.NoError(t, err)
	require.Equal(t, "laptop", got.Name)
}

func TestCreateProduct(t *testing.T) {
	svc, _, fi := newProductService(t)

	product, err := svc.Create(context.Background(), transport.CreateProductRequest{
		Name:     "laptop",
		Price:    decimal.RequireFromString("10.00"),
		Stock:    20,
		Category: "electronics",
	})
	require.NoError(t, err)
	require.NotZero(t, product.ID)
	require.True(t, product.Available)
	require.Len(t, fi.indexed, 1)
}

func TestCreateProductDuplicateName(t *testing.T) {
	svc, _, _ := newProductService(t)
	seedProduct(t, svc.DB, "laptop", "10.00", 20)

	_, err := svc.Create(context.Background(), transport.CreateProductRequest{
		Name:     "laptop",
		Price:    decimal.RequireFromString("12.00"),
		Stock:    5,
		Category: "electronics",
	})

	var dup *ProductNameExistsError
	require.ErrorAs(t, err, &dup)
	require.ErrorIs(t, err, ErrConflict)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _, _ := newProductService(t)

	cases := []transport.CreateProductRequest{
		{Name: "", Category: "c", Price: decimal.New(1, 0)},
		{Name: "n", Category: "", Price: decimal.New(1, 0)},
		{Name: "n", Category: "c", Price: decimal.New(-1, 0)},
		{Name: "n", Category: "c", Price: decimal.New(1, 0), Stock: -1},
	}
	for _, req := range cases {
		_, err := svc.Create(context.Background(), req)
		require.ErrorIs(t, err, ErrValidation)
	}
}

func TestUpdateProductInvalidatesCache(t *testing.T) {
	svc, fc, fi := newProductService(t)
	product := seedProduct(t, svc.DB, "laptop", "10.00", 20)

	_, err := svc.GetByID(context.Background(), product.ID)
	require.NoError(t, err)
	require.Contains(t, fc.entries, cache.ProductKey(product.ID))

	newStock := 5
	updated, err := svc.Update(context.Background(), product.ID, transport.UpdateProductRequest{Stock: &newStock})
	require.NoError(t, err)
	require.Equal(t, 5, updated.Stock)
	require.Equal(t, "laptop", updated.Name)

	require.NotContains(t, fc.entries, cache.ProductKey(product.ID))
	require.Contains(t, fc.dels, cache.ProductKey(product.ID))
	require.Len(t, fi.indexed, 1)

	// Next read sees the update.
	got, err := svc.GetByID(context.Background(), product.ID)
	require.NoError(t, err)
	require.Equal(t, 5, got.Stock)
}

func TestDeleteProduct(t *testing.T) {
	svc, fc, fi := newProductService(t)
	product := seedProduct(t, svc.DB, "laptop", "10.00", 20)

	_, err := svc.GetByID(context.Background(), product.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), product.ID))
	require.NotContains(t, fc.entries, cache.ProductKey(product.ID))
	require.Equal(t, []uint64{product.ID}, fi.deleted)

	_, err = svc.GetByID(context.Background(), product.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProductReferencedByOrder(t *testing.T) {
	svc, _, _ := newProductService(t)
	db := svc.DB
	user := seedUser(t, db, "buyer", "Password1!", models.RoleUser)
	product := seedProduct(t, db, "laptop", "10.00", 20)

	orders := &OrderService{DB: db, Repo: svc.Repo}
	_, err := orders.Create(context.Background(), user.ID, transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), product.ID)
	var inUse *ProductInUseError
	require.ErrorAs(t, err, &inUse)
	require.ErrorIs(t, err, ErrConflict)

	var count int64
	require.NoError(t, db.Model(&models.Product{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestSearchWithoutIndex(t *testing.T) {
	db, r := newTestRepo(t)
	svc := &ProductService{DB: db, Repo: r}

	_, _, err := svc.Search(context.Background(), "laptop", 0, 20)
	require.ErrorIs(t, err, ErrSearchUnavailable)
}

func TestListProducts(t *testing.T) {
	svc, _, _ := newProductService(t)
	seedProduct(t, svc.DB, "a", "1.00", 1)
	seedProduct(t, svc.DB, "b", "2.00", 2)
	seedProduct(t, svc.DB, "c", "3.00", 3)

	total, items, err := svc.List(context.Background(), 2, 0)
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, items, 2)
}
