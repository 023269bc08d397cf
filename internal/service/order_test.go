package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nbarsukov/shop-backend/internal/models"
	"github.com/nbarsukov/shop-backend/internal/transport"
)

func TestCreateOrder(t *testing.T) {
	db, r := newTestRepo(t)
	svc := &OrderService{DB: db, Repo: r}
	user := seedUser(t, db, "buyer", "Password1!", models.RoleUser)
	laptop := seedProduct(t, db, "laptop", "10.00", 20)
	mouse := seedProduct(t, db, "mouse", "5.50", 15)

	order, err := svc.Create(context.Background(), user.ID, transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{
			{ProductID: laptop.ID, Quantity: 2},
			{ProductID: mouse.ID, Quantity: 5},
		},
	})
	require.NoError(t, err)
	require.NotZero(t, order.OrderID)
	require.Equal(t, models.OrderStatePending, order.State)
	require.True(t, order.TotalPrice.Equal(decimal.RequireFromString("47.50")),
		"total is %s", order.TotalPrice)
	require.Len(t, order.Items, 2)

	var gotLaptop, gotMouse models.Product
	require.NoError(t, db.First(&gotLaptop, laptop.ID).Error)
	require.NoError(t, db.First(&gotMouse, mouse.ID).Error)
	require.Equal(t, 18, gotLaptop.Stock)
	require.Equal(t, 10, gotMouse.Stock)
}

func TestCreateOrderEmpty(t *testing.T) {
	db, r := newTestRepo(t)
	svc := &OrderService{DB: db, Repo: r}
	user := seedUser(t, db, "buyer", "Password1!", models.RoleUser)

	_, err := svc.Create(context.Background(), user.ID, transport.CreateOrderRequest{})
	require.ErrorIs(t, err, ErrEmptyOrder)
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	db, r := newTestRepo(t)
	svc := &OrderService{DB: db, Repo: r}
	user := seedUser(t, db, "buyer", "Password1!", models.RoleUser)

	_, err := svc.Create(context.Background(), user.ID, transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{{ProductID: 999, Quantity: 1}},
	})

	var notFound *ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.EqualValues(t, 999, notFound.ProductID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	db, r := newTestRepo(t)
	svc := &OrderService{DB: db, Repo: r}
	user := seedUser(t, db, "buyer", "Password1!", models.RoleUser)
	product := seedProduct(t, db, "laptop", "10.00", 3)

	_, err := svc.Create(context.Background(), user.ID, transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{{ProductID: product.ID, Quantity: 5}},
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, "laptop", stockErr.ProductName)
	require.Equal(t, 5, stockErr.Requested)
	require.Equal(t, 3, stockErr.Available)
	require.ErrorIs(t, err, ErrConflict)
}

func TestCreateOrderUnavailableProduct(t *testing.T) {
	db, r := newTestRepo(t)
	svc := &OrderService{DB: db, Repo: r}
	user := seedUser(t, db, "buyer", "Password1!", models.RoleUser)
	product := seedProduct(t, db, "discontinued", "10.00", 10)
	require.NoError(t, db.Model(product).Update("available", false).Error)

	_, err := svc.Create(context.Background(), user.ID, transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
	})

	var unavailable *ProductUnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.ErrorIs(t, err, ErrConflict)
}

// A failure on any line must leave every product untouched.
func TestCreateOrderRollsBackOnFailure(t *testing.T) {
	db, r := newTestRepo(t)
	svc := &OrderService{DB: db, Repo: r}
	user := seedUser(t, db, "buyer", "Password1!", models.RoleUser)
	ok := seedProduct(t, db, "in-stock", "10.00", 20)
	scarce := seedProduct(t, db, "scarce", "5.50", 1)

	_, err := svc.Create(context.Background(), user.ID, transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{
			{ProductID: ok.ID, Quantity: 2},
			{ProductID: scarce.ID, Quantity: 5},
		},
	})
	require.ErrorIs(t, err, ErrConflict)

	var gotOK, gotScarce models.Product
	require.NoError(t, db.First(&gotOK, ok.ID).Error)
	require.NoError(t, db.First(&gotScarce, scarce.ID).Error)
	require.Equal(t, 20, gotOK.Stock)
	require.Equal(t, 1, gotScarce.Stock)

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.Zero(t, orderCount)
}

// The same product on two lines is checked against the summed quantity.
func TestCreateOrderAggregatesDuplicateLines(t *testing.T) {
	db, r := newTestRepo(t)
	svc := &OrderService{DB: db, Repo: r}
	user := seedUser(t, db, "buyer", "Password1!", models.RoleUser)
	product := seedProduct(t, db, "laptop", "10.00", 4)

	_, err := svc.Create(context.Background(), user.ID, transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{
			{ProductID: product.ID, Quantity: 3},
			{ProductID: product.ID, Quantity: 3},
		},
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, 6, stockErr.Requested)
	require.Equal(t, 4, stockErr.Available)
}

func TestCreateOrderValidatesItems(t *testing.T) {
	db, r := newTestRepo(t)
	svc := &OrderService{DB: db, Repo: r}
	user := seedUser(t, db, "buyer", "Password1!", models.RoleUser)

	_, err := svc.Create(context.Background(), user.ID, transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{{ProductID: 0, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), user.ID, transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{{ProductID: 1, Quantity: 0}},
	})
	require.ErrorIs(t, err, ErrValidation)
}

// Unit prices are frozen at order time: a later price change must not
// affect an existing order.
func TestOrderSnapshotsPrices(t *testing.T) {
	db, r := newTestRepo(t)
	svc := &OrderService{DB: db, Repo: r}
	user := seedUser(t, db, "buyer", "Password1!", models.RoleUser)
	product := seedProduct(t, db, "laptop", "10.00", 20)

	order, err := svc.Create(context.Background(), user.ID, transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, db.Model(product).Update("price", decimal.RequireFromString("99.99")).Error)

	got, err := svc.GetForUser(context.Background(), order.OrderID, user.ID)
	require.NoError(t, err)
	require.True(t, got.TotalPrice.Equal(decimal.RequireFromString("10.00")))
	require.Len(t, got.Items, 1)
	require.True(t, got.Items[0].UnitPrice.Equal(decimal.RequireFromString("10.00")))
}

// Another user's order id behaves exactly like a nonexistent one.
func TestGetOrderOwnership(t *testing.T) {
	db, r := newTestRepo(t)
	svc := &OrderService{DB: db, Repo: r}
	owner := seedUser(t, db, "owner", "Password1!", models.RoleUser)
	other := seedUser(t, db, "other", "Password1!", models.RoleUser)
	product := seedProduct(t, db, "laptop", "10.00", 20)

	order, err := svc.Create(context.Background(), owner.ID, transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	got, err := svc.GetForUser(context.Background(), order.OrderID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, order.OrderID, got.OrderID)

	_, err = svc.GetForUser(context.Background(), order.OrderID, other.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListOrdersForUser(t *testing.T) {
	db, r := newTestRepo(t)
	svc := &OrderService{DB: db, Repo: r}
	owner := seedUser(t, db, "owner", "Password1!", models.RoleUser)
	other := seedUser(t, db, "other", "Password1!", models.RoleUser)
	product := seedProduct(t, db, "laptop", "10.00", 100)

	for range 3 {
		_, err := svc.Create(context.Background(), owner.ID, transport.CreateOrderRequest{
			Items: []transport.CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
		})
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), other.ID, transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	orders, err := svc.ListForUser(context.Background(), owner.ID, 20, 0)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	for _, o := range orders {
		require.Equal(t, owner.ID, o.UserID)
	}

	page, err := svc.ListForUser(context.Background(), owner.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
}
