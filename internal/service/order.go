package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nbarsukov/shop-backend/internal/logging"
	"github.com/nbarsukov/shop-backend/internal/models"
	"github.com/nbarsukov/shop-backend/internal/repo"
	"github.com/nbarsukov/shop-backend/internal/transport"
)

type OrderService struct {
	DB   *gorm.DB
	Repo *repo.GormRepo
}

// Create places an order: it locks every referenced product, validates the
// whole request, and only then snapshots prices, decrements stock and writes
// the order — all inside one transaction. A failure on any item rolls back
// everything, so either the full order commits or nothing does.
func (s *OrderService) Create(ctx context.Context, userID uint64, req transport.CreateOrderRequest) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.create", "user_id", userID)

	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	// A product may appear on several lines; stock is checked against the
	// summed quantity so duplicate lines cannot slip past a per-line check.
	requested := make(map[uint64]int, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == 0 {
			return nil, fmt.Errorf("%w: product_id required", ErrValidation)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
		}
		requested[item.ProductID] += item.Quantity
	}

	// Ascending id order keeps concurrent overlapping orders taking their
	// row locks in the same sequence, so they cannot deadlock.
	ids := make([]uint64, 0, len(requested))
	for id := range requested {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var order *models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)

		products, err := r.GetProductsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		productMap := make(map[uint64]*models.Product, len(products))
		for i := range products {
			productMap[products[i].ID] = &products[i]
		}

		for _, item := range req.Items {
			product, ok := productMap[item.ProductID]
			if !ok {
				return &ProductNotFoundError{ProductID: item.ProductID}
			}
			if product.Stock < requested[product.ID] {
				return &InsufficientStockError{
					ProductID:   product.ID,
					ProductName: product.Name,
					Requested:   requested[product.ID],
					Available:   product.Stock,
				}
			}
			if !product.Available {
				return &ProductUnavailableError{ProductName: product.Name}
			}
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(req.Items))
		for _, item := range req.Items {
			product := productMap[item.ProductID]
			items = append(items, models.OrderItem{
				ProductID: product.ID,
				Quantity:  item.Quantity,
				UnitPrice: product.Price,
			})
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		for _, id := range ids {
			product := productMap[id]
			if err := r.UpdateProductStock(ctx, id, product.Stock-requested[id]); err != nil {
				return err
			}
		}

		order = &models.Order{
			UserID:     userID,
			TotalPrice: total,
			State:      models.OrderStatePending,
			Items:      items,
		}
		return r.CreateOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	l.Info("order_created", "order_id", order.OrderID, "total_price", order.TotalPrice.String())
	return order, nil
}

func (s *OrderService) GetForUser(ctx context.Context, orderID, userID uint64) (*models.Order, error) {
	order, err := s.Repo.GetOrderForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order with id %d", ErrNotFound, orderID)
		}
		return nil, err
	}
	return order, nil
}

func (s *OrderService) ListForUser(ctx context.Context, userID uint64, limit, offset int) ([]models.Order, error) {
	return s.Repo.ListOrdersForUser(ctx, userID, limit, offset)
}
