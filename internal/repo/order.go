package repo

import (
	"context"

	"github.com/nbarsukov/shop-backend/internal/models"
)

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Create(order).Error
}

// GetOrderForUser filters on (order_id, user_id) in the query itself, so an
// order owned by someone else is indistinguishable from a missing one.
func (r *GormRepo) GetOrderForUser(ctx context.Context, orderID, userID uint64) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).Preload("Items").
		Where("order_id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrdersForUser(ctx context.Context, userID uint64, limit, offset int) ([]models.Order, error) {
	q := r.DB.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID).
		Order("order_date DESC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}

	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
