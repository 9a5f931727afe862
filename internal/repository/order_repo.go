package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/credit_go_server/internal/model"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *model.PaymentOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *OrderRepository) GetByOrderID(ctx context.Context, orderID string) (*model.PaymentOrder, error) {
	var order model.PaymentOrder
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkPaid 标记订单已支付，已支付的订单保持不变
func (r *OrderRepository) MarkPaid(ctx context.Context, orderID string, paidAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.PaymentOrder{}).
		Where("order_id = ? AND status <> ?", orderID, model.OrderStatusPaid).
		Updates(map[string]interface{}{
			"status":  model.OrderStatusPaid,
			"paid_at": paidAt,
		}).Error
}

// ExpirePending 将创建早于 before 仍未支付的订单标记为失败
func (r *OrderRepository) ExpirePending(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.PaymentOrder{}).
		Where("status = ? AND created_at < ?", model.OrderStatusPending, before).
		Update("status", model.OrderStatusFailed)
	return result.RowsAffected, result.Error
}
