package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/qs3c/credit_go_server/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Create 追加一条支付流水，payment_id 重复时返回 gorm.ErrDuplicatedKey
func (r *SubscriptionRepository) Create(ctx context.Context, rec *model.SubscriptionRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *SubscriptionRepository) ExistsByPaymentID(ctx context.Context, paymentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.SubscriptionRecord{}).
		Where("payment_id = ?", paymentID).Count(&count).Error
	return count > 0, err
}

// GetLatestByExternalID 按外部订阅 ID 查找最近一条记录（webhook 没有 email 时使用）
func (r *SubscriptionRepository) GetLatestByExternalID(ctx context.Context, externalID string) (*model.SubscriptionRecord, error) {
	var rec model.SubscriptionRecord
	err := r.db.WithContext(ctx).
		Where("external_subscription_id = ?", externalID).
		Order("id DESC").
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *SubscriptionRepository) ListByEmail(ctx context.Context, email string, limit int) ([]model.SubscriptionRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var records []model.SubscriptionRecord
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
