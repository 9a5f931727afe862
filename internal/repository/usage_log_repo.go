package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/credit_go_server/internal/model"
)

type UsageLogRepository struct {
	db *gorm.DB
}

func NewUsageLogRepository(db *gorm.DB) *UsageLogRepository {
	return &UsageLogRepository{db: db}
}

func (r *UsageLogRepository) Create(ctx context.Context, entry *model.UsageLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *UsageLogRepository) ListByEmail(ctx context.Context, email string, limit int) ([]model.UsageLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var logs []model.UsageLog
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// DeleteBefore 清理早于 cutoff 的记录
func (r *UsageLogRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.UsageLog{})
	return result.RowsAffected, result.Error
}
