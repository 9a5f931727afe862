package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/credit_go_server/internal/model"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, acc *model.Account) error {
	return r.db.WithContext(ctx).Create(acc).Error
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	var acc model.Account
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&acc).Error
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// GetOrCreate 不存在时以 seed 创建，并发创建时以先写入者为准
func (r *AccountRepository) GetOrCreate(ctx context.Context, seed *model.Account) (*model.Account, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error
	if err != nil {
		return nil, err
	}
	return r.GetByEmail(ctx, seed.Email)
}

// DeductMonthly 原子扣减月度积分，余额不足时不修改并返回 false
func (r *AccountRepository) DeductMonthly(ctx context.Context, email string, cost int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("email = ? AND monthly_credits >= ?", email, cost).
		Update("monthly_credits", gorm.Expr("monthly_credits - ?", cost))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ResetMonthly 发放新周期额度。条件更新保证同一周期内只会重置一次：
// 只有锚点为空或早于 cutoff 的行会被修改。
func (r *AccountRepository) ResetMonthly(ctx context.Context, email string, credits int, anchor, cutoff time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("email = ? AND (last_monthly_reset IS NULL OR last_monthly_reset <= ?)", email, cutoff).
		Updates(map[string]interface{}{
			"monthly_credits":    credits,
			"last_monthly_reset": anchor,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AdjustMonthly 增减月度积分，结果不能为负
func (r *AccountRepository) AdjustMonthly(ctx context.Context, email string, delta int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("email = ? AND monthly_credits + ? >= 0", email, delta).
		Update("monthly_credits", gorm.Expr("monthly_credits + ?", delta))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetPlan 设置套餐、重置月度额度与订阅窗口
func (r *AccountRepository) SetPlan(ctx context.Context, email string, plan string, credits int, start, end *time.Time, manual bool, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("email = ?", email).
		Updates(map[string]interface{}{
			"plan":                 plan,
			"monthly_credits":      credits,
			"last_monthly_reset":   now,
			"subscription_start":   start,
			"subscription_end":     end,
			"is_manual_assignment": manual,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Account{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}
