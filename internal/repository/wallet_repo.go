package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/credit_go_server/internal/model"
)

// deductWalletSQL 先扣每周额度，不足部分从购买额度扣除；总额不足时不命中任何行。
// purchased_credits 必须写在 weekly_credits 之前：MySQL 单表 UPDATE 按从左到右求值，
// 后面的表达式会看到前面已赋的新值。
const deductWalletSQL = `
UPDATE credit_wallets
SET purchased_credits = CASE WHEN weekly_credits >= ? THEN purchased_credits ELSE purchased_credits - (? - weekly_credits) END,
    weekly_credits = CASE WHEN weekly_credits >= ? THEN weekly_credits - ? ELSE 0 END,
    updated_at = ?
WHERE email = ? AND weekly_credits + purchased_credits >= ?`

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) GetByEmail(ctx context.Context, email string) (*model.CreditWallet, error) {
	var w model.CreditWallet
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetOrCreate 不存在时以 seed 创建
func (r *WalletRepository) GetOrCreate(ctx context.Context, seed *model.CreditWallet) (*model.CreditWallet, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error
	if err != nil {
		return nil, err
	}
	return r.GetByEmail(ctx, seed.Email)
}

// Deduct 两池原子扣减，全部成功或完全不修改
func (r *WalletRepository) Deduct(ctx context.Context, email string, amount int, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Exec(deductWalletSQL,
		amount, amount, amount, amount, now, email, amount)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ResetWeekly 发放新一周额度，条件同 AccountRepository.ResetMonthly
func (r *WalletRepository) ResetWeekly(ctx context.Context, email string, credits int, anchor, cutoff time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.CreditWallet{}).
		Where("email = ? AND week_start_date <= ?", email, cutoff).
		Updates(map[string]interface{}{
			"weekly_credits":  credits,
			"week_start_date": anchor,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AddPurchased 增加购买额度
func (r *WalletRepository) AddPurchased(ctx context.Context, email string, credits int) (bool, error) {
	return r.AdjustPurchased(ctx, email, credits)
}

// AdjustPurchased 增减购买额度，结果不能为负
func (r *WalletRepository) AdjustPurchased(ctx context.Context, email string, delta int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.CreditWallet{}).
		Where("email = ? AND purchased_credits + ? >= 0", email, delta).
		Update("purchased_credits", gorm.Expr("purchased_credits + ?", delta))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
