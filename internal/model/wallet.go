package model

import "time"

// CreditWallet 建站积分钱包：每周额度 + 购买额度两个独立池
type CreditWallet struct {
	ID               int64     `gorm:"primaryKey" json:"id"`
	Email            string    `gorm:"size:191;uniqueIndex;not null" json:"email"`
	WeeklyCredits    int       `gorm:"default:0;not null" json:"weekly_credits"`
	PurchasedCredits int       `gorm:"default:0;not null" json:"purchased_credits"`
	WeekStartDate    time.Time `gorm:"not null" json:"week_start_date"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (CreditWallet) TableName() string {
	return "credit_wallets"
}

// Total 可用总额
func (w *CreditWallet) Total() int {
	return w.WeeklyCredits + w.PurchasedCredits
}
