package model

import (
	"time"
)

const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// Account 用户积分账户，以 email 作为身份键
type Account struct {
	ID                 int64      `gorm:"primaryKey" json:"id"`
	Email              string     `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Plan               string     `gorm:"size:20;default:free;not null" json:"plan"`
	MonthlyCredits     int        `gorm:"default:0;not null" json:"monthly_credits"`
	LastMonthlyReset   *time.Time `json:"last_monthly_reset,omitempty"`
	SubscriptionStart  *time.Time `json:"subscription_start,omitempty"`
	SubscriptionEnd    *time.Time `json:"subscription_end,omitempty"`
	IsManualAssignment bool       `gorm:"default:false" json:"is_manual_assignment"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}
