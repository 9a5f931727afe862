package model

import "time"

const (
	PoolMonthly = "monthly"
	PoolWallet  = "wallet"
)

// UsageLog 扣费记录（尽力写入，不作为账务依据）
type UsageLog struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	Email         string    `gorm:"size:191;not null;index" json:"email"`
	Pool          string    `gorm:"size:20;not null" json:"pool"`
	Model         string    `gorm:"size:100" json:"model,omitempty"`
	OperationType string    `gorm:"size:50" json:"operation_type"`
	Description   string    `gorm:"size:255" json:"description,omitempty"`
	CreditsUsed   int       `json:"credits_used"`
	BalanceAfter  int       `json:"balance_after"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

func (UsageLog) TableName() string {
	return "usage_logs"
}
