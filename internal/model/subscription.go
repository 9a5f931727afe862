package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusFailed    = "failed"
	SubscriptionStatusCancelled = "cancelled"
)

const (
	PaymentKindSubscription = "subscription"
	PaymentKindTopup        = "topup"
)

// SubscriptionRecord 支付事件流水（只追加），payment_id 唯一用于幂等
type SubscriptionRecord struct {
	ID                     int64           `gorm:"primaryKey" json:"id"`
	Email                  string          `gorm:"size:191;not null;index" json:"email"`
	Kind                   string          `gorm:"size:20;not null" json:"kind"` // subscription, topup
	OrderID                string          `gorm:"size:100;index" json:"order_id"`
	PaymentID              *string         `gorm:"size:100;uniqueIndex" json:"payment_id,omitempty"`
	ExternalSubscriptionID string          `gorm:"size:100;index" json:"external_subscription_id,omitempty"`
	Plan                   string          `gorm:"size:20" json:"plan"`
	PackageID              string          `gorm:"size:50" json:"package_id,omitempty"`
	Credits                int             `json:"credits"`
	Amount                 decimal.Decimal `gorm:"type:decimal(10,2)" json:"amount"`
	Currency               string          `gorm:"size:10" json:"currency"`
	Status                 string          `gorm:"size:20;default:active;index" json:"status"` // active, failed, cancelled
	CreatedAt              time.Time       `json:"created_at"`
}

func (SubscriptionRecord) TableName() string {
	return "subscription_records"
}
