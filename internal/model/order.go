package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"
)

// PaymentOrder 下单时记录的预期支付内容，验签后据此入账
type PaymentOrder struct {
	ID        int64           `gorm:"primaryKey" json:"id"`
	OrderID   string          `gorm:"size:100;uniqueIndex;not null" json:"order_id"`
	Receipt   string          `gorm:"size:64;not null" json:"receipt"`
	Email     string          `gorm:"size:191;not null;index" json:"email"`
	Kind      string          `gorm:"size:20;not null" json:"kind"`
	PackageID string          `gorm:"size:50" json:"package_id,omitempty"`
	Credits   int             `json:"credits"`
	Amount    decimal.Decimal `gorm:"type:decimal(10,2)" json:"amount"`
	Currency  string          `gorm:"size:10" json:"currency"`
	Status    string          `gorm:"size:20;default:pending;index" json:"status"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (PaymentOrder) TableName() string {
	return "payment_orders"
}
