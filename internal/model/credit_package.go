package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditPackage 积分包目录
type CreditPackage struct {
	ID        string          `gorm:"primaryKey;size:50" json:"id"`
	Name      string          `gorm:"size:100;not null" json:"name"`
	Credits   int             `gorm:"not null" json:"credits"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Active    bool            `gorm:"not null;index" json:"active"`
	SortOrder int             `gorm:"default:0" json:"sort_order"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (CreditPackage) TableName() string {
	return "credit_packages"
}
