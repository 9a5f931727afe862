package model

import "gorm.io/gorm"

// AutoMigrate 同步所有表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Account{},
		&CreditWallet{},
		&SubscriptionRecord{},
		&PaymentOrder{},
		&CreditPackage{},
		&UsageLog{},
	)
}
