package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store 聚合所有仓储，Transaction 内的仓储共享同一个事务
type Store struct {
	db *gorm.DB

	Accounts      *AccountRepository
	Wallets       *WalletRepository
	Subscriptions *SubscriptionRepository
	Orders        *OrderRepository
	Packages      *PackageRepository
	UsageLogs     *UsageLogRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Accounts:      NewAccountRepository(db),
		Wallets:       NewWalletRepository(db),
		Subscriptions: NewSubscriptionRepository(db),
		Orders:        NewOrderRepository(db),
		Packages:      NewPackageRepository(db),
		UsageLogs:     NewUsageLogRepository(db),
	}
}

// Transaction 在单个数据库事务中执行 fn，fn 返回错误时整体回滚
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// DB 底层连接
func (s *Store) DB() *gorm.DB {
	return s.db
}
