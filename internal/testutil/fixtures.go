package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/qs3c/credit_go_server/internal/model"
)

var seq int64

// UniqueEmail 生成不重复的测试邮箱
func UniqueEmail() string {
	return fmt.Sprintf("test_%d_%d@example.com", time.Now().UnixNano(), atomic.AddInt64(&seq, 1))
}

// TestAccount 创建测试账户，默认 free 套餐且本周期已发放
func TestAccount(t *testing.T, db *gorm.DB, opts ...func(*model.Account)) *model.Account {
	t.Helper()

	now := time.Now().UTC()
	acc := &model.Account{
		Email:            UniqueEmail(),
		Plan:             model.PlanFree,
		MonthlyCredits:   5000,
		LastMonthlyReset: &now,
	}

	for _, opt := range opts {
		opt(acc)
	}

	if err := db.Create(acc).Error; err != nil {
		t.Fatalf("Failed to create test account: %v", err)
	}

	return acc
}

// WithAccountEmail 设置邮箱
func WithAccountEmail(email string) func(*model.Account) {
	return func(a *model.Account) {
		a.Email = email
	}
}

// WithPlan 设置套餐
func WithPlan(plan string) func(*model.Account) {
	return func(a *model.Account) {
		a.Plan = plan
	}
}

// WithMonthlyCredits 设置月度积分
func WithMonthlyCredits(credits int) func(*model.Account) {
	return func(a *model.Account) {
		a.MonthlyCredits = credits
	}
}

// WithLastMonthlyReset 设置上次月度重置时间，nil 表示从未重置
func WithLastMonthlyReset(at *time.Time) func(*model.Account) {
	return func(a *model.Account) {
		a.LastMonthlyReset = at
	}
}

// WithSubscriptionEnd 设置订阅到期时间
func WithSubscriptionEnd(end time.Time) func(*model.Account) {
	return func(a *model.Account) {
		start := end.AddDate(0, 0, -30)
		a.SubscriptionStart = &start
		a.SubscriptionEnd = &end
	}
}

// TestWallet 创建测试钱包
func TestWallet(t *testing.T, db *gorm.DB, email string, weekly, purchased int, weekStart time.Time) *model.CreditWallet {
	t.Helper()

	w := &model.CreditWallet{
		Email:            email,
		WeeklyCredits:    weekly,
		PurchasedCredits: purchased,
		WeekStartDate:    weekStart,
	}

	if err := db.Create(w).Error; err != nil {
		t.Fatalf("Failed to create test wallet: %v", err)
	}

	return w
}

// TestPackage 创建测试积分包
func TestPackage(t *testing.T, db *gorm.DB, id string, credits int, price string) *model.CreditPackage {
	t.Helper()

	pkg := &model.CreditPackage{
		ID:      id,
		Name:    fmt.Sprintf("%d Credits", credits),
		Credits: credits,
		Price:   decimal.RequireFromString(price),
		Active:  true,
	}

	if err := db.Create(pkg).Error; err != nil {
		t.Fatalf("Failed to create test package: %v", err)
	}

	return pkg
}
