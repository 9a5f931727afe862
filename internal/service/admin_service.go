package service

import (
	"context"
	"time"

	"github.com/qs3c/credit_go_server/internal/ledger"
	"github.com/qs3c/credit_go_server/internal/model"
	"github.com/qs3c/credit_go_server/internal/pkg/pubsub"
	"github.com/qs3c/credit_go_server/internal/repository"
)

// AdjustResult 人工调整后的余额
type AdjustResult struct {
	Email          string `json:"email"`
	MonthlyCredits int    `json:"monthlyCredits"`
	Weekly         int    `json:"weekly"`
	Purchased      int    `json:"purchased"`
	Total          int    `json:"total"`
}

// AdminService 运营侧操作：分配/取消套餐、调整积分。不经过支付校验。
type AdminService struct {
	*Core
}

func NewAdminService(core *Core) *AdminService {
	return &AdminService{Core: core}
}

// AssignPlan 为已存在的账户分配套餐。pro 且 months 为 0 表示不过期。
func (s *AdminService) AssignPlan(ctx context.Context, email, plan string, months int) (*ReconcileResult, error) {
	if plan != model.PlanFree && plan != model.PlanPro {
		return nil, ledger.ErrInvalidPlan
	}
	if months < 0 {
		return nil, ledger.ErrInvalidAmount
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	email = ledger.NormalizeEmail(email)
	now := s.clock()

	var start, end *time.Time
	if plan == model.PlanPro {
		start = &now
		if months > 0 {
			e := now.AddDate(0, months, 0)
			end = &e
		}
	}

	result := &ReconcileResult{Kind: model.PaymentKindSubscription}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		ok, err := tx.Accounts.SetPlan(ctx, email, plan, s.policy.MonthlySeed(plan), start, end, true, now)
		if err != nil {
			return ledger.Unavailable(err)
		}
		if !ok {
			return ledger.ErrAccountNotFound
		}
		err = tx.Subscriptions.Create(ctx, &model.SubscriptionRecord{
			Email:  email,
			Kind:   model.PaymentKindSubscription,
			Plan:   plan,
			Status: model.SubscriptionStatusActive,
		})
		if err != nil {
			return ledger.Unavailable(err)
		}

		acc, err := s.getAccount(ctx, tx, email)
		if err != nil {
			return err
		}
		ent := s.resolver.Resolve(acc, now)
		result.Plan = ent.Plan
		result.MonthlyCredits = acc.MonthlyCredits
		result.SubscriptionEnd = acc.SubscriptionEnd
		return nil
	})
	if err != nil {
		return nil, ledger.Wrap(err)
	}

	s.log.Info().Str("email", email).Str("plan", plan).Int("months", months).Msg("plan assigned by operator")
	monthly := result.MonthlyCredits
	s.publish(accountMessage(email, "admin", &model.Account{Plan: result.Plan, MonthlyCredits: monthly}))
	return result, nil
}

// CancelPlan 人工取消订阅
func (s *AdminService) CancelPlan(ctx context.Context, email string) (*ReconcileResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.cancelPlan(ctx, email, "", "admin")
}

// AdjustCredits 增减月度积分与购买积分，任一结果为负则整体不生效
func (s *AdminService) AdjustCredits(ctx context.Context, email string, monthlyDelta, purchasedDelta int) (*AdjustResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	email = ledger.NormalizeEmail(email)
	now := s.clock()

	result := &AdjustResult{Email: email}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		acc, err := s.getAccount(ctx, tx, email)
		if err != nil {
			return err
		}
		if monthlyDelta != 0 {
			ok, err := tx.Accounts.AdjustMonthly(ctx, email, monthlyDelta)
			if err != nil {
				return ledger.Unavailable(err)
			}
			if !ok {
				return ledger.ErrInvalidAmount
			}
		}

		ent := s.resolver.Resolve(acc, now)
		if _, err := s.ensureWallet(ctx, tx, email, ent.GatePlan(), now); err != nil {
			return err
		}
		if purchasedDelta != 0 {
			ok, err := tx.Wallets.AdjustPurchased(ctx, email, purchasedDelta)
			if err != nil {
				return ledger.Unavailable(err)
			}
			if !ok {
				return ledger.ErrInvalidAmount
			}
		}

		acc, err = s.getAccount(ctx, tx, email)
		if err != nil {
			return err
		}
		w, err := tx.Wallets.GetByEmail(ctx, email)
		if err != nil {
			return ledger.Unavailable(err)
		}
		result.MonthlyCredits = acc.MonthlyCredits
		result.Weekly = w.WeeklyCredits
		result.Purchased = w.PurchasedCredits
		result.Total = w.Total()
		return nil
	})
	if err != nil {
		return nil, ledger.Wrap(err)
	}

	s.log.Info().Str("email", email).Int("monthly_delta", monthlyDelta).Int("purchased_delta", purchasedDelta).Msg("credits adjusted by operator")
	monthly, weekly, purchased, total := result.MonthlyCredits, result.Weekly, result.Purchased, result.Total
	s.publish(&pubsub.BalanceMessage{
		Email:            email,
		Reason:           "admin",
		MonthlyCredits:   &monthly,
		WeeklyCredits:    &weekly,
		PurchasedCredits: &purchased,
		TotalCredits:     &total,
	})
	return result, nil
}
