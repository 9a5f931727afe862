package service

import (
	"context"

	"github.com/qs3c/credit_go_server/internal/ledger"
	"github.com/qs3c/credit_go_server/internal/model"
	"github.com/qs3c/credit_go_server/internal/repository"
)

// cancelPlan 降级为 free、重置月度额度并清空订阅窗口，同时追加一条 cancelled 记录。
// 白名单账户直接返回当前状态。
func (c *Core) cancelPlan(ctx context.Context, email, externalSubscriptionID, source string) (*ReconcileResult, error) {
	email = ledger.NormalizeEmail(email)
	now := c.clock()

	result := &ReconcileResult{Kind: model.PaymentKindSubscription}
	if c.resolver.IsSpecial(email) {
		acc, err := c.getAccount(ctx, c.store, email)
		if err != nil {
			return nil, err
		}
		c.log.Info().Str("email", email).Str("source", source).Msg("cancellation skipped for special account")
		result.Plan = model.PlanPro
		result.MonthlyCredits = acc.MonthlyCredits
		result.SubscriptionEnd = acc.SubscriptionEnd
		return result, nil
	}

	err := c.store.Transaction(ctx, func(tx *repository.Store) error {
		ok, err := tx.Accounts.SetPlan(ctx, email, model.PlanFree, c.policy.MonthlySeed(model.PlanFree), nil, nil, false, now)
		if err != nil {
			return ledger.Unavailable(err)
		}
		if !ok {
			return ledger.ErrAccountNotFound
		}
		err = tx.Subscriptions.Create(ctx, &model.SubscriptionRecord{
			Email:                  email,
			Kind:                   model.PaymentKindSubscription,
			ExternalSubscriptionID: externalSubscriptionID,
			Plan:                   model.PlanFree,
			Status:                 model.SubscriptionStatusCancelled,
		})
		if err != nil {
			return ledger.Unavailable(err)
		}
		result.Plan = model.PlanFree
		result.MonthlyCredits = c.policy.MonthlySeed(model.PlanFree)
		return nil
	})
	if err != nil {
		return nil, ledger.Wrap(err)
	}

	c.log.Info().Str("email", email).Str("source", source).Msg("subscription cancelled")
	monthly := result.MonthlyCredits
	c.publish(accountMessage(email, "subscription", &model.Account{Plan: model.PlanFree, MonthlyCredits: monthly}))
	return result, nil
}
