package service

import (
	"context"
	"time"

	"github.com/qs3c/credit_go_server/internal/ledger"
	"github.com/qs3c/credit_go_server/internal/model"
	"github.com/qs3c/credit_go_server/internal/pkg/metrics"
	"github.com/qs3c/credit_go_server/internal/repository"
)

// ConsumeInput AI 调用扣费请求
type ConsumeInput struct {
	Email         string
	Model         string
	OperationType string
	// Cost 仅 pro 套餐生效，free 始终按固定费用
	Cost *int
}

// ConsumeResult 扣费结果
type ConsumeResult struct {
	CreditsConsumed  int    `json:"creditsConsumed"`
	CreditsRemaining int    `json:"creditsRemaining"`
	Plan             string `json:"plan"`
}

// CreditSnapshot 月度积分快照
type CreditSnapshot struct {
	Plan             string     `json:"plan"`
	IsPro            bool       `json:"isPro"`
	IsExpired        bool       `json:"isExpired"`
	MonthlyCredits   int        `json:"monthlyCredits"`
	LastMonthlyReset *time.Time `json:"lastMonthlyReset"`
	NextMonthlyReset time.Time  `json:"nextMonthlyReset"`
	AllowedModels    []string   `json:"allowedModels"`
}

// CreditService 月度 AI 积分
type CreditService struct {
	*Core
}

func NewCreditService(core *Core) *CreditService {
	return &CreditService{Core: core}
}

// Snapshot 读取月度积分（含懒创建与重置检查）
func (s *CreditService) Snapshot(ctx context.Context, email string) (*CreditSnapshot, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	email = ledger.NormalizeEmail(email)
	now := s.clock()

	acc, err := s.ensureAccount(ctx, s.store, email, now)
	if err != nil {
		return nil, err
	}
	ent := s.resolver.Resolve(acc, now)

	return &CreditSnapshot{
		Plan:             ent.Plan,
		IsPro:            ent.IsPro,
		IsExpired:        ent.IsExpired,
		MonthlyCredits:   acc.MonthlyCredits,
		LastMonthlyReset: acc.LastMonthlyReset,
		NextMonthlyReset: s.policy.NextMonthlyReset(acc, now),
		AllowedModels:    s.gate.AllowedModels(ent.GatePlan()),
	}, nil
}

// Consume 校验模型准入后原子扣减月度积分
func (s *CreditService) Consume(ctx context.Context, in ConsumeInput) (*ConsumeResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	email := ledger.NormalizeEmail(in.Email)
	now := s.clock()

	acc, err := s.ensureAccount(ctx, s.store, email, now)
	if err != nil {
		metrics.DeductionsTotal.WithLabelValues(model.PoolMonthly, "error").Inc()
		return nil, err
	}

	ent := s.resolver.Resolve(acc, now)
	plan := ent.GatePlan()

	cost, err := s.gate.Authorize(plan, in.Model)
	if err != nil {
		metrics.DeductionsTotal.WithLabelValues(model.PoolMonthly, "forbidden").Inc()
		return nil, err
	}
	if in.Cost != nil && plan == model.PlanPro {
		if *in.Cost < 0 {
			return nil, ledger.ErrInvalidAmount
		}
		cost = *in.Cost
	}

	var remaining int
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		ok, err := tx.Accounts.DeductMonthly(ctx, email, cost)
		if err != nil {
			return ledger.Unavailable(err)
		}
		current, err := s.getAccount(ctx, tx, email)
		if err != nil {
			return err
		}
		if !ok {
			return &ledger.InsufficientCreditsError{Required: cost, Available: current.MonthlyCredits}
		}
		remaining = current.MonthlyCredits
		acc = current
		return nil
	})
	if err != nil {
		outcome := "error"
		if ledger.Code(err) == ledger.CodeInsufficientCredits {
			outcome = "insufficient"
		}
		metrics.DeductionsTotal.WithLabelValues(model.PoolMonthly, outcome).Inc()
		return nil, ledger.Wrap(err)
	}

	metrics.DeductionsTotal.WithLabelValues(model.PoolMonthly, "ok").Inc()
	metrics.CreditsConsumedTotal.WithLabelValues(model.PoolMonthly).Add(float64(cost))

	s.recorder.Record(&model.UsageLog{
		Email:         email,
		Pool:          model.PoolMonthly,
		Model:         in.Model,
		OperationType: in.OperationType,
		CreditsUsed:   cost,
		BalanceAfter:  remaining,
		CreatedAt:     now,
	})
	s.publish(accountMessage(email, "consume", acc))

	return &ConsumeResult{
		CreditsConsumed:  cost,
		CreditsRemaining: remaining,
		Plan:             ent.Plan,
	}, nil
}
