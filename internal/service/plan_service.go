package service

import (
	"context"
	"time"

	"github.com/qs3c/credit_go_server/internal/ledger"
)

// PlanSnapshot 套餐与当日生成次数
type PlanSnapshot struct {
	Plan            string     `json:"plan"`
	IsPro           bool       `json:"isPro"`
	IsExpired       bool       `json:"isExpired"`
	CanGenerate     bool       `json:"canGenerate"`
	DailyCount      int        `json:"dailyCount"`
	DailyLimit      int        `json:"dailyLimit"`
	SubscriptionEnd *time.Time `json:"subscriptionEnd"`
	AllowedModels   []string   `json:"allowedModels"`
}

type PlanService struct {
	*Core
	counter DailyCounter
}

func NewPlanService(core *Core, counter DailyCounter) *PlanService {
	return &PlanService{Core: core, counter: counter}
}

// GetPlan 计算有效套餐与生成额度。未配置计数器时只按上限判断；
// 计数器故障时拒绝生成而不是放行。
func (s *PlanService) GetPlan(ctx context.Context, email string) (*PlanSnapshot, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	email = ledger.NormalizeEmail(email)
	now := s.clock()

	acc, err := s.ensureAccount(ctx, s.store, email, now)
	if err != nil {
		return nil, err
	}
	ent := s.resolver.Resolve(acc, now)

	snap := &PlanSnapshot{
		Plan:            ent.Plan,
		IsPro:           ent.IsPro,
		IsExpired:       ent.IsExpired,
		DailyLimit:      s.cfg.Ledger.Plan(ent.GatePlan()).DailyGenerations,
		SubscriptionEnd: acc.SubscriptionEnd,
		AllowedModels:   s.gate.AllowedModels(ent.GatePlan()),
	}

	if s.counter == nil {
		snap.CanGenerate = snap.DailyLimit > 0
		return snap, nil
	}
	count, err := s.counter.Count(ctx, email, now)
	if err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("daily generation counter unavailable")
		return snap, nil
	}
	snap.DailyCount = count
	snap.CanGenerate = count < snap.DailyLimit
	return snap, nil
}
