package service

import (
	"context"
	"time"

	"github.com/qs3c/credit_go_server/internal/ledger"
	"github.com/qs3c/credit_go_server/internal/model"
	"github.com/qs3c/credit_go_server/internal/pkg/metrics"
	"github.com/qs3c/credit_go_server/internal/repository"
)

// DailyCounter 每日生成次数计数
type DailyCounter interface {
	Count(ctx context.Context, email string, now time.Time) (int, error)
	Incr(ctx context.Context, email string, now time.Time) (int, error)
}

// WalletSnapshot 建站钱包余额
type WalletSnapshot struct {
	Weekly        int       `json:"weekly"`
	Purchased     int       `json:"purchased"`
	Total         int       `json:"total"`
	WeekStartDate time.Time `json:"weekStartDate"`
	NextReset     time.Time `json:"nextReset"`
	IsPro         bool      `json:"isPro"`
}

func newWalletSnapshot(w *model.CreditWallet, next time.Time, isPro bool) *WalletSnapshot {
	return &WalletSnapshot{
		Weekly:        w.WeeklyCredits,
		Purchased:     w.PurchasedCredits,
		Total:         w.Total(),
		WeekStartDate: w.WeekStartDate,
		NextReset:     next,
		IsPro:         isPro,
	}
}

// WalletService 建站积分（每周额度 + 购买额度）
type WalletService struct {
	*Core
	counter DailyCounter
}

func NewWalletService(core *Core, counter DailyCounter) *WalletService {
	return &WalletService{Core: core, counter: counter}
}

// GetCredits 读取钱包，读取前执行每周重置检查
func (s *WalletService) GetCredits(ctx context.Context, email string) (*WalletSnapshot, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	email = ledger.NormalizeEmail(email)
	now := s.clock()

	acc, err := s.ensureAccount(ctx, s.store, email, now)
	if err != nil {
		return nil, err
	}
	ent := s.resolver.Resolve(acc, now)

	w, err := s.ensureWallet(ctx, s.store, email, ent.GatePlan(), now)
	if err != nil {
		return nil, err
	}
	return newWalletSnapshot(w, s.policy.NextWeeklyReset(w), ent.IsPro), nil
}

// Deduct 先扣每周额度再扣购买额度，总额不足时不做任何修改并返回
// *ledger.InsufficientCreditsError（携带两个池的当前余额）
func (s *WalletService) Deduct(ctx context.Context, email string, amount int, description string) (*WalletSnapshot, error) {
	if amount <= 0 {
		return nil, ledger.ErrInvalidAmount
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	email = ledger.NormalizeEmail(email)
	now := s.clock()

	acc, err := s.ensureAccount(ctx, s.store, email, now)
	if err != nil {
		metrics.DeductionsTotal.WithLabelValues(model.PoolWallet, "error").Inc()
		return nil, err
	}
	ent := s.resolver.Resolve(acc, now)

	// 先完成每周重置，扣减看到的是重置后的余额
	if _, err := s.ensureWallet(ctx, s.store, email, ent.GatePlan(), now); err != nil {
		metrics.DeductionsTotal.WithLabelValues(model.PoolWallet, "error").Inc()
		return nil, err
	}

	var w *model.CreditWallet
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		ok, err := tx.Wallets.Deduct(ctx, email, amount, now)
		if err != nil {
			return ledger.Unavailable(err)
		}
		current, err := tx.Wallets.GetByEmail(ctx, email)
		if err != nil {
			return ledger.Unavailable(err)
		}
		if !ok {
			return &ledger.InsufficientCreditsError{
				Required:  amount,
				Available: current.Total(),
				Weekly:    current.WeeklyCredits,
				Purchased: current.PurchasedCredits,
			}
		}
		w = current
		return nil
	})
	if err != nil {
		outcome := "error"
		if ledger.Code(err) == ledger.CodeInsufficientCredits {
			outcome = "insufficient"
		}
		metrics.DeductionsTotal.WithLabelValues(model.PoolWallet, outcome).Inc()
		return nil, ledger.Wrap(err)
	}

	metrics.DeductionsTotal.WithLabelValues(model.PoolWallet, "ok").Inc()
	metrics.CreditsConsumedTotal.WithLabelValues(model.PoolWallet).Add(float64(amount))

	if s.counter != nil {
		if _, err := s.counter.Incr(ctx, email, now); err != nil {
			s.log.Warn().Err(err).Str("email", email).Msg("daily generation counter incr failed")
		}
	}

	s.recorder.Record(&model.UsageLog{
		Email:         email,
		Pool:          model.PoolWallet,
		OperationType: "website_generation",
		Description:   description,
		CreditsUsed:   amount,
		BalanceAfter:  w.Total(),
		CreatedAt:     now,
	})
	s.publish(walletMessage(email, "consume", w))

	return newWalletSnapshot(w, s.policy.NextWeeklyReset(w), ent.IsPro), nil
}
