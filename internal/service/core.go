package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/qs3c/credit_go_server/config"
	"github.com/qs3c/credit_go_server/internal/ledger"
	"github.com/qs3c/credit_go_server/internal/model"
	"github.com/qs3c/credit_go_server/internal/pkg/metrics"
	"github.com/qs3c/credit_go_server/internal/pkg/pubsub"
	"github.com/qs3c/credit_go_server/internal/repository"
)

// Notifier 余额变更通知（尽力而为）
type Notifier interface {
	PublishBalance(ctx context.Context, msg *pubsub.BalanceMessage) error
}

// Option 配置 Core
type Option func(*Core)

// WithClock 注入时钟，测试用
func WithClock(now func() time.Time) Option {
	return func(c *Core) { c.now = now }
}

// WithNotifier 注入余额变更通知
func WithNotifier(n Notifier) Option {
	return func(c *Core) { c.notifier = n }
}

// WithRecorder 注入使用记录器
func WithRecorder(r UsageRecorder) Option {
	return func(c *Core) { c.recorder = r }
}

// Core 各积分服务共享的账本依赖：存储、规则、时钟与超时
type Core struct {
	store    *repository.Store
	cfg      *config.Config
	policy   ledger.ResetPolicy
	resolver *ledger.Resolver
	gate     *ledger.Gate
	timeout  time.Duration
	now      func() time.Time
	notifier Notifier
	recorder UsageRecorder
	log      zerolog.Logger
}

func NewCore(store *repository.Store, cfg *config.Config, opts ...Option) *Core {
	c := &Core{
		store:    store,
		cfg:      cfg,
		policy:   ledger.PolicyFromConfig(&cfg.Ledger),
		resolver: ledger.NewResolver(cfg.Ledger.SpecialAccounts),
		gate:     ledger.GateFromConfig(cfg),
		timeout:  cfg.Ledger.StoreTimeout(),
		now:      time.Now,
		recorder: NopRecorder{},
		log:      log.With().Str("component", "ledger").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Gate 模型访问控制
func (c *Core) Gate() *ledger.Gate {
	return c.gate
}

// Resolver 有效套餐计算
func (c *Core) Resolver() *ledger.Resolver {
	return c.resolver
}

// clock 当前 UTC 时间，截断到毫秒与 DATETIME(3) 精度一致
func (c *Core) clock() time.Time {
	return c.now().UTC().Truncate(time.Millisecond)
}

func (c *Core) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Core) monthlyCutoff(now time.Time) time.Time {
	return now.Add(-time.Duration(c.policy.MonthlyPeriodDays) * 24 * time.Hour)
}

func (c *Core) weeklyCutoff(now time.Time) time.Time {
	return now.Add(-time.Duration(c.policy.WeeklyPeriodDays) * 24 * time.Hour)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// getAccount 读取已存在的账户，不存在返回 ErrAccountNotFound
func (c *Core) getAccount(ctx context.Context, st *repository.Store, email string) (*model.Account, error) {
	acc, err := st.Accounts.GetByEmail(ctx, email)
	if isNotFound(err) {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, ledger.Unavailable(err)
	}
	return acc, nil
}

// ensureAccount 读取账户，不存在时按 free 套餐懒创建；随后执行月度重置检查
func (c *Core) ensureAccount(ctx context.Context, st *repository.Store, email string, now time.Time) (*model.Account, error) {
	acc, err := st.Accounts.GetByEmail(ctx, email)
	if isNotFound(err) {
		seed := &model.Account{
			Email:            email,
			Plan:             model.PlanFree,
			MonthlyCredits:   c.policy.MonthlySeed(model.PlanFree),
			LastMonthlyReset: &now,
		}
		if c.resolver.IsSpecial(email) {
			seed.MonthlyCredits = c.policy.MonthlySeed(model.PlanPro)
		}
		acc, err = st.Accounts.GetOrCreate(ctx, seed)
	}
	if err != nil {
		return nil, ledger.Unavailable(err)
	}

	if !c.policy.MonthlyDue(acc, now) {
		return acc, nil
	}

	ent := c.resolver.Resolve(acc, now)
	next, _ := c.policy.MaybeResetMonthly(*acc, ent.GatePlan(), now)
	ok, err := st.Accounts.ResetMonthly(ctx, email, next.MonthlyCredits, now, c.monthlyCutoff(now))
	if err != nil {
		return nil, ledger.Unavailable(err)
	}
	if ok {
		metrics.ResetsTotal.WithLabelValues("monthly").Inc()
		c.log.Debug().Str("email", email).Int("credits", next.MonthlyCredits).Msg("monthly allowance reset")
		return &next, nil
	}

	// 并发请求已完成重置，读取最新值
	acc, err = st.Accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, ledger.Unavailable(err)
	}
	return acc, nil
}

// ensureWallet 读取钱包，不存在时按套餐懒创建；随后执行每周重置检查
func (c *Core) ensureWallet(ctx context.Context, st *repository.Store, email, plan string, now time.Time) (*model.CreditWallet, error) {
	w, err := st.Wallets.GetByEmail(ctx, email)
	if isNotFound(err) {
		w, err = st.Wallets.GetOrCreate(ctx, &model.CreditWallet{
			Email:         email,
			WeeklyCredits: c.policy.WeeklySeed(plan),
			WeekStartDate: now,
		})
	}
	if err != nil {
		return nil, ledger.Unavailable(err)
	}

	if !c.policy.WeeklyDue(w, now) {
		return w, nil
	}

	next, _ := c.policy.MaybeResetWeekly(*w, plan, now)
	ok, err := st.Wallets.ResetWeekly(ctx, email, next.WeeklyCredits, now, c.weeklyCutoff(now))
	if err != nil {
		return nil, ledger.Unavailable(err)
	}
	if ok {
		metrics.ResetsTotal.WithLabelValues("weekly").Inc()
		return &next, nil
	}

	w, err = st.Wallets.GetByEmail(ctx, email)
	if err != nil {
		return nil, ledger.Unavailable(err)
	}
	return w, nil
}

// publish 异步发送余额变更通知，失败只记录日志
func (c *Core) publish(msg *pubsub.BalanceMessage) {
	if c.notifier == nil || !c.cfg.Ledger.PublishBalanceChanges {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.notifier.PublishBalance(ctx, msg); err != nil {
			c.log.Warn().Err(err).Str("email", msg.Email).Msg("publish balance change failed")
		}
	}()
}

func walletMessage(email, reason string, w *model.CreditWallet) *pubsub.BalanceMessage {
	weekly, purchased, total := w.WeeklyCredits, w.PurchasedCredits, w.Total()
	return &pubsub.BalanceMessage{
		Email:            email,
		Reason:           reason,
		WeeklyCredits:    &weekly,
		PurchasedCredits: &purchased,
		TotalCredits:     &total,
	}
}

func accountMessage(email, reason string, acc *model.Account) *pubsub.BalanceMessage {
	monthly := acc.MonthlyCredits
	return &pubsub.BalanceMessage{
		Email:          email,
		Reason:         reason,
		Plan:           acc.Plan,
		MonthlyCredits: &monthly,
	}
}
