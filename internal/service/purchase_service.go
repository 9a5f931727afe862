package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/qs3c/credit_go_server/config"
	"github.com/qs3c/credit_go_server/internal/ledger"
	"github.com/qs3c/credit_go_server/internal/model"
	mailer "github.com/qs3c/credit_go_server/internal/pkg/email"
	"github.com/qs3c/credit_go_server/internal/pkg/metrics"
	"github.com/qs3c/credit_go_server/internal/pkg/payment"
	"github.com/qs3c/credit_go_server/internal/pkg/pubsub"
	"github.com/qs3c/credit_go_server/internal/repository"
)

var errAlreadyProcessed = errors.New("payment already processed")

// Mailer 支付回执邮件
type Mailer interface {
	SendPurchaseReceipt(to string, r mailer.PurchaseReceipt) error
	SendSubscriptionReceipt(to string, r mailer.SubscriptionReceipt) error
}

// OrderHandle 返回给客户端用于拉起支付的订单信息
type OrderHandle struct {
	OrderID  string               `json:"orderId"`
	Amount   int64                `json:"amount"`
	Currency string               `json:"currency"`
	KeyID    string               `json:"keyId"`
	Receipt  string               `json:"receipt"`
	Kind     string               `json:"kind"`
	Package  *model.CreditPackage `json:"package,omitempty"`
	Plan     string               `json:"plan,omitempty"`
}

// VerifyInput 客户端支付确认
type VerifyInput struct {
	OrderID   string
	PaymentID string
	Signature string
	PackageID string
	Email     string
}

// ReconcileResult 对账后的余额
type ReconcileResult struct {
	AlreadyProcessed bool       `json:"alreadyProcessed"`
	Kind             string     `json:"kind"`
	Plan             string     `json:"plan"`
	MonthlyCredits   int        `json:"monthlyCredits"`
	Weekly           int        `json:"weekly"`
	Purchased        int        `json:"purchased"`
	Total            int        `json:"total"`
	SubscriptionEnd  *time.Time `json:"subscriptionEnd,omitempty"`
}

// WebhookResult webhook 处理结果
type WebhookResult struct {
	Event   string           `json:"event"`
	Handled bool             `json:"handled"`
	Result  *ReconcileResult `json:"result,omitempty"`
}

// PurchaseService 积分包购买、订阅开通与支付对账
type PurchaseService struct {
	*Core
	gateway payment.Gateway
	mailer  Mailer
	payCfg  *config.PaymentConfig
}

func NewPurchaseService(core *Core, gateway payment.Gateway, m Mailer) *PurchaseService {
	return &PurchaseService{
		Core:    core,
		gateway: gateway,
		mailer:  m,
		payCfg:  &core.cfg.Payment,
	}
}

// SeedPackages 将配置中的积分包写入目录
func (s *PurchaseService) SeedPackages(ctx context.Context, pkgs []config.PackageConfig) error {
	for _, p := range pkgs {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return err
		}
		err = s.store.Packages.Upsert(ctx, &model.CreditPackage{
			ID:        p.ID,
			Name:      p.Name,
			Credits:   p.Credits,
			Price:     price,
			Active:    p.Active,
			SortOrder: p.SortOrder,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ListPackages 上架中的积分包
func (s *PurchaseService) ListPackages(ctx context.Context) ([]model.CreditPackage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	pkgs, err := s.store.Packages.ListActive(ctx)
	if err != nil {
		return nil, ledger.Unavailable(err)
	}
	return pkgs, nil
}

// CreatePackageOrder 为积分包创建网关订单并记录预期支付内容
func (s *PurchaseService) CreatePackageOrder(ctx context.Context, email, packageID string) (*OrderHandle, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	email = ledger.NormalizeEmail(email)
	pkg, err := s.store.Packages.GetActive(ctx, packageID)
	if isNotFound(err) {
		return nil, ledger.ErrPackageNotFound
	}
	if err != nil {
		return nil, ledger.Unavailable(err)
	}

	order, err := s.createOrder(ctx, &model.PaymentOrder{
		Email:     email,
		Kind:      model.PaymentKindTopup,
		PackageID: pkg.ID,
		Credits:   pkg.Credits,
		Amount:    pkg.Price,
	})
	if err != nil {
		return nil, err
	}
	handle := s.handle(order)
	handle.Package = pkg
	return handle, nil
}

// CreateSubscriptionOrder 为 pro 订阅创建网关订单
func (s *PurchaseService) CreateSubscriptionOrder(ctx context.Context, email string) (*OrderHandle, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	amount, err := decimal.NewFromString(s.payCfg.ProPlanAmount)
	if err != nil || !amount.IsPositive() {
		return nil, ledger.ErrInvalidAmount
	}

	order, err := s.createOrder(ctx, &model.PaymentOrder{
		Email:  ledger.NormalizeEmail(email),
		Kind:   model.PaymentKindSubscription,
		Amount: amount,
	})
	if err != nil {
		return nil, err
	}
	handle := s.handle(order)
	handle.Plan = model.PlanPro
	return handle, nil
}

func (s *PurchaseService) createOrder(ctx context.Context, order *model.PaymentOrder) (*model.PaymentOrder, error) {
	order.Receipt = "rcpt_" + uuid.NewString()[:8]
	order.Currency = s.payCfg.Currency
	order.Status = model.OrderStatusPending

	gw, err := s.gateway.CreateOrder(ctx, order.Amount, order.Currency, order.Receipt, map[string]string{
		"email": order.Email,
		"kind":  order.Kind,
	})
	if err != nil {
		s.log.Error().Err(err).Str("email", order.Email).Str("kind", order.Kind).Msg("create gateway order failed")
		return nil, err
	}
	order.OrderID = gw.ID

	if err := s.store.Orders.Create(ctx, order); err != nil {
		return nil, ledger.Unavailable(err)
	}
	return order, nil
}

func (s *PurchaseService) handle(order *model.PaymentOrder) *OrderHandle {
	return &OrderHandle{
		OrderID:  order.OrderID,
		Amount:   payment.MinorUnits(order.Amount),
		Currency: order.Currency,
		KeyID:    s.payCfg.KeyID,
		Receipt:  order.Receipt,
		Kind:     order.Kind,
	}
}

// VerifyPurchase 校验客户端回传的支付签名并入账。签名不通过时不读写任何余额。
func (s *PurchaseService) VerifyPurchase(ctx context.Context, in VerifyInput) (*ReconcileResult, error) {
	if !payment.VerifyPaymentSignature(s.payCfg.KeySecret, in.OrderID, in.PaymentID, in.Signature) {
		metrics.PaymentsTotal.WithLabelValues("client", "rejected").Inc()
		s.log.Warn().
			Str("event", "signature_invalid").
			Str("source", "client").
			Str("order_id", in.OrderID).
			Str("payment_id", in.PaymentID).
			Msg("payment signature rejected")
		return nil, ledger.ErrSignatureInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	order, err := s.store.Orders.GetByOrderID(ctx, in.OrderID)
	if isNotFound(err) {
		return nil, ledger.ErrOrderNotFound
	}
	if err != nil {
		return nil, ledger.Unavailable(err)
	}

	if in.Email != "" && ledger.NormalizeEmail(in.Email) != order.Email {
		return nil, ledger.ErrOrderMismatch
	}
	if order.Kind == model.PaymentKindTopup && in.PackageID != "" && in.PackageID != order.PackageID {
		return nil, ledger.ErrOrderMismatch
	}

	return s.reconcileOrder(ctx, order, in.PaymentID, "client")
}

// reconcileOrder 按订单入账，以 paymentID 去重
func (s *PurchaseService) reconcileOrder(ctx context.Context, order *model.PaymentOrder, paymentID, source string) (*ReconcileResult, error) {
	switch order.Kind {
	case model.PaymentKindTopup:
		return s.creditTopup(ctx, order, paymentID, source)
	case model.PaymentKindSubscription:
		return s.activateSubscription(ctx, subscriptionGrant{
			Email:     order.Email,
			PaymentID: paymentID,
			OrderID:   order.OrderID,
			Amount:    order.Amount,
			Currency:  order.Currency,
		}, source)
	default:
		return nil, ledger.ErrOrderMismatch
	}
}

func (s *PurchaseService) creditTopup(ctx context.Context, order *model.PaymentOrder, paymentID, source string) (*ReconcileResult, error) {
	now := s.clock()
	email := order.Email

	exists, err := s.store.Subscriptions.ExistsByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, ledger.Unavailable(err)
	}
	if exists {
		return s.duplicate(ctx, model.PaymentKindTopup, email, source)
	}

	result := &ReconcileResult{Kind: model.PaymentKindTopup}
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		pid := paymentID
		err := tx.Subscriptions.Create(ctx, &model.SubscriptionRecord{
			Email:     email,
			Kind:      model.PaymentKindTopup,
			OrderID:   order.OrderID,
			PaymentID: &pid,
			PackageID: order.PackageID,
			Credits:   order.Credits,
			Amount:    order.Amount,
			Currency:  order.Currency,
			Status:    model.SubscriptionStatusActive,
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errAlreadyProcessed
		}
		if err != nil {
			return ledger.Unavailable(err)
		}

		acc, err := s.ensureAccount(ctx, tx, email, now)
		if err != nil {
			return err
		}
		ent := s.resolver.Resolve(acc, now)
		if _, err := s.ensureWallet(ctx, tx, email, ent.GatePlan(), now); err != nil {
			return err
		}
		if _, err := tx.Wallets.AddPurchased(ctx, email, order.Credits); err != nil {
			return ledger.Unavailable(err)
		}
		if err := tx.Orders.MarkPaid(ctx, order.OrderID, now); err != nil {
			return ledger.Unavailable(err)
		}

		w, err := tx.Wallets.GetByEmail(ctx, email)
		if err != nil {
			return ledger.Unavailable(err)
		}
		result.Plan = ent.Plan
		result.MonthlyCredits = acc.MonthlyCredits
		result.Weekly = w.WeeklyCredits
		result.Purchased = w.PurchasedCredits
		result.Total = w.Total()
		return nil
	})
	if errors.Is(err, errAlreadyProcessed) {
		return s.duplicate(ctx, model.PaymentKindTopup, email, source)
	}
	if err != nil {
		metrics.PaymentsTotal.WithLabelValues(source, "error").Inc()
		return nil, ledger.Wrap(err)
	}

	metrics.PaymentsTotal.WithLabelValues(source, "credited").Inc()
	s.log.Info().Str("email", email).Str("payment_id", paymentID).Int("credits", order.Credits).Str("source", source).Msg("topup credited")

	weekly, purchased, total := result.Weekly, result.Purchased, result.Total
	s.publish(&pubsub.BalanceMessage{
		Email:            email,
		Reason:           "purchase",
		WeeklyCredits:    &weekly,
		PurchasedCredits: &purchased,
		TotalCredits:     &total,
	})
	s.sendReceipt(func(m Mailer) error {
		return m.SendPurchaseReceipt(email, mailer.PurchaseReceipt{
			PackageName: order.PackageID,
			Credits:     order.Credits,
			Amount:      order.Amount.StringFixed(2),
			Currency:    order.Currency,
			PaymentID:   paymentID,
			Balance:     total,
		})
	})
	return result, nil
}

// subscriptionGrant 一次订阅开通/续费
type subscriptionGrant struct {
	Email                  string
	PaymentID              string
	OrderID                string
	ExternalSubscriptionID string
	Amount                 decimal.Decimal
	Currency               string
	// Pending 激活事件没有支付实体，不发送回执
	Pending bool
	// Attach 本周期已由激活事件发放，只登记这笔支付
	Attach bool
}

// activateSubscription 设置 pro 套餐、重置月度额度并开启新的订阅窗口
func (s *PurchaseService) activateSubscription(ctx context.Context, g subscriptionGrant, source string) (*ReconcileResult, error) {
	now := s.clock()
	email := ledger.NormalizeEmail(g.Email)

	exists, err := s.store.Subscriptions.ExistsByPaymentID(ctx, g.PaymentID)
	if err != nil {
		return nil, ledger.Unavailable(err)
	}
	if exists {
		return s.duplicate(ctx, model.PaymentKindSubscription, email, source)
	}

	end := now.AddDate(0, 0, s.cfg.Ledger.SubscriptionDays)
	result := &ReconcileResult{Kind: model.PaymentKindSubscription}
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		pid := g.PaymentID
		err := tx.Subscriptions.Create(ctx, &model.SubscriptionRecord{
			Email:                  email,
			Kind:                   model.PaymentKindSubscription,
			OrderID:                g.OrderID,
			PaymentID:              &pid,
			ExternalSubscriptionID: g.ExternalSubscriptionID,
			Plan:                   model.PlanPro,
			Amount:                 g.Amount,
			Currency:               g.Currency,
			Status:                 model.SubscriptionStatusActive,
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errAlreadyProcessed
		}
		if err != nil {
			return ledger.Unavailable(err)
		}

		if _, err := s.ensureAccount(ctx, tx, email, now); err != nil {
			return err
		}
		if !g.Attach {
			start := now
			if _, err := tx.Accounts.SetPlan(ctx, email, model.PlanPro, s.policy.MonthlySeed(model.PlanPro), &start, &end, false, now); err != nil {
				return ledger.Unavailable(err)
			}
		}
		if g.OrderID != "" {
			if err := tx.Orders.MarkPaid(ctx, g.OrderID, now); err != nil {
				return ledger.Unavailable(err)
			}
		}

		acc, err := s.getAccount(ctx, tx, email)
		if err != nil {
			return err
		}
		s.fillResult(ctx, tx, result, acc, now)
		return nil
	})
	if errors.Is(err, errAlreadyProcessed) {
		return s.duplicate(ctx, model.PaymentKindSubscription, email, source)
	}
	if err != nil {
		metrics.PaymentsTotal.WithLabelValues(source, "error").Inc()
		return nil, ledger.Wrap(err)
	}

	metrics.PaymentsTotal.WithLabelValues(source, "credited").Inc()
	if g.Attach && result.SubscriptionEnd != nil {
		end = *result.SubscriptionEnd
	}
	s.log.Info().Str("email", email).Str("payment_id", g.PaymentID).Str("source", source).Bool("attached", g.Attach).Time("ends_at", end).Msg("subscription activated")

	if !g.Attach {
		monthly := result.MonthlyCredits
		s.publish(&pubsub.BalanceMessage{
			Email:          email,
			Reason:         "subscription",
			Plan:           result.Plan,
			MonthlyCredits: &monthly,
		})
	}
	if !g.Pending {
		s.sendReceipt(func(m Mailer) error {
			return m.SendSubscriptionReceipt(email, mailer.SubscriptionReceipt{
				Plan:      model.PlanPro,
				Amount:    g.Amount.StringFixed(2),
				Currency:  g.Currency,
				PaymentID: g.PaymentID,
				EndsAt:    end,
			})
		})
	}
	return result, nil
}

// duplicate 已处理过的支付：不再入账，只返回当前余额
func (s *PurchaseService) duplicate(ctx context.Context, kind, email, source string) (*ReconcileResult, error) {
	metrics.PaymentsTotal.WithLabelValues(source, "duplicate").Inc()
	s.log.Info().Str("email", email).Str("kind", kind).Str("source", source).Msg("duplicate payment ignored")

	result := &ReconcileResult{AlreadyProcessed: true, Kind: kind}
	acc, err := s.getAccount(ctx, s.store, email)
	if err != nil {
		return nil, err
	}
	s.fillResult(ctx, s.store, result, acc, s.clock())
	return result, nil
}

// fillResult 填充账户与钱包余额，钱包不存在时余额为 0
func (s *PurchaseService) fillResult(ctx context.Context, st *repository.Store, r *ReconcileResult, acc *model.Account, now time.Time) {
	ent := s.resolver.Resolve(acc, now)
	r.Plan = ent.Plan
	r.MonthlyCredits = acc.MonthlyCredits
	r.SubscriptionEnd = acc.SubscriptionEnd
	if w, err := st.Wallets.GetByEmail(ctx, acc.Email); err == nil {
		r.Weekly = w.WeeklyCredits
		r.Purchased = w.PurchasedCredits
		r.Total = w.Total()
	}
}

// Cancel 取消订阅：降级为 free 并重置月度额度。白名单账户不降级。
func (s *PurchaseService) Cancel(ctx context.Context, email, externalSubscriptionID, source string) (*ReconcileResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.Core.cancelPlan(ctx, email, externalSubscriptionID, source)
}

func (s *PurchaseService) sendReceipt(send func(Mailer) error) {
	if s.mailer == nil {
		return
	}
	go func() {
		if err := send(s.mailer); err != nil {
			s.log.Warn().Err(err).Msg("send receipt failed")
		}
	}()
}

// ExpirePendingOrders 将超时未支付的订单标记为失败
func (s *PurchaseService) ExpirePendingOrders(ctx context.Context) (int64, error) {
	ttl := time.Duration(s.cfg.Ledger.PendingOrderTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return s.store.Orders.ExpirePending(ctx, s.clock().Add(-ttl))
}
