package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/qs3c/credit_go_server/internal/ledger"
	"github.com/qs3c/credit_go_server/internal/model"
	"github.com/qs3c/credit_go_server/internal/pkg/metrics"
	"github.com/qs3c/credit_go_server/internal/pkg/payment"
)

// HandleWebhook 校验网关签名后按事件类型对账。未知事件直接确认。
func (s *PurchaseService) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if !payment.VerifyWebhookSignature(s.payCfg.WebhookSecret, body, signature) {
		metrics.PaymentsTotal.WithLabelValues("webhook", "rejected").Inc()
		s.log.Warn().Str("event", "signature_invalid").Str("source", "webhook").Int("body_len", len(body)).Msg("webhook signature rejected")
		return nil, ledger.ErrSignatureInvalid
	}

	ev, err := payment.ParseWebhook(body)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	out := &WebhookResult{Event: ev.Event}
	switch ev.Event {
	case payment.EventPaymentCaptured:
		out.Result, err = s.onPaymentCaptured(ctx, ev)
	case payment.EventSubscriptionActivated, payment.EventSubscriptionCharged:
		out.Result, err = s.onSubscriptionCharged(ctx, ev)
	case payment.EventSubscriptionCancelled:
		out.Result, err = s.onSubscriptionCancelled(ctx, ev)
	default:
		s.log.Debug().Str("event", ev.Event).Msg("webhook event ignored")
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	out.Handled = out.Result != nil
	return out, nil
}

func (s *PurchaseService) onPaymentCaptured(ctx context.Context, ev *payment.WebhookEvent) (*ReconcileResult, error) {
	if ev.Payload.Payment == nil {
		return nil, nil
	}
	entity := ev.Payload.Payment.Entity
	if entity.OrderID == "" || entity.ID == "" {
		return nil, nil
	}

	order, err := s.store.Orders.GetByOrderID(ctx, entity.OrderID)
	if isNotFound(err) {
		// 不是本系统创建的订单（例如订阅扣款），交给订阅事件处理
		return nil, nil
	}
	if err != nil {
		return nil, ledger.Unavailable(err)
	}
	return s.reconcileOrder(ctx, order, entity.ID, "webhook")
}

func (s *PurchaseService) onSubscriptionCharged(ctx context.Context, ev *payment.WebhookEvent) (*ReconcileResult, error) {
	if ev.Payload.Subscription == nil {
		return nil, nil
	}
	sub := ev.Payload.Subscription.Entity

	email, err := s.subscriptionEmail(ctx, sub)
	if err != nil || email == "" {
		return nil, err
	}

	latest, err := s.latestSubscription(ctx, sub.ID)
	if err != nil {
		return nil, err
	}

	grant := subscriptionGrant{
		Email:                  email,
		ExternalSubscriptionID: sub.ID,
		Currency:               s.payCfg.Currency,
	}
	p := ev.Payload.Payment
	if p == nil || p.Entity.ID == "" {
		// 没有支付实体的激活事件：订阅已有记录时不再发放
		if latest != nil {
			return s.duplicate(ctx, model.PaymentKindSubscription, email, "webhook")
		}
		grant.PaymentID = pendingPaymentID(sub.ID, ev.Event)
		grant.Pending = true
		return s.activateSubscription(ctx, grant, "webhook")
	}

	grant.PaymentID = p.Entity.ID
	grant.OrderID = p.Entity.OrderID
	grant.Amount = decimal.New(p.Entity.Amount, -2)
	if p.Entity.Currency != "" {
		grant.Currency = p.Entity.Currency
	}
	// 首期扣款晚于激活事件到达时只登记支付，本周期额度已经发放过
	grant.Attach = latest != nil && latest.PaymentID != nil && isPendingPaymentID(*latest.PaymentID, sub.ID)
	return s.activateSubscription(ctx, grant, "webhook")
}

func (s *PurchaseService) onSubscriptionCancelled(ctx context.Context, ev *payment.WebhookEvent) (*ReconcileResult, error) {
	if ev.Payload.Subscription == nil {
		return nil, nil
	}
	sub := ev.Payload.Subscription.Entity

	email, err := s.subscriptionEmail(ctx, sub)
	if err != nil || email == "" {
		return nil, err
	}
	return s.cancelPlan(ctx, email, sub.ID, "webhook")
}

// pendingPaymentID 无支付实体事件的去重键
func pendingPaymentID(subID, event string) string {
	return subID + ":" + event
}

func isPendingPaymentID(paymentID, subID string) bool {
	return subID != "" && strings.HasPrefix(paymentID, subID+":")
}

// latestSubscription 外部订阅的最近一条记录，不存在时返回 nil
func (s *PurchaseService) latestSubscription(ctx context.Context, subID string) (*model.SubscriptionRecord, error) {
	if subID == "" {
		return nil, nil
	}
	rec, err := s.store.Subscriptions.GetLatestByExternalID(ctx, subID)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, ledger.Unavailable(err)
	}
	return rec, nil
}

// subscriptionEmail 优先使用 notes.email，否则按外部订阅 ID 查找历史记录
func (s *PurchaseService) subscriptionEmail(ctx context.Context, sub payment.SubscriptionEntity) (string, error) {
	if email := strings.TrimSpace(sub.Notes["email"]); email != "" {
		return ledger.NormalizeEmail(email), nil
	}
	if sub.ID == "" {
		return "", nil
	}
	rec, err := s.store.Subscriptions.GetLatestByExternalID(ctx, sub.ID)
	if isNotFound(err) {
		s.log.Warn().Str("subscription_id", sub.ID).Msg("webhook for unknown subscription")
		return "", nil
	}
	if err != nil {
		return "", ledger.Unavailable(err)
	}
	return rec.Email, nil
}
