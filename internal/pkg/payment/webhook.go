package payment

import (
	"encoding/json"
	"fmt"
)

// Webhook 事件类型
const (
	EventPaymentCaptured       = "payment.captured"
	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionCharged   = "subscription.charged"
	EventSubscriptionCancelled = "subscription.cancelled"
)

// WebhookEvent 网关 webhook 信封
type WebhookEvent struct {
	Event   string         `json:"event"`
	Payload WebhookPayload `json:"payload"`
}

type WebhookPayload struct {
	Payment      *PaymentWrapper      `json:"payment,omitempty"`
	Subscription *SubscriptionWrapper `json:"subscription,omitempty"`
}

type PaymentWrapper struct {
	Entity PaymentEntity `json:"entity"`
}

type SubscriptionWrapper struct {
	Entity SubscriptionEntity `json:"entity"`
}

type PaymentEntity struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Email    string `json:"email"`
	Notes    Notes  `json:"notes"`
}

type SubscriptionEntity struct {
	ID     string `json:"id"`
	PlanID string `json:"plan_id"`
	Status string `json:"status"`
	Notes  Notes  `json:"notes"`
}

// Notes 网关的 notes 字段，为空时网关会返回 [] 而不是 {}
type Notes map[string]string

func (n *Notes) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		*n = Notes{}
		return nil
	}
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	out := make(Notes, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		} else if v != nil {
			out[k] = fmt.Sprint(v)
		}
	}
	*n = out
	return nil
}

// ParseWebhook 解析 webhook 请求体
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if ev.Event == "" {
		return nil, fmt.Errorf("invalid webhook payload: missing event")
	}
	return &ev, nil
}
