package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"

	"github.com/qs3c/credit_go_server/config"
)

var ErrGatewayNotConfigured = errors.New("payment gateway not configured")

// Order 网关侧订单
type Order struct {
	ID       string `json:"id"`
	Receipt  string `json:"receipt"`
	Amount   int64  `json:"amount"` // 最小货币单位
	Currency string `json:"currency"`
}

// Gateway 支付网关
type Gateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]string) (*Order, error)
}

// RazorpayGateway 基于 razorpay-go 的网关实现
type RazorpayGateway struct {
	client  *razorpay.Client
	timeout time.Duration
}

func NewRazorpayGateway(cfg *config.PaymentConfig, timeout time.Duration) *RazorpayGateway {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return &RazorpayGateway{timeout: timeout}
	}
	return &RazorpayGateway{
		client:  razorpay.NewClient(cfg.KeyID, cfg.KeySecret),
		timeout: timeout,
	}
}

// MinorUnits 金额转换为最小货币单位（分/派士）
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreateOrder 创建网关订单。SDK 不支持 context，超时通过 goroutine + select 控制
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]string) (*Order, error) {
	if g.client == nil {
		return nil, ErrGatewayNotConfigured
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	data := map[string]interface{}{
		"amount":   MinorUnits(amount),
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	type result struct {
		body map[string]interface{}
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		body, err := g.client.Order.Create(data, nil)
		ch <- result{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("create order: %w", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("create order: %w", r.err)
		}
		return parseOrder(r.body, receipt, currency)
	}
}

func parseOrder(body map[string]interface{}, receipt, currency string) (*Order, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, errors.New("create order: missing order id in response")
	}

	order := &Order{ID: id, Receipt: receipt, Currency: currency}
	if v, ok := body["amount"].(float64); ok {
		order.Amount = int64(v)
	}
	if v, ok := body["currency"].(string); ok && v != "" {
		order.Currency = v
	}
	return order, nil
}
