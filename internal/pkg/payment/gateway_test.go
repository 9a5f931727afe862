package payment

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/credit_go_server/config"
)

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(49900), MinorUnits(decimal.RequireFromString("499")))
	assert.Equal(t, int64(9999), MinorUnits(decimal.RequireFromString("99.99")))
	assert.Equal(t, int64(1), MinorUnits(decimal.RequireFromString("0.005")))
}

func TestParseOrder(t *testing.T) {
	order, err := parseOrder(map[string]interface{}{
		"id":       "order_abc",
		"amount":   float64(9900),
		"currency": "INR",
	}, "rcpt_1", "USD")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, int64(9900), order.Amount)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "rcpt_1", order.Receipt)

	_, err = parseOrder(map[string]interface{}{}, "rcpt_1", "INR")
	assert.Error(t, err)
}

func TestRazorpayGateway_NotConfigured(t *testing.T) {
	g := NewRazorpayGateway(&config.PaymentConfig{}, 0)

	_, err := g.CreateOrder(context.Background(), decimal.NewFromInt(99), "INR", "rcpt", nil)
	assert.ErrorIs(t, err, ErrGatewayNotConfigured)
}
