package email

import (
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/credit_go_server/config"
)

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("noreply@example.com", "u@example.com", "购买成功", "<p>hi</p>"))

	assert.Contains(t, msg, "From: noreply@example.com\r\n")
	assert.Contains(t, msg, "To: u@example.com\r\n")
	assert.Contains(t, msg, "Content-Type: text/html; charset=UTF-8\r\n")
	assert.Contains(t, msg, "\r\n\r\n<p>hi</p>")
}

func TestService_DisabledWithoutSMTP(t *testing.T) {
	s := NewService(&config.EmailConfig{})
	called := false
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}

	require.NoError(t, s.SendPurchaseReceipt("u@example.com", PurchaseReceipt{Credits: 500}))
	assert.False(t, called)
}

func TestService_SendPurchaseReceipt(t *testing.T) {
	s := NewService(&config.EmailConfig{SMTPHost: "smtp.example.com", SMTPPort: 587, From: "noreply@example.com"})

	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	s.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}

	err := s.SendPurchaseReceipt("u@example.com", PurchaseReceipt{
		PackageName: "500 Credits",
		Credits:     500,
		Amount:      "99.00",
		Currency:    "INR",
		PaymentID:   "pay_1",
		Balance:     510,
	})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"u@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "pay_1")
	assert.Contains(t, string(gotMsg), "<strong>500</strong>")
}

func TestService_SendSubscriptionReceipt(t *testing.T) {
	s := NewService(&config.EmailConfig{SMTPHost: "smtp.example.com", SMTPPort: 587})

	var gotMsg []byte
	s.send = func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		gotMsg = msg
		return nil
	}

	end := time.Date(2026, 11, 18, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SendSubscriptionReceipt("u@example.com", SubscriptionReceipt{Plan: "pro", PaymentID: "pay_2", EndsAt: end}))
	assert.Contains(t, string(gotMsg), "PRO 套餐已开通")
	assert.Contains(t, string(gotMsg), "2026-11-18")
}
