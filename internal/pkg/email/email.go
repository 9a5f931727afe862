package email

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/qs3c/credit_go_server/config"
)

type Service struct {
	cfg  *config.EmailConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewService(cfg *config.EmailConfig) *Service {
	return &Service{cfg: cfg, send: smtp.SendMail}
}

// Enabled 未配置 SMTP 时不发送邮件
func (s *Service) Enabled() bool {
	return s.cfg != nil && s.cfg.SMTPHost != ""
}

// PurchaseReceipt 积分包购买回执
type PurchaseReceipt struct {
	PackageName string
	Credits     int
	Amount      string
	Currency    string
	PaymentID   string
	Balance     int
}

// SubscriptionReceipt 订阅回执
type SubscriptionReceipt struct {
	Plan      string
	Amount    string
	Currency  string
	PaymentID string
	EndsAt    time.Time
}

// SendPurchaseReceipt 发送积分购买回执
func (s *Service) SendPurchaseReceipt(to string, r PurchaseReceipt) error {
	subject := "购买成功 - 积分已到账"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">积分已到账</h2>
        <p>您购买的 <strong>%s</strong> 已完成支付，<strong>%d</strong> 积分已加入您的账户。</p>
        <table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
            <tr><td>支付金额</td><td>%s %s</td></tr>
            <tr><td>支付单号</td><td>%s</td></tr>
            <tr><td>当前可用积分</td><td>%d</td></tr>
        </table>
        <p>购买的积分不会过期。</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">此邮件由系统自动发送，请勿回复。</p>
    </div>
</body>
</html>
`, r.PackageName, r.Credits, r.Amount, r.Currency, r.PaymentID, r.Balance)

	return s.sendHTML(to, subject, body)
}

// SendSubscriptionReceipt 发送订阅开通回执
func (s *Service) SendSubscriptionReceipt(to string, r SubscriptionReceipt) error {
	subject := "订阅已开通"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">%s 套餐已开通</h2>
        <p>感谢您的订阅，所有高级模型现已可用。</p>
        <table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
            <tr><td>支付金额</td><td>%s %s</td></tr>
            <tr><td>支付单号</td><td>%s</td></tr>
            <tr><td>有效期至</td><td>%s</td></tr>
        </table>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">此邮件由系统自动发送，请勿回复。</p>
    </div>
</body>
</html>
`, strings.ToUpper(r.Plan), r.Amount, r.Currency, r.PaymentID, r.EndsAt.Format("2006-01-02"))

	return s.sendHTML(to, subject, body)
}

// sendHTML 发送 HTML 邮件
func (s *Service) sendHTML(to, subject, body string) error {
	if !s.Enabled() {
		return nil
	}

	msg := buildMessage(s.cfg.From, to, subject, body)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	return s.send(addr, auth, s.cfg.From, []string{to}, msg)
}

func buildMessage(from, to, subject, body string) []byte {
	headers := [][2]string{
		{"From", from},
		{"To", to},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var msg strings.Builder
	for _, h := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return []byte(msg.String())
}
