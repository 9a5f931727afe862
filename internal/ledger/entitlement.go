package ledger

import (
	"strings"
	"time"

	"github.com/qs3c/credit_go_server/internal/model"
)

// Entitlement 有效套餐。Plan 为名义套餐（过期的 pro 仍显示 pro），IsPro 才是准入依据。
type Entitlement struct {
	Plan      string `json:"plan"`
	IsPro     bool   `json:"is_pro"`
	IsExpired bool   `json:"is_expired"`
	IsSpecial bool   `json:"-"`
}

// GatePlan 用于模型准入与计费的套餐
func (e Entitlement) GatePlan() string {
	if e.IsPro {
		return model.PlanPro
	}
	return model.PlanFree
}

// Resolver 计算账户当前的有效套餐。每次请求都要重新计算，过期没有触发事件。
type Resolver struct {
	special map[string]struct{}
}

func NewResolver(specialAccounts []string) *Resolver {
	special := make(map[string]struct{}, len(specialAccounts))
	for _, email := range specialAccounts {
		email = NormalizeEmail(email)
		if email != "" {
			special[email] = struct{}{}
		}
	}
	return &Resolver{special: special}
}

// NormalizeEmail 邮箱统一小写去空格
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsSpecial 是否为白名单账户
func (r *Resolver) IsSpecial(email string) bool {
	_, ok := r.special[NormalizeEmail(email)]
	return ok
}

// Resolve 计算有效套餐
func (r *Resolver) Resolve(acc *model.Account, now time.Time) Entitlement {
	if r.IsSpecial(acc.Email) {
		return Entitlement{Plan: model.PlanPro, IsPro: true, IsSpecial: true}
	}
	if acc.Plan != model.PlanPro {
		return Entitlement{Plan: model.PlanFree}
	}
	if acc.SubscriptionEnd == nil {
		// 手动分配或历史账户，没有到期时间视为长期有效
		return Entitlement{Plan: model.PlanPro, IsPro: true}
	}
	expired := !acc.SubscriptionEnd.After(now)
	return Entitlement{Plan: model.PlanPro, IsPro: !expired, IsExpired: expired}
}
