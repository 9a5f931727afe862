package ledger

import (
	"time"

	"github.com/qs3c/credit_go_server/internal/model"
)

const day = 24 * time.Hour

// Allowance 套餐每个周期发放的额度
type Allowance struct {
	Monthly int
	Weekly  int
}

// ResetPolicy 月度/周度周期重置规则，所有时间比较都以显式传入的 now 为准
type ResetPolicy struct {
	MonthlyPeriodDays int
	WeeklyPeriodDays  int
	Allowances        map[string]Allowance
}

func (p ResetPolicy) allowance(plan string) Allowance {
	if a, ok := p.Allowances[plan]; ok {
		return a
	}
	return p.Allowances[model.PlanFree]
}

// MonthlySeed 月度额度
func (p ResetPolicy) MonthlySeed(plan string) int {
	return p.allowance(plan).Monthly
}

// WeeklySeed 每周建站额度
func (p ResetPolicy) WeeklySeed(plan string) int {
	return p.allowance(plan).Weekly
}

// elapsedDays 按整天截断，now 早于 anchor 时为负
func elapsedDays(anchor, now time.Time) int {
	return int(now.Sub(anchor) / day)
}

// MonthlyDue 月度周期是否已到期（首次初始化也视为到期）
func (p ResetPolicy) MonthlyDue(acc *model.Account, now time.Time) bool {
	if acc.LastMonthlyReset == nil {
		return true
	}
	return elapsedDays(*acc.LastMonthlyReset, now) >= p.MonthlyPeriodDays
}

// MaybeResetMonthly 到期时按当前套餐重新发放月度额度（不结转），并把锚点推进到 now。
// 返回的 bool 表示是否发生了变更。
func (p ResetPolicy) MaybeResetMonthly(acc model.Account, plan string, now time.Time) (model.Account, bool) {
	if !p.MonthlyDue(&acc, now) {
		return acc, false
	}
	anchor := now
	acc.MonthlyCredits = p.MonthlySeed(plan)
	acc.LastMonthlyReset = &anchor
	return acc, true
}

// NextMonthlyReset 下一次月度重置时间
func (p ResetPolicy) NextMonthlyReset(acc *model.Account, now time.Time) time.Time {
	if acc.LastMonthlyReset == nil {
		return now
	}
	return acc.LastMonthlyReset.Add(time.Duration(p.MonthlyPeriodDays) * day)
}

// WeeklyDue 周度周期是否已到期
func (p ResetPolicy) WeeklyDue(w *model.CreditWallet, now time.Time) bool {
	if w.WeekStartDate.IsZero() {
		return true
	}
	return elapsedDays(w.WeekStartDate, now) >= p.WeeklyPeriodDays
}

// MaybeResetWeekly 到期时重置每周额度，purchased 池不受影响
func (p ResetPolicy) MaybeResetWeekly(w model.CreditWallet, plan string, now time.Time) (model.CreditWallet, bool) {
	if !p.WeeklyDue(&w, now) {
		return w, false
	}
	w.WeeklyCredits = p.WeeklySeed(plan)
	w.WeekStartDate = now
	return w, true
}

// NextWeeklyReset 下一次周度重置时间
func (p ResetPolicy) NextWeeklyReset(w *model.CreditWallet) time.Time {
	return w.WeekStartDate.Add(time.Duration(p.WeeklyPeriodDays) * day)
}
