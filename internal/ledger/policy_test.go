package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/credit_go_server/internal/model"
)

func testPolicy() ResetPolicy {
	return ResetPolicy{
		MonthlyPeriodDays: 30,
		WeeklyPeriodDays:  7,
		Allowances: map[string]Allowance{
			model.PlanFree: {Monthly: 5000, Weekly: 10},
			model.PlanPro:  {Monthly: 25000, Weekly: 100},
		},
	}
}

func TestResetPolicy_MonthlyFirstTouch(t *testing.T) {
	p := testPolicy()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	acc, changed := p.MaybeResetMonthly(model.Account{Email: "a@example.com", Plan: model.PlanFree}, model.PlanFree, now)

	assert.True(t, changed)
	assert.Equal(t, 5000, acc.MonthlyCredits)
	require.NotNil(t, acc.LastMonthlyReset)
	assert.True(t, acc.LastMonthlyReset.Equal(now))
}

func TestResetPolicy_MonthlyWithinWindow(t *testing.T) {
	p := testPolicy()
	anchor := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	acc := model.Account{Plan: model.PlanFree, MonthlyCredits: 120, LastMonthlyReset: &anchor}

	t.Run("29 days later keeps balance", func(t *testing.T) {
		out, changed := p.MaybeResetMonthly(acc, model.PlanFree, anchor.Add(29*day+23*time.Hour))
		assert.False(t, changed)
		assert.Equal(t, 120, out.MonthlyCredits)
	})

	t.Run("second check in same window is a no-op", func(t *testing.T) {
		now := anchor.Add(30 * day)
		first, changed := p.MaybeResetMonthly(acc, model.PlanFree, now)
		require.True(t, changed)
		first.MonthlyCredits = 4000

		second, changed := p.MaybeResetMonthly(first, model.PlanFree, now.Add(time.Hour))
		assert.False(t, changed)
		assert.Equal(t, 4000, second.MonthlyCredits)
	})

	t.Run("clock behind anchor never resets", func(t *testing.T) {
		_, changed := p.MaybeResetMonthly(acc, model.PlanFree, anchor.Add(-40*day))
		assert.False(t, changed)
	})
}

func TestResetPolicy_MonthlyDiscardsLeftover(t *testing.T) {
	p := testPolicy()
	anchor := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	acc := model.Account{Plan: model.PlanPro, MonthlyCredits: 24000, LastMonthlyReset: &anchor}
	now := anchor.Add(45 * day)

	out, changed := p.MaybeResetMonthly(acc, model.PlanPro, now)

	assert.True(t, changed)
	assert.Equal(t, 25000, out.MonthlyCredits)
	assert.True(t, out.LastMonthlyReset.Equal(now))
}

func TestResetPolicy_MonthlySeedFollowsPlan(t *testing.T) {
	p := testPolicy()
	anchor := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	acc := model.Account{Plan: model.PlanPro, MonthlyCredits: 10, LastMonthlyReset: &anchor}

	out, _ := p.MaybeResetMonthly(acc, model.PlanFree, anchor.Add(31*day))
	assert.Equal(t, 5000, out.MonthlyCredits)

	assert.Equal(t, 5000, p.MonthlySeed("unknown"))
}

func TestResetPolicy_Weekly(t *testing.T) {
	p := testPolicy()
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	w := model.CreditWallet{WeeklyCredits: 1, PurchasedCredits: 40, WeekStartDate: start}

	t.Run("inside window", func(t *testing.T) {
		out, changed := p.MaybeResetWeekly(w, model.PlanFree, start.Add(6*day))
		assert.False(t, changed)
		assert.Equal(t, 1, out.WeeklyCredits)
	})

	t.Run("after window replenishes weekly only", func(t *testing.T) {
		now := start.Add(7 * day)
		out, changed := p.MaybeResetWeekly(w, model.PlanPro, now)
		assert.True(t, changed)
		assert.Equal(t, 100, out.WeeklyCredits)
		assert.Equal(t, 40, out.PurchasedCredits)
		assert.True(t, out.WeekStartDate.Equal(now))
		assert.True(t, p.NextWeeklyReset(&out).Equal(now.Add(7*day)))
	})

	t.Run("zero anchor initialises", func(t *testing.T) {
		out, changed := p.MaybeResetWeekly(model.CreditWallet{}, model.PlanFree, start)
		assert.True(t, changed)
		assert.Equal(t, 10, out.WeeklyCredits)
	})
}
