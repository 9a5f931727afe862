package ledger

import (
	"github.com/qs3c/credit_go_server/config"
)

// PolicyFromConfig 从配置构造重置规则
func PolicyFromConfig(cfg *config.LedgerConfig) ResetPolicy {
	allowances := make(map[string]Allowance, len(cfg.Plans))
	for name, p := range cfg.Plans {
		allowances[name] = Allowance{Monthly: p.MonthlyCredits, Weekly: p.WeeklyCredits}
	}
	return ResetPolicy{
		MonthlyPeriodDays: cfg.MonthlyPeriodDays,
		WeeklyPeriodDays:  cfg.WeeklyPeriodDays,
		Allowances:        allowances,
	}
}

// GateFromConfig 从模型配置构造访问控制
func GateFromConfig(cfg *config.Config) *Gate {
	rules := make([]ModelRule, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		rules = append(rules, ModelRule{Name: m.Name, RequiredLevel: m.RequiredLevel, Cost: m.Cost})
	}
	return NewGate(rules, cfg.Ledger.FreeOperationCost, cfg.Ledger.DefaultModelCost)
}
