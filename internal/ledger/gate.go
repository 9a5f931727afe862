package ledger

import (
	"github.com/qs3c/credit_go_server/internal/model"
)

// ModelRule 模型准入等级与单次费用
type ModelRule struct {
	Name          string
	RequiredLevel string
	Cost          int
}

// Gate 模型访问控制与计费
type Gate struct {
	rules       map[string]ModelRule
	order       []string
	freeCost    int
	defaultCost int
}

func NewGate(rules []ModelRule, freeCost, defaultCost int) *Gate {
	g := &Gate{
		rules:       make(map[string]ModelRule, len(rules)),
		freeCost:    freeCost,
		defaultCost: defaultCost,
	}
	for _, r := range rules {
		if r.Name == "" {
			continue
		}
		if _, dup := g.rules[r.Name]; !dup {
			g.order = append(g.order, r.Name)
		}
		g.rules[r.Name] = r
	}
	return g
}

// CanAccessModel free 只能使用白名单模型，pro 可使用全部模型
func (g *Gate) CanAccessModel(plan, modelID string) bool {
	if plan == model.PlanPro {
		return true
	}
	r, ok := g.rules[modelID]
	return ok && r.RequiredLevel == model.PlanFree
}

// OperationCost free 固定费用优先于模型价格表；pro 查表，未知模型使用默认费用
func (g *Gate) OperationCost(plan, modelID string) int {
	if plan != model.PlanPro {
		return g.freeCost
	}
	if r, ok := g.rules[modelID]; ok && r.Cost > 0 {
		return r.Cost
	}
	return g.defaultCost
}

// AllowedModels 当前套餐可用的模型列表（按配置顺序）
func (g *Gate) AllowedModels(plan string) []string {
	out := make([]string, 0, len(g.order))
	for _, name := range g.order {
		if g.CanAccessModel(plan, name) {
			out = append(out, name)
		}
	}
	return out
}

// Authorize 校验准入并返回费用
func (g *Gate) Authorize(plan, modelID string) (int, error) {
	if !g.CanAccessModel(plan, modelID) {
		return 0, &ModelForbiddenError{
			Model:         modelID,
			Plan:          plan,
			AllowedModels: g.AllowedModels(plan),
		}
	}
	return g.OperationCost(plan, modelID), nil
}

// Rules 返回模型配置（按配置顺序）
func (g *Gate) Rules() []ModelRule {
	out := make([]ModelRule, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.rules[name])
	}
	return out
}
