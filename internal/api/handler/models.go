package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/credit_go_server/config"
	"github.com/qs3c/credit_go_server/internal/api/middleware"
	"github.com/qs3c/credit_go_server/internal/ledger"
	"github.com/qs3c/credit_go_server/internal/model"
	"github.com/qs3c/credit_go_server/internal/pkg/response"
	"github.com/qs3c/credit_go_server/internal/service"
)

type ModelsHandler struct {
	cfg     *config.Config
	gate    *ledger.Gate
	credits *service.CreditService
}

func NewModelsHandler(cfg *config.Config, credits *service.CreditService) *ModelsHandler {
	return &ModelsHandler{
		cfg:     cfg,
		gate:    ledger.GateFromConfig(cfg),
		credits: credits,
	}
}

// List 获取模型列表，登录时标注当前套餐是否可用
// GET /api/v1/models
func (h *ModelsHandler) List(c *gin.Context) {
	allowed := map[string]bool{}
	plan := ""
	if email, ok := middleware.GetUserEmail(c); ok && h.credits != nil {
		if snap, err := h.credits.Snapshot(c.Request.Context(), email); err == nil {
			plan = snap.Plan
			for _, name := range snap.AllowedModels {
				allowed[name] = true
			}
		}
	}

	models := make([]map[string]interface{}, len(h.cfg.Models))
	for i, m := range h.cfg.Models {
		entry := map[string]interface{}{
			"name":           m.Name,
			"display_name":   m.DisplayName,
			"required_level": m.RequiredLevel,
			"cost":           h.gate.OperationCost(model.PlanPro, m.Name),
			"free_cost":      h.gate.OperationCost(model.PlanFree, m.Name),
			"description":    m.Description,
		}
		if plan != "" {
			entry["allowed"] = allowed[m.Name]
		}
		models[i] = entry
	}

	response.Success(c, gin.H{
		"models": models,
	})
}
