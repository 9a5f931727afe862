package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/credit_go_server/internal/pkg/response"
	"github.com/qs3c/credit_go_server/internal/service"
)

type UserHandler struct {
	credits *service.CreditService
	plans   *service.PlanService
	usage   *service.UsageService
}

func NewUserHandler(credits *service.CreditService, plans *service.PlanService, usage *service.UsageService) *UserHandler {
	return &UserHandler{
		credits: credits,
		plans:   plans,
		usage:   usage,
	}
}

// Credits 月度 AI 积分
// GET /api/v1/user/credits
func (h *UserHandler) Credits(c *gin.Context) {
	email, ok := identity(c, c.Query("email"))
	if !ok {
		return
	}

	snap, err := h.credits.Snapshot(c.Request.Context(), email)
	if err != nil {
		ledgerError(c, err)
		return
	}

	response.Success(c, snap)
}

// Plan 有效套餐与当日生成次数
// GET /api/v1/user/plan
func (h *UserHandler) Plan(c *gin.Context) {
	email, ok := identity(c, c.Query("email"))
	if !ok {
		return
	}

	snap, err := h.plans.GetPlan(c.Request.Context(), email)
	if err != nil {
		ledgerError(c, err)
		return
	}

	response.Success(c, snap)
}

// Usage 最近的扣费记录
// GET /api/v1/user/usage?limit=50
func (h *UserHandler) Usage(c *gin.Context) {
	email, ok := identity(c, c.Query("email"))
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	logs, err := h.usage.List(c.Request.Context(), email, limit)
	if err != nil {
		ledgerError(c, err)
		return
	}

	response.SuccessPage(c, int64(len(logs)), 1, limit, logs)
}
