package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/qs3c/credit_go_server/config"
	"github.com/qs3c/credit_go_server/internal/ledger"
	"github.com/qs3c/credit_go_server/internal/pkg/response"
	"github.com/qs3c/credit_go_server/internal/service"
)

type AdminHandler struct {
	admin    *service.AdminService
	purchase *service.PurchaseService
}

func NewAdminHandler(admin *service.AdminService, purchase *service.PurchaseService) *AdminHandler {
	return &AdminHandler{
		admin:    admin,
		purchase: purchase,
	}
}

type assignPlanRequest struct {
	Email  string `json:"email" binding:"required,email"`
	Plan   string `json:"plan" binding:"required"`
	Months int    `json:"months"`
}

type cancelPlanRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type adjustCreditsRequest struct {
	Email          string `json:"email" binding:"required,email"`
	MonthlyDelta   int    `json:"monthlyDelta"`
	PurchasedDelta int    `json:"purchasedDelta"`
}

type packageRequest struct {
	ID        string `json:"id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Credits   int    `json:"credits" binding:"required,gt=0"`
	Price     string `json:"price" binding:"required"`
	Active    bool   `json:"active"`
	SortOrder int    `json:"sortOrder"`
}

// AssignPlan 人工分配套餐
// POST /api/v1/admin/plan/assign
func (h *AdminHandler) AssignPlan(c *gin.Context) {
	var req assignPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	res, err := h.admin.AssignPlan(c.Request.Context(), req.Email, req.Plan, req.Months)
	if err != nil {
		ledgerError(c, err)
		return
	}

	response.SuccessWithMessage(c, "套餐已分配", reconcileResponse(res))
}

// CancelPlan 人工取消订阅
// POST /api/v1/admin/plan/cancel
func (h *AdminHandler) CancelPlan(c *gin.Context) {
	var req cancelPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	res, err := h.admin.CancelPlan(c.Request.Context(), req.Email)
	if err != nil {
		ledgerError(c, err)
		return
	}

	response.SuccessWithMessage(c, "订阅已取消", reconcileResponse(res))
}

// AdjustCredits 调整积分
// POST /api/v1/admin/credits/adjust
func (h *AdminHandler) AdjustCredits(c *gin.Context) {
	var req adjustCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}
	if req.MonthlyDelta == 0 && req.PurchasedDelta == 0 {
		response.ParamError(c, "调整数量不能都为 0")
		return
	}

	res, err := h.admin.AdjustCredits(c.Request.Context(), req.Email, req.MonthlyDelta, req.PurchasedDelta)
	if err != nil {
		ledgerError(c, err)
		return
	}

	response.Success(c, res)
}

// UpsertPackage 新增或更新积分包（含上下架）
// PUT /api/v1/admin/packages
func (h *AdminHandler) UpsertPackage(c *gin.Context) {
	var req packageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if price, err := decimal.NewFromString(req.Price); err != nil || !price.IsPositive() {
		response.ParamError(c, "价格不合法")
		return
	}

	err := h.purchase.SeedPackages(c.Request.Context(), []config.PackageConfig{{
		ID:        req.ID,
		Name:      req.Name,
		Credits:   req.Credits,
		Price:     req.Price,
		Active:    req.Active,
		SortOrder: req.SortOrder,
	}})
	if err != nil {
		ledgerError(c, ledger.Unavailable(err))
		return
	}

	response.SuccessWithMessage(c, "积分包已保存", req)
}
