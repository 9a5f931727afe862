package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/credit_go_server/internal/pkg/response"
	"github.com/qs3c/credit_go_server/internal/service"
)

type SubscriptionHandler struct {
	purchase *service.PurchaseService
}

func NewSubscriptionHandler(purchase *service.PurchaseService) *SubscriptionHandler {
	return &SubscriptionHandler{purchase: purchase}
}

type subscriptionRequest struct {
	Email          string `json:"email"`
	SubscriptionID string `json:"subscriptionId"`
}

// CreateOrder 创建 pro 订阅支付订单
// POST /api/v1/subscription/order
func (h *SubscriptionHandler) CreateOrder(c *gin.Context) {
	var req subscriptionRequest
	_ = c.ShouldBindJSON(&req)

	email, ok := identity(c, req.Email)
	if !ok {
		return
	}

	handle, err := h.purchase.CreateSubscriptionOrder(c.Request.Context(), email)
	if err != nil {
		ledgerError(c, err)
		return
	}

	response.Success(c, handle)
}

// Cancel 用户主动取消订阅
// POST /api/v1/subscription/cancel
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	var req subscriptionRequest
	_ = c.ShouldBindJSON(&req)

	email, ok := identity(c, req.Email)
	if !ok {
		return
	}

	res, err := h.purchase.Cancel(c.Request.Context(), email, req.SubscriptionID, "client")
	if err != nil {
		ledgerError(c, err)
		return
	}

	response.SuccessWithMessage(c, "订阅已取消", reconcileResponse(res))
}
