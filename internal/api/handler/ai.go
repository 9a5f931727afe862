package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/credit_go_server/internal/pkg/response"
	"github.com/qs3c/credit_go_server/internal/service"
)

type AIHandler struct {
	credits *service.CreditService
}

func NewAIHandler(credits *service.CreditService) *AIHandler {
	return &AIHandler{credits: credits}
}

type consumeRequest struct {
	UserEmail     string `json:"userEmail"`
	Model         string `json:"model" binding:"required"`
	OperationType string `json:"operationType"`
	Cost          *int   `json:"cost"`
}

// Consume 模型调用前扣减月度积分
// POST /api/v1/ai/consume
func (h *AIHandler) Consume(c *gin.Context) {
	var req consumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	email, ok := identity(c, req.UserEmail)
	if !ok {
		return
	}

	res, err := h.credits.Consume(c.Request.Context(), service.ConsumeInput{
		Email:         email,
		Model:         req.Model,
		OperationType: req.OperationType,
		Cost:          req.Cost,
	})
	if err != nil {
		ledgerError(c, err)
		return
	}

	response.Success(c, res)
}
