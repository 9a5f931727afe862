package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/credit_go_server/internal/ledger"
	"github.com/qs3c/credit_go_server/internal/pkg/payment"
	"github.com/qs3c/credit_go_server/internal/pkg/response"
	"github.com/qs3c/credit_go_server/internal/service"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	purchase *service.PurchaseService
}

func NewWebhookHandler(purchase *service.PurchaseService) *WebhookHandler {
	return &WebhookHandler{purchase: purchase}
}

// Handle 支付回调。带网关签名头的是网关 webhook，否则按客户端支付确认处理
// POST /api/v1/payments/webhook
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		response.ParamError(c, "请求体过大或读取失败")
		return
	}

	if sig := c.GetHeader(payment.SignatureHeader); sig != "" {
		h.handleProvider(c, body, sig)
		return
	}
	h.handleClient(c, body)
}

func (h *WebhookHandler) handleProvider(c *gin.Context, body []byte, sig string) {
	out, err := h.purchase.HandleWebhook(c.Request.Context(), body, sig)
	if err != nil {
		if !ledger.IsDomain(err) {
			response.ErrorWithStatus(c, http.StatusBadRequest, response.CodeParamError, "webhook 格式错误", nil)
			return
		}
		ledgerError(c, err)
		return
	}

	response.Success(c, out)
}

func (h *WebhookHandler) handleClient(c *gin.Context, body []byte) {
	var req verifyPurchaseRequest
	if err := json.Unmarshal(body, &req); err != nil {
		response.ParamError(c, "")
		return
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		response.ParamError(c, "缺少支付信息")
		return
	}

	res, err := h.purchase.VerifyPurchase(c.Request.Context(), service.VerifyInput{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		PackageID: req.PackageID,
		Email:     req.Email,
	})
	if err != nil {
		ledgerError(c, err)
		return
	}

	response.Success(c, reconcileResponse(res))
}
