package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/credit_go_server/internal/ledger"
	"github.com/qs3c/credit_go_server/internal/pkg/response"
	"github.com/qs3c/credit_go_server/internal/service"
)

type CreditsHandler struct {
	wallet   *service.WalletService
	purchase *service.PurchaseService
}

func NewCreditsHandler(wallet *service.WalletService, purchase *service.PurchaseService) *CreditsHandler {
	return &CreditsHandler{
		wallet:   wallet,
		purchase: purchase,
	}
}

type deductRequest struct {
	Email       string `json:"email"`
	Amount      int    `json:"amount" binding:"required"`
	Description string `json:"description"`
}

type purchaseRequest struct {
	PackageID string `json:"packageId" binding:"required"`
	Email     string `json:"email"`
}

type verifyPurchaseRequest struct {
	OrderID   string `json:"orderId" binding:"required"`
	PaymentID string `json:"paymentId" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	PackageID string `json:"packageId"`
	Email     string `json:"email"`
}

type balances struct {
	Weekly    int `json:"weekly"`
	Purchased int `json:"purchased"`
	Total     int `json:"total"`
}

// Get 建站钱包余额
// GET /api/v1/credits
func (h *CreditsHandler) Get(c *gin.Context) {
	email, ok := identity(c, c.Query("email"))
	if !ok {
		return
	}

	snap, err := h.wallet.GetCredits(c.Request.Context(), email)
	if err != nil {
		ledgerError(c, err)
		return
	}

	response.Success(c, snap)
}

// Deduct 扣减建站积分
// POST /api/v1/credits/deduct
func (h *CreditsHandler) Deduct(c *gin.Context) {
	var req deductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	email, ok := identity(c, req.Email)
	if !ok {
		return
	}

	snap, err := h.wallet.Deduct(c.Request.Context(), email, req.Amount, req.Description)
	var insufficient *ledger.InsufficientCreditsError
	if errors.As(err, &insufficient) {
		response.ErrorWithStatus(c, http.StatusPaymentRequired, response.CodeInsufficient, "", gin.H{
			"success":  false,
			"error":    ledger.CodeInsufficientCredits,
			"required": insufficient.Required,
			"credits": balances{
				Weekly:    insufficient.Weekly,
				Purchased: insufficient.Purchased,
				Total:     insufficient.Available,
			},
		})
		return
	}
	if err != nil {
		ledgerError(c, err)
		return
	}

	response.Success(c, gin.H{
		"success": true,
		"credits": snap,
	})
}

// ListPackages 可购买的积分包
// GET /api/v1/credits/packages
func (h *CreditsHandler) ListPackages(c *gin.Context) {
	pkgs, err := h.purchase.ListPackages(c.Request.Context())
	if err != nil {
		ledgerError(c, err)
		return
	}

	response.Success(c, gin.H{
		"packages": pkgs,
	})
}

// Purchase 创建积分包支付订单
// POST /api/v1/credits/purchase
func (h *CreditsHandler) Purchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	email, ok := identity(c, req.Email)
	if !ok {
		return
	}

	handle, err := h.purchase.CreatePackageOrder(c.Request.Context(), email, req.PackageID)
	if err != nil {
		ledgerError(c, err)
		return
	}

	response.Success(c, handle)
}

// VerifyPurchase 客户端支付完成后回传签名入账
// POST /api/v1/credits/verify-purchase
func (h *CreditsHandler) VerifyPurchase(c *gin.Context) {
	var req verifyPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	email, ok := identity(c, req.Email)
	if !ok {
		return
	}

	res, err := h.purchase.VerifyPurchase(c.Request.Context(), service.VerifyInput{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		PackageID: req.PackageID,
		Email:     email,
	})
	if err != nil {
		ledgerError(c, err)
		return
	}

	response.Success(c, reconcileResponse(res))
}

func reconcileResponse(res *service.ReconcileResult) gin.H {
	return gin.H{
		"success":          true,
		"alreadyProcessed": res.AlreadyProcessed,
		"plan":             res.Plan,
		"monthlyCredits":   res.MonthlyCredits,
		"subscriptionEnd":  res.SubscriptionEnd,
		"credits": balances{
			Weekly:    res.Weekly,
			Purchased: res.Purchased,
			Total:     res.Total,
		},
	}
}
