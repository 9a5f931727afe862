package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/qs3c/credit_go_server/internal/api/middleware"
	"github.com/qs3c/credit_go_server/internal/ledger"
	"github.com/qs3c/credit_go_server/internal/pkg/response"
)

// ledgerError 将账本错误映射为带状态码的统一响应，不向客户端暴露底层错误文本
func ledgerError(c *gin.Context, err error) {
	var insufficient *ledger.InsufficientCreditsError
	var forbidden *ledger.ModelForbiddenError

	switch {
	case errors.As(err, &insufficient):
		response.ErrorWithStatus(c, http.StatusPaymentRequired, response.CodeInsufficient, "", gin.H{
			"error":     ledger.CodeInsufficientCredits,
			"required":  insufficient.Required,
			"available": insufficient.Available,
		})
	case errors.As(err, &forbidden):
		response.ErrorWithStatus(c, http.StatusForbidden, response.CodeModelForbidden, "", gin.H{
			"error":         ledger.CodeModelForbidden,
			"model":         forbidden.Model,
			"plan":          forbidden.Plan,
			"allowedModels": forbidden.AllowedModels,
		})
	case errors.Is(err, ledger.ErrSignatureInvalid):
		response.ErrorWithStatus(c, http.StatusBadRequest, response.CodeSignatureInvalid, "", gin.H{
			"error": ledger.CodeSignatureInvalid,
		})
	case errors.Is(err, ledger.ErrAccountNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, response.CodeResourceNotFound, err.Error(), gin.H{
			"error": ledger.CodeAccountNotFound,
		})
	case errors.Is(err, ledger.ErrPackageNotFound), errors.Is(err, ledger.ErrOrderNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, response.CodeResourceNotFound, err.Error(), nil)
	case errors.Is(err, ledger.ErrOrderMismatch), errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrInvalidPlan):
		response.ErrorWithStatus(c, http.StatusBadRequest, response.CodeParamError, err.Error(), nil)
	case errors.Is(err, ledger.ErrStoreUnavailable):
		log.Error().Err(err).Str("component", "api").Str("path", c.Request.URL.Path).Msg("ledger store unavailable")
		response.ErrorWithStatus(c, http.StatusServiceUnavailable, response.CodeStoreUnavailable, "", gin.H{
			"error": ledger.CodeStoreUnavailable,
		})
	default:
		log.Error().Err(err).Str("component", "api").Str("path", c.Request.URL.Path).Msg("unexpected error")
		response.ErrorWithStatus(c, http.StatusInternalServerError, response.CodeServerError, "", nil)
	}
}

// identity 请求身份以 token 中的邮箱为准；请求中显式给出的邮箱必须与之一致
func identity(c *gin.Context, supplied string) (string, bool) {
	email, ok := middleware.GetUserEmail(c)
	if !ok {
		response.AuthError(c, "")
		return "", false
	}
	if supplied != "" && ledger.NormalizeEmail(supplied) != email {
		response.PermissionError(c, "无权操作其他账户")
		return "", false
	}
	return email, true
}
