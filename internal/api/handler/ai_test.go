package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/qs3c/credit_go_server/internal/ledger"
	"github.com/qs3c/credit_go_server/internal/model"
	"github.com/qs3c/credit_go_server/internal/pkg/response"
	"github.com/qs3c/credit_go_server/internal/testutil"
)

func aiRouter(env *testEnv, email string) *gin.Engine {
	h := NewAIHandler(env.Credits)
	router := gin.New()
	router.Use(mockAuth(email))
	router.POST("/ai/consume", h.Consume)
	return router
}

func TestAIHandler_Consume_FreeFlatCost(t *testing.T) {
	env := setupTestEnv(t)
	acc := testutil.TestAccount(t, env.DB)

	w := performRequest(aiRouter(env, acc.Email), "POST", "/ai/consume", gin.H{
		"model":         "gpt-4o-mini",
		"operationType": "chat",
		"cost":          500,
	})
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, resp.Code)
	data := dataMap(t, resp)
	assert.Equal(t, float64(15), data["creditsConsumed"])
	assert.Equal(t, float64(4985), data["creditsRemaining"])
	assert.Equal(t, model.PlanFree, data["plan"])
}

func TestAIHandler_Consume_ModelForbidden(t *testing.T) {
	env := setupTestEnv(t)
	acc := testutil.TestAccount(t, env.DB)

	w := performRequest(aiRouter(env, acc.Email), "POST", "/ai/consume", gin.H{"model": "gpt-4o"})
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.CodeModelForbidden, resp.Code)
	data := dataMap(t, resp)
	assert.Equal(t, ledger.CodeModelForbidden, data["error"])
	assert.Equal(t, "gpt-4o", data["model"])
	assert.Contains(t, data["allowedModels"], "gpt-4o-mini")
}

func TestAIHandler_Consume_Insufficient(t *testing.T) {
	env := setupTestEnv(t)
	acc := testutil.TestAccount(t, env.DB, testutil.WithMonthlyCredits(5))

	w := performRequest(aiRouter(env, acc.Email), "POST", "/ai/consume", gin.H{"model": "gpt-4o-mini"})
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, response.CodeInsufficient, resp.Code)
	data := dataMap(t, resp)
	assert.Equal(t, float64(15), data["required"])
	assert.Equal(t, float64(5), data["available"])
}

func TestAIHandler_Consume_OtherUser(t *testing.T) {
	env := setupTestEnv(t)

	w := performRequest(aiRouter(env, "me@example.com"), "POST", "/ai/consume", gin.H{
		"userEmail": "victim@example.com",
		"model":     "gpt-4o-mini",
	})
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodePermissionDenied, resp.Code)
}

func TestAIHandler_Consume_MissingModel(t *testing.T) {
	env := setupTestEnv(t)

	w := performRequest(aiRouter(env, "me@example.com"), "POST", "/ai/consume", gin.H{})
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeParamError, resp.Code)
}
