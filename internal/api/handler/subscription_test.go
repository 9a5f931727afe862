package handler

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/credit_go_server/internal/model"
	"github.com/qs3c/credit_go_server/internal/pkg/response"
	"github.com/qs3c/credit_go_server/internal/testutil"
)

func subscriptionRouter(env *testEnv, email string) *gin.Engine {
	h := NewSubscriptionHandler(env.Purchase)
	router := gin.New()
	router.Use(mockAuth(email))
	router.POST("/subscription/order", h.CreateOrder)
	router.POST("/subscription/cancel", h.Cancel)
	return router
}

func TestSubscriptionHandler_CreateOrder(t *testing.T) {
	env := setupTestEnv(t)
	email := testutil.UniqueEmail()

	w := performRequest(subscriptionRouter(env, email), "POST", "/subscription/order", nil)
	resp := parseResponse(t, w)

	require.Equal(t, response.CodeSuccess, resp.Code)
	data := dataMap(t, resp)
	assert.Equal(t, model.PlanPro, data["plan"])
	assert.Equal(t, float64(49900), data["amount"])
	assert.Equal(t, "INR", data["currency"])
}

func TestSubscriptionHandler_Cancel(t *testing.T) {
	env := setupTestEnv(t)
	acc := testutil.TestAccount(t, env.DB,
		testutil.WithPlan(model.PlanPro),
		testutil.WithMonthlyCredits(20000),
		testutil.WithSubscriptionEnd(time.Now().UTC().Add(10*24*time.Hour)),
	)

	w := performRequest(subscriptionRouter(env, acc.Email), "POST", "/subscription/cancel", gin.H{})
	resp := parseResponse(t, w)

	require.Equal(t, response.CodeSuccess, resp.Code)
	data := dataMap(t, resp)
	assert.Equal(t, model.PlanFree, data["plan"])
	assert.Equal(t, float64(5000), data["monthlyCredits"])
}

func TestSubscriptionHandler_Cancel_UnknownAccount(t *testing.T) {
	env := setupTestEnv(t)

	w := performRequest(subscriptionRouter(env, testutil.UniqueEmail()), "POST", "/subscription/cancel", gin.H{})
	resp := parseResponse(t, w)

	assert.Equal(t, 404, w.Code)
	assert.Equal(t, response.CodeResourceNotFound, resp.Code)
}
