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

func userRouter(env *testEnv, email string) *gin.Engine {
	h := NewUserHandler(env.Credits, env.Plans, env.Usage)
	router := gin.New()
	router.Use(mockAuth(email))
	router.GET("/user/credits", h.Credits)
	router.GET("/user/plan", h.Plan)
	router.GET("/user/usage", h.Usage)
	return router
}

func TestUserHandler_Credits(t *testing.T) {
	env := setupTestEnv(t)
	acc := testutil.TestAccount(t, env.DB, testutil.WithMonthlyCredits(1234))

	w := performRequest(userRouter(env, acc.Email), "GET", "/user/credits", nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeSuccess, resp.Code)
	data := dataMap(t, resp)
	assert.Equal(t, model.PlanFree, data["plan"])
	assert.Equal(t, float64(1234), data["monthlyCredits"])
	assert.NotEmpty(t, data["nextMonthlyReset"])
}

func TestUserHandler_Plan_ExpiredPro(t *testing.T) {
	env := setupTestEnv(t)
	acc := testutil.TestAccount(t, env.DB,
		testutil.WithPlan(model.PlanPro),
		testutil.WithSubscriptionEnd(time.Now().UTC().Add(-time.Hour)),
	)

	w := performRequest(userRouter(env, acc.Email), "GET", "/user/plan", nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeSuccess, resp.Code)
	data := dataMap(t, resp)
	assert.Equal(t, false, data["isPro"])
	assert.Equal(t, true, data["isExpired"])
	assert.Equal(t, float64(3), data["dailyLimit"])
	// 未配置计数器时按上限判断
	assert.Equal(t, true, data["canGenerate"])
	assert.Equal(t, float64(0), data["dailyCount"])
}

func TestUserHandler_Usage(t *testing.T) {
	env := setupTestEnv(t)
	email := testutil.UniqueEmail()
	testutil.TestWallet(t, env.DB, email, 10, 0, time.Now().UTC())

	for i := 0; i < 3; i++ {
		require.NoError(t, env.DB.Create(&model.UsageLog{
			Email:       email,
			Pool:        model.PoolWallet,
			CreditsUsed: i + 1,
			CreatedAt:   time.Now().UTC().Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	w := performRequest(userRouter(env, email), "GET", "/user/usage?limit=2", nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeSuccess, resp.Code)
	data := dataMap(t, resp)
	assert.Equal(t, float64(2), data["page_size"])
	items := data["items"].([]interface{})
	assert.Len(t, items, 2)
}
