package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/credit_go_server/config"
	"github.com/qs3c/credit_go_server/internal/api/middleware"
	"github.com/qs3c/credit_go_server/internal/model"
	"github.com/qs3c/credit_go_server/internal/pkg/payment"
	"github.com/qs3c/credit_go_server/internal/pkg/response"
	"github.com/qs3c/credit_go_server/internal/repository"
	"github.com/qs3c/credit_go_server/internal/service"
	"github.com/qs3c/credit_go_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGateway struct {
	seq int64
}

func (g *stubGateway) CreateOrder(_ context.Context, amount decimal.Decimal, currency, receipt string, _ map[string]string) (*payment.Order, error) {
	n := atomic.AddInt64(&g.seq, 1)
	return &payment.Order{
		ID:       fmt.Sprintf("order_test_%d", n),
		Receipt:  receipt,
		Amount:   payment.MinorUnits(amount),
		Currency: currency,
	}, nil
}

// testEnv 组装真实服务（SQLite 内存库）
type testEnv struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Credits  *service.CreditService
	Wallet   *service.WalletService
	Plans    *service.PlanService
	Purchase *service.PurchaseService
	Admin    *service.AdminService
	Usage    *service.UsageService
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Ledger.Plans = map[string]config.PlanConfig{
		model.PlanFree: {MonthlyCredits: 5000, WeeklyCredits: 10, DailyGenerations: 3},
		model.PlanPro:  {MonthlyCredits: 25000, WeeklyCredits: 100, DailyGenerations: 50},
	}
	cfg.Models = []config.ModelConfig{
		{Name: "gpt-4o-mini", DisplayName: "GPT-4o mini", RequiredLevel: model.PlanFree, Cost: 10},
		{Name: "gpt-4o", DisplayName: "GPT-4o", RequiredLevel: model.PlanPro, Cost: 20},
	}
	cfg.Payment = config.PaymentConfig{
		KeyID:         "rzp_test_key",
		KeySecret:     "rzp_test_secret",
		WebhookSecret: "whsec_test",
		Currency:      "INR",
		ProPlanAmount: "499",
	}
	return cfg
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := testConfig()
	core := service.NewCore(repository.NewStore(db), cfg)

	return &testEnv{
		DB:       db,
		Cfg:      cfg,
		Credits:  service.NewCreditService(core),
		Wallet:   service.NewWalletService(core, nil),
		Plans:    service.NewPlanService(core, nil),
		Purchase: service.NewPurchaseService(core, &stubGateway{}, nil),
		Admin:    service.NewAdminService(core),
		Usage:    service.NewUsageService(repository.NewUsageLogRepository(db), cfg),
	}
}

// mockAuth 模拟认证中间件
func mockAuth(email string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserEmailKey, email)
		c.Next()
	}
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data should be an object, got %T", resp.Data)
	return data
}
