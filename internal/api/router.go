package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qs3c/credit_go_server/config"
	"github.com/qs3c/credit_go_server/internal/api/handler"
	"github.com/qs3c/credit_go_server/internal/api/middleware"
)

type Router struct {
	creditsHandler      *handler.CreditsHandler
	aiHandler           *handler.AIHandler
	userHandler         *handler.UserHandler
	subscriptionHandler *handler.SubscriptionHandler
	webhookHandler      *handler.WebhookHandler
	adminHandler        *handler.AdminHandler
	modelsHandler       *handler.ModelsHandler
	websocketHandler    *handler.WebSocketHandler
	cfg                 *config.Config
}

func NewRouter(
	creditsHandler *handler.CreditsHandler,
	aiHandler *handler.AIHandler,
	userHandler *handler.UserHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	webhookHandler *handler.WebhookHandler,
	adminHandler *handler.AdminHandler,
	modelsHandler *handler.ModelsHandler,
	websocketHandler *handler.WebSocketHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		creditsHandler:      creditsHandler,
		aiHandler:           aiHandler,
		userHandler:         userHandler,
		subscriptionHandler: subscriptionHandler,
		webhookHandler:      webhookHandler,
		adminHandler:        adminHandler,
		modelsHandler:       modelsHandler,
		websocketHandler:    websocketHandler,
		cfg:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.AccessLog())
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 模型（可选认证，登录时标注可用性）
		models := api.Group("")
		models.Use(middleware.OptionalAuth(r.cfg.JWT.Secret))
		{
			models.GET("/models", r.modelsHandler.List)
		}

		// 公开接口 - 积分包与支付回调
		api.GET("/credits/packages", r.creditsHandler.ListPackages)
		api.POST("/payments/webhook", r.webhookHandler.Handle)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			credits := authenticated.Group("/credits")
			{
				credits.GET("", r.creditsHandler.Get)
				credits.POST("/deduct", r.creditsHandler.Deduct)
				credits.POST("/purchase", r.creditsHandler.Purchase)
				credits.POST("/verify-purchase", r.creditsHandler.VerifyPurchase)
			}

			authenticated.POST("/ai/consume", r.aiHandler.Consume)

			user := authenticated.Group("/user")
			{
				user.GET("/credits", r.userHandler.Credits)
				user.GET("/plan", r.userHandler.Plan)
				user.GET("/usage", r.userHandler.Usage)
			}

			subscription := authenticated.Group("/subscription")
			{
				subscription.POST("/order", r.subscriptionHandler.CreateOrder)
				subscription.POST("/cancel", r.subscriptionHandler.Cancel)
			}
		}

		// 运营接口
		admin := api.Group("/admin")
		admin.Use(middleware.AdminKey(r.cfg.Admin.KeyHash))
		{
			admin.POST("/plan/assign", r.adminHandler.AssignPlan)
			admin.POST("/plan/cancel", r.adminHandler.CancelPlan)
			admin.POST("/credits/adjust", r.adminHandler.AdjustCredits)
			admin.PUT("/packages", r.adminHandler.UpsertPackage)
		}
	}

	return engine
}
