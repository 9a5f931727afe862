package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/qs3c/credit_go_server/config"
	"github.com/qs3c/credit_go_server/internal/api"
	"github.com/qs3c/credit_go_server/internal/api/handler"
	"github.com/qs3c/credit_go_server/internal/database"
	"github.com/qs3c/credit_go_server/internal/model"
	"github.com/qs3c/credit_go_server/internal/pkg/cron"
	"github.com/qs3c/credit_go_server/internal/pkg/email"
	"github.com/qs3c/credit_go_server/internal/pkg/logger"
	"github.com/qs3c/credit_go_server/internal/pkg/payment"
	"github.com/qs3c/credit_go_server/internal/pkg/pubsub"
	"github.com/qs3c/credit_go_server/internal/pkg/queue"
	"github.com/qs3c/credit_go_server/internal/pkg/ratelimit"
	"github.com/qs3c/credit_go_server/internal/pkg/ws"
	"github.com/qs3c/credit_go_server/internal/repository"
	"github.com/qs3c/credit_go_server/internal/service"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Component: "server"})

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	log.Info().Msg("database connected")

	// 初始化 Redis（未配置时降级：直接落库、不推送、不统计每日次数）
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb, err = database.NewRedis(&cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer rdb.Close()
		log.Info().Msg("redis connected")
	} else {
		log.Warn().Msg("redis not configured, running without queue, pub/sub and daily generation metering")
	}

	// 初始化 Repository
	store := repository.NewStore(db)
	usageRepo := repository.NewUsageLogRepository(db)

	// 初始化 Service
	opts := []service.Option{}
	var counter service.DailyCounter
	if rdb != nil {
		opts = append(opts,
			service.WithNotifier(pubsub.NewPublisher(rdb)),
			service.WithRecorder(service.NewQueueRecorder(queue.NewQueue(rdb, cfg.Queue.UsageLogQueue))),
		)
		counter = ratelimit.NewDailyCounter(rdb)
	} else {
		opts = append(opts, service.WithRecorder(service.NewDBRecorder(usageRepo)))
	}

	core := service.NewCore(store, cfg, opts...)
	gateway := payment.NewRazorpayGateway(&cfg.Payment, cfg.Ledger.StoreTimeout())
	mailer := email.NewService(&cfg.Email)

	creditService := service.NewCreditService(core)
	walletService := service.NewWalletService(core, counter)
	planService := service.NewPlanService(core, counter)
	purchaseService := service.NewPurchaseService(core, gateway, mailer)
	adminService := service.NewAdminService(core)
	usageService := service.NewUsageService(usageRepo, cfg)

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := purchaseService.SeedPackages(seedCtx, cfg.Packages); err != nil {
		log.Fatal().Err(err).Msg("failed to seed credit packages")
	}
	seedCancel()

	// 初始化 WebSocket Hub
	wsHub := ws.NewHub()

	// 初始化 Handler
	router := api.NewRouter(
		handler.NewCreditsHandler(walletService, purchaseService),
		handler.NewAIHandler(creditService),
		handler.NewUserHandler(creditService, planService, usageService),
		handler.NewSubscriptionHandler(purchaseService),
		handler.NewWebhookHandler(purchaseService),
		handler.NewAdminHandler(adminService, purchaseService),
		handler.NewModelsHandler(cfg, creditService),
		handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins),
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 定时任务
	scheduler := cron.NewService(usageService, purchaseService)
	scheduler.Start()
	defer scheduler.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if rdb != nil {
		g.Go(func() error {
			sub := pubsub.NewSubscriber(rdb)
			err := sub.Subscribe(gctx, func(msg *pubsub.BalanceMessage) {
				_ = wsHub.SendToUser(msg.Email, &ws.Message{Type: msg.Type, Data: msg})
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("balance subscriber stopped")
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("server stopped")
}
