package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/qs3c/credit_go_server/config"
	"github.com/qs3c/credit_go_server/internal/database"
	"github.com/qs3c/credit_go_server/internal/model"
	"github.com/qs3c/credit_go_server/internal/pkg/logger"
	"github.com/qs3c/credit_go_server/internal/pkg/queue"
	"github.com/qs3c/credit_go_server/internal/repository"
	"github.com/qs3c/credit_go_server/internal/service"
	"github.com/qs3c/credit_go_server/internal/worker"
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

	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Component: "worker"})

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer rdb.Close()

	usageQueue := queue.NewQueue(rdb, cfg.Queue.UsageLogQueue)
	usageService := service.NewUsageService(repository.NewUsageLogRepository(db), cfg)
	consumer := worker.NewConsumer(usageQueue, usageService, 5*time.Second)

	// 创建 context 用于优雅关闭
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workers := cfg.Queue.MaxWorkers
	if workers <= 0 {
		workers = 1
	}
	log.Info().Int("workers", workers).Str("queue", cfg.Queue.UsageLogQueue).Msg("worker started")

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		workerID := i
		g.Go(func() error {
			consumer.Run(gctx, workerID)
			return nil
		})
	}

	_ = g.Wait()
	log.Info().Msg("worker shutdown complete")
}
