package cron

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// UsagePruner 清理过期使用记录
type UsagePruner interface {
	Prune(ctx context.Context) (int64, error)
}

// OrderExpirer 将超时未支付订单标记为失败
type OrderExpirer interface {
	ExpirePendingOrders(ctx context.Context) (int64, error)
}

type Service struct {
	pruner   UsagePruner
	expirer  OrderExpirer
	timeout  time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	log      zerolog.Logger
}

func NewService(pruner UsagePruner, expirer OrderExpirer) *Service {
	return &Service{
		pruner:   pruner,
		expirer:  expirer,
		timeout:  time.Minute,
		stopChan: make(chan struct{}),
		log:      log.With().Str("component", "cron").Logger(),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runHourly()
	s.log.Info().Msg("cron started (usage prune + order expiry)")
}

// Stop 停止定时任务，可重复调用
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.log.Info().Msg("cron stopped")
	})
}

// runHourly 每小时执行一次全部任务
func (s *Service) runHourly() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runAll()
		}
	}
}

// runAll 任一任务失败不影响其他任务
func (s *Service) runAll() error {
	return errors.Join(s.pruneUsage(), s.expireOrders())
}

func (s *Service) pruneUsage() error {
	if s.pruner == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.pruner.Prune(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("usage prune failed")
		return err
	}
	if n > 0 {
		s.log.Info().Int64("deleted", n).Msg("usage logs pruned")
	}
	return nil
}

func (s *Service) expireOrders() error {
	if s.expirer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.expirer.ExpirePendingOrders(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("pending order expiry failed")
		return err
	}
	if n > 0 {
		s.log.Info().Int64("expired", n).Msg("pending orders expired")
	}
	return nil
}

// RunNow 立即执行全部任务（命令行或测试手动触发）
func (s *Service) RunNow() error {
	s.log.Info().Msg("manual cron run triggered")
	return s.runAll()
}
