package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/qs3c/credit_go_server/internal/pkg/metrics"
	"github.com/qs3c/credit_go_server/internal/pkg/queue"
)

// Source 使用记录队列
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.UsageMessage, error)
}

// Ingester 使用记录落库
type Ingester interface {
	Ingest(ctx context.Context, msg *queue.UsageMessage) error
}

// Consumer 从队列取出使用记录并写入数据库
type Consumer struct {
	source      Source
	ingester    Ingester
	popTimeout  time.Duration
	maxAttempts int
	backoff     time.Duration
	log         zerolog.Logger
}

func NewConsumer(source Source, ingester Ingester, popTimeout time.Duration) *Consumer {
	return &Consumer{
		source:      source,
		ingester:    ingester,
		popTimeout:  popTimeout,
		maxAttempts: 3,
		backoff:     time.Second,
		log:         log.With().Str("component", "worker").Logger(),
	}
}

// Run 循环消费直到 ctx 取消
func (c *Consumer) Run(ctx context.Context, workerID int) {
	l := c.log.With().Int("worker_id", workerID).Logger()
	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("worker shutting down")
			return
		default:
		}

		msg, err := c.source.Pop(ctx, c.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.Warn().Err(err).Msg("failed to pop usage message")
			c.sleep(ctx)
			continue
		}
		if msg == nil {
			continue // 超时，继续等待
		}

		c.Process(ctx, msg)
	}
}

// Process 写入一条记录，失败重试，超过次数后丢弃并计数
func (c *Consumer) Process(ctx context.Context, msg *queue.UsageMessage) bool {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err := c.ingester.Ingest(ctx, msg)
		if err == nil {
			return true
		}
		c.log.Warn().Err(err).Str("email", msg.Email).Int("attempt", attempt).Msg("ingest usage log failed")
		if attempt < c.maxAttempts && !c.sleep(ctx) {
			break
		}
	}

	metrics.UsageLogDroppedTotal.Inc()
	c.log.Error().Str("email", msg.Email).Int("credits_used", msg.CreditsUsed).Msg("usage log dropped")
	return false
}

func (c *Consumer) sleep(ctx context.Context) bool {
	t := time.NewTimer(c.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
