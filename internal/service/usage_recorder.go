package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/qs3c/credit_go_server/internal/model"
	"github.com/qs3c/credit_go_server/internal/pkg/metrics"
	"github.com/qs3c/credit_go_server/internal/pkg/queue"
	"github.com/qs3c/credit_go_server/internal/repository"
)

// UsageRecorder 记录扣费明细。实现不得阻塞调用方，也不返回错误。
type UsageRecorder interface {
	Record(entry *model.UsageLog)
}

// NopRecorder 不记录
type NopRecorder struct{}

func (NopRecorder) Record(*model.UsageLog) {}

// QueueRecorder 推入 Redis 队列，由 worker 异步落库
type QueueRecorder struct {
	q       *queue.Queue
	timeout time.Duration
}

func NewQueueRecorder(q *queue.Queue) *QueueRecorder {
	return &QueueRecorder{q: q, timeout: 2 * time.Second}
}

func (r *QueueRecorder) Record(entry *model.UsageLog) {
	msg := &queue.UsageMessage{
		Email:         entry.Email,
		Pool:          entry.Pool,
		Model:         entry.Model,
		OperationType: entry.OperationType,
		Description:   entry.Description,
		CreditsUsed:   entry.CreditsUsed,
		BalanceAfter:  entry.BalanceAfter,
		OccurredAt:    entry.CreatedAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.q.Push(ctx, msg); err != nil {
			metrics.UsageLogDroppedTotal.Inc()
			log.Warn().Err(err).Str("email", msg.Email).Msg("usage log enqueue failed")
		}
	}()
}

// DBRecorder 直接写库（未启用 Redis 队列时使用）
type DBRecorder struct {
	repo    *repository.UsageLogRepository
	timeout time.Duration
}

func NewDBRecorder(repo *repository.UsageLogRepository) *DBRecorder {
	return &DBRecorder{repo: repo, timeout: 5 * time.Second}
}

func (r *DBRecorder) Record(entry *model.UsageLog) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.repo.Create(ctx, entry); err != nil {
			metrics.UsageLogDroppedTotal.Inc()
			log.Warn().Err(err).Str("email", entry.Email).Msg("usage log write failed")
		}
	}()
}
