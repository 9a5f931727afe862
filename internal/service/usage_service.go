package service

import (
	"context"
	"time"

	"github.com/qs3c/credit_go_server/config"
	"github.com/qs3c/credit_go_server/internal/ledger"
	"github.com/qs3c/credit_go_server/internal/model"
	"github.com/qs3c/credit_go_server/internal/pkg/queue"
	"github.com/qs3c/credit_go_server/internal/repository"
)

// UsageService 使用记录的查询、落库与清理
type UsageService struct {
	repo *repository.UsageLogRepository
	cfg  *config.Config
	now  func() time.Time
}

func NewUsageService(repo *repository.UsageLogRepository, cfg *config.Config) *UsageService {
	return &UsageService{repo: repo, cfg: cfg, now: time.Now}
}

// List 最近的使用记录
func (s *UsageService) List(ctx context.Context, email string, limit int) ([]model.UsageLog, error) {
	logs, err := s.repo.ListByEmail(ctx, ledger.NormalizeEmail(email), limit)
	if err != nil {
		return nil, ledger.Unavailable(err)
	}
	return logs, nil
}

// Ingest 将队列消息写入数据库
func (s *UsageService) Ingest(ctx context.Context, msg *queue.UsageMessage) error {
	occurred := msg.OccurredAt
	if occurred.IsZero() {
		occurred = s.now().UTC()
	}
	return s.repo.Create(ctx, &model.UsageLog{
		Email:         msg.Email,
		Pool:          msg.Pool,
		Model:         msg.Model,
		OperationType: msg.OperationType,
		Description:   msg.Description,
		CreditsUsed:   msg.CreditsUsed,
		BalanceAfter:  msg.BalanceAfter,
		CreatedAt:     occurred,
	})
}

// Prune 删除超过保留期的记录
func (s *UsageService) Prune(ctx context.Context) (int64, error) {
	days := s.cfg.Usage.RetentionDays
	if days <= 0 {
		return 0, nil
	}
	return s.repo.DeleteBefore(ctx, s.now().UTC().AddDate(0, 0, -days))
}
