package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Queue struct {
	client    *redis.Client
	queueName string
}

// UsageMessage 一次扣费的使用记录
type UsageMessage struct {
	Email         string    `json:"email"`
	Pool          string    `json:"pool"`
	Model         string    `json:"model,omitempty"`
	OperationType string    `json:"operation_type"`
	Description   string    `json:"description,omitempty"`
	CreditsUsed   int       `json:"credits_used"`
	BalanceAfter  int       `json:"balance_after"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func NewQueue(client *redis.Client, queueName string) *Queue {
	return &Queue{
		client:    client,
		queueName: queueName,
	}
}

// Push 将记录加入队列
func (q *Queue) Push(ctx context.Context, msg *UsageMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return q.client.LPush(ctx, q.queueName, data).Err()
}

// Pop 从队列获取记录（阻塞），超时返回 nil
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*UsageMessage, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, nil
	}

	var msg UsageMessage
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	return &msg, nil
}

// Length 获取队列长度
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}
