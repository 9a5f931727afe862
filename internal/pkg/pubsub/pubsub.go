package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelCreditsUpdated = "credits_updated"
)

// BalanceMessage 余额变更通知
type BalanceMessage struct {
	Type             string `json:"type"`
	Email            string `json:"email"`
	Reason           string `json:"reason"` // consume, purchase, subscription, reset, admin
	Plan             string `json:"plan,omitempty"`
	MonthlyCredits   *int   `json:"monthly,omitempty"`
	WeeklyCredits    *int   `json:"weekly,omitempty"`
	PurchasedCredits *int   `json:"purchased,omitempty"`
	TotalCredits     *int   `json:"total,omitempty"`
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishBalance 发布余额变更
func (p *Publisher) PublishBalance(ctx context.Context, msg *BalanceMessage) error {
	msg.Type = "credits_updated"

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal balance message: %w", err)
	}

	return p.client.Publish(ctx, ChannelCreditsUpdated, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅余额变更，ctx 取消后返回
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*BalanceMessage)) error {
	ps := s.client.Subscribe(ctx, ChannelCreditsUpdated)
	defer ps.Close()

	// 等待订阅确认，避免之后发布的消息丢失
	if _, err := ps.Receive(ctx); err != nil {
		return err
	}

	ch := ps.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var balanceMsg BalanceMessage
			if err := json.Unmarshal([]byte(msg.Payload), &balanceMsg); err != nil {
				continue // 忽略解析错误
			}

			handler(&balanceMsg)
		}
	}
}
