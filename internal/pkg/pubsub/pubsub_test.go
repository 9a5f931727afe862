package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestBalanceMessage_JSON(t *testing.T) {
	msg := &BalanceMessage{
		Email:          "u@example.com",
		Reason:         "consume",
		MonthlyCredits: intPtr(0),
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Contains(t, raw, "monthly", "零余额也要下发")
	assert.NotContains(t, raw, "weekly")
	assert.NotContains(t, raw, "plan")
}

func TestPublisherSubscriber(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *BalanceMessage, 1)
	go func() {
		_ = NewSubscriber(client).Subscribe(ctx, func(msg *BalanceMessage) {
			received <- msg
		})
	}()

	// 等待订阅建立
	require.Eventually(t, func() bool {
		return len(mr.PubSubChannels("*")) > 0
	}, 2*time.Second, 10*time.Millisecond)

	err = NewPublisher(client).PublishBalance(ctx, &BalanceMessage{
		Email:            "u@example.com",
		Reason:           "purchase",
		WeeklyCredits:    intPtr(10),
		PurchasedCredits: intPtr(500),
	})
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, "credits_updated", msg.Type)
		assert.Equal(t, "u@example.com", msg.Email)
		require.NotNil(t, msg.PurchasedCredits)
		assert.Equal(t, 500, *msg.PurchasedCredits)
	case <-ctx.Done():
		t.Fatal("Timeout waiting for message")
	}
}

func TestSubscriber_StopsOnCancel(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewSubscriber(client).Subscribe(ctx, func(*BalanceMessage) {})
	}()

	require.Eventually(t, func() bool {
		return len(mr.PubSubChannels("*")) > 0
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}
