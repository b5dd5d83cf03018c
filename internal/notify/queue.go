package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"insurance-backoffice/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

var ErrQueueFull = errors.New("NOTIFICATION_QUEUE_FULL")

// Queue is a FIFO of pending notifications. Pop waits up to wait and
// returns nil, nil when nothing arrived.
type Queue interface {
	Push(ctx context.Context, n *Notification) error
	Pop(ctx context.Context, wait time.Duration) (*Notification, error)
	Len(ctx context.Context) (int64, error)
}

// MemoryQueue keeps notifications in process. They are lost on restart.
type MemoryQueue struct {
	ch chan *Notification
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryQueue{ch: make(chan *Notification, capacity)}
}

func (q *MemoryQueue) Push(_ context.Context, n *Notification) error {
	select {
	case q.ch <- n:
		metrics.NotificationQueueDepth.Set(float64(len(q.ch)))
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Pop(ctx context.Context, wait time.Duration) (*Notification, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case n := <-q.ch:
		metrics.NotificationQueueDepth.Set(float64(len(q.ch)))
		return n, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Len(context.Context) (int64, error) {
	return int64(len(q.ch)), nil
}

// RedisQueue is a Redis list: LPUSH to enqueue, BRPOP to dequeue.
type RedisQueue struct {
	client redis.Cmdable
	key    string
}

func NewRedisQueue(client redis.Cmdable, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Push(ctx context.Context, n *Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	return nil
}

func (q *RedisQueue) Pop(ctx context.Context, wait time.Duration) (*Notification, error) {
	res, err := q.client.BRPop(ctx, wait, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop notification: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of length %d", len(res))
	}

	var n Notification
	if err := json.Unmarshal([]byte(res[1]), &n); err != nil {
		return nil, fmt.Errorf("failed to decode notification: %w", err)
	}
	return &n, nil
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
