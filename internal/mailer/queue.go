package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Task is one unit of dispatcher work: send the email recorded under
// LogID. Attempt is the 1-based number of the delivery attempt this
// task represents.
type Task struct {
	LogID   string `json:"log_id"`
	Attempt int    `json:"attempt"`
}

// ErrQueueEmpty is returned by Dequeue when no task became available
// within the blocking window.
var ErrQueueEmpty = errors.New("mailer: queue empty")

// Queue is the durable work queue between the request path and the
// dispatcher workers. Enqueued tasks survive process restarts.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	EnqueueAfter(ctx context.Context, task Task, delay time.Duration) error
	Dequeue(ctx context.Context) (Task, error)
}

// RedisQueue implements Queue on a Redis list, with delayed retries
// parked in a sorted set scored by their ready time.
type RedisQueue struct {
	client   *redis.Client
	queueKey string
	retryKey string
	logger   *zap.Logger
}

// NewRedisQueue builds the queue on the given keys.
func NewRedisQueue(client *redis.Client, queueKey, retryKey string, logger *zap.Logger) *RedisQueue {
	return &RedisQueue{
		client:   client,
		queueKey: queueKey,
		retryKey: retryKey,
		logger:   logger,
	}
}

// Enqueue pushes a task for immediate processing.
func (q *RedisQueue) Enqueue(ctx context.Context, task Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.queueKey, payload).Err()
}

// EnqueueAfter parks a task until its backoff elapses.
func (q *RedisQueue) EnqueueAfter(ctx context.Context, task Task, delay time.Duration) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	readyAt := time.Now().Add(delay)
	return q.client.ZAdd(ctx, q.retryKey, redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: payload,
	}).Err()
}

// Dequeue blocks for a short window waiting for a task. Callers loop on
// ErrQueueEmpty so that context cancellation is observed promptly.
func (q *RedisQueue) Dequeue(ctx context.Context) (Task, error) {
	res, err := q.client.BRPop(ctx, time.Second, q.queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Task{}, ErrQueueEmpty
		}
		return Task{}, err
	}
	// BRPop returns [key, value].
	var task Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return Task{}, err
	}
	return task, nil
}

// Depth reports how many tasks are waiting, counting both the ready
// list and the parked retries.
func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	ready, err := q.client.LLen(ctx, q.queueKey).Result()
	if err != nil {
		return 0, err
	}
	parked, err := q.client.ZCard(ctx, q.retryKey).Result()
	if err != nil {
		return 0, err
	}
	return ready + parked, nil
}

// DrainRetries moves due retry tasks back onto the work queue until the
// context is cancelled.
func (q *RedisQueue) DrainRetries(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := q.drainDue(ctx); err != nil && !errors.Is(err, context.Canceled) {
				q.logger.Warn("draining mail retries failed", zap.Error(err))
			}
		}
	}
}

func (q *RedisQueue) drainDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	due, err := q.client.ZRangeByScore(ctx, q.retryKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return err
	}

	for _, member := range due {
		removed, err := q.client.ZRem(ctx, q.retryKey, member).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			// Another worker claimed it.
			continue
		}
		if err := q.client.LPush(ctx, q.queueKey, member).Err(); err != nil {
			return err
		}
	}
	return nil
}
