package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue keeps one list per kind under <prefix>queue:<kind>.
type RedisQueue struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisQueue wraps an already connected client.
func NewRedisQueue(client *redis.Client, prefix string) *RedisQueue {
	return &RedisQueue{client: client, prefix: prefix, now: time.Now}
}

func (r *RedisQueue) key(kind Kind) string {
	return r.prefix + "queue:" + string(kind)
}

// Enqueue pushes job onto the head of its list.
func (r *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	stampJob(&job, r.now)
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	if err := r.client.LPush(ctx, r.key(job.Kind), data).Err(); err != nil {
		return fmt.Errorf("redis lpush %s: %w", job.Kind, err)
	}
	return nil
}

// Dequeue blocks on the tail of the list for kind.
func (r *RedisQueue) Dequeue(ctx context.Context, kind Kind, wait time.Duration) (*Job, error) {
	result, err := r.client.BRPop(ctx, wait, r.key(kind)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("redis brpop %s: %w", kind, err)
	}
	// BRPOP replies with [key, value].
	if len(result) != 2 {
		return nil, fmt.Errorf("redis brpop %s: unexpected reply length %d", kind, len(result))
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("decode job from %s: %w", kind, err)
	}
	return &job, nil
}

// Depth reports LLEN for kind.
func (r *RedisQueue) Depth(ctx context.Context, kind Kind) (int64, error) {
	n, err := r.client.LLen(ctx, r.key(kind)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis llen %s: %w", kind, err)
	}
	return n, nil
}

// Close is a no-op; the shared client is closed by its owner.
func (r *RedisQueue) Close() error { return nil }
