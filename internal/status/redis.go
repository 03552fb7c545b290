package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore stores each instance as a JSON document under <prefix>status:<id>.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore wraps an already connected client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + "status:" + id
}

// Get loads the instance for id.
func (r *RedisStore) Get(ctx context.Context, id string) (Instance, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Instance{}, ErrNotFound
	}
	if err != nil {
		return Instance{}, fmt.Errorf("redis get status %s: %w", id, err)
	}
	var inst Instance
	if err := json.Unmarshal(raw, &inst); err != nil {
		return Instance{}, fmt.Errorf("decode status %s: %w", id, err)
	}
	if inst.Stage, err = ParseStage(string(inst.Stage)); err != nil {
		return Instance{}, fmt.Errorf("decode status %s: %w", id, err)
	}
	return inst, nil
}

// Set writes inst without expiry.
func (r *RedisStore) Set(ctx context.Context, inst Instance) error {
	if err := inst.Validate(); err != nil {
		return err
	}
	if inst.UpdatedAt.IsZero() {
		inst.UpdatedAt = r.now().UTC()
	}
	data, err := json.Marshal(inst)
	if err != nil {
		return fmt.Errorf("encode status %s: %w", inst.ID, err)
	}
	if err := r.client.Set(ctx, r.key(inst.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set status %s: %w", inst.ID, err)
	}
	return nil
}

// Close releases the client. The client is shared with the queue, so the
// owner closes it once.
func (r *RedisStore) Close() error { return nil }
