package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tokengate/internal/compliance"
	"tokengate/pkg/domain"
	"tokengate/pkg/platform/sentinel"
)

// RedisStore keeps the status cache in Redis so multiple reporting consumers
// can read it without touching the engine process. The cache is informational
// bookkeeping; losing it never affects transfer decisions.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedis(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func statusKey(account domain.Address) string {
	return "tokengate:compliance:status:" + account.String()
}

func (s *RedisStore) Set(ctx context.Context, status compliance.Status) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	if err := s.client.Set(ctx, statusKey(status.Account), payload, 0).Err(); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

func (s *RedisStore) SetBatch(ctx context.Context, statuses []compliance.Status) error {
	pipe := s.client.Pipeline()
	for _, status := range statuses {
		payload, err := json.Marshal(status)
		if err != nil {
			return fmt.Errorf("marshal status: %w", err)
		}
		pipe.Set(ctx, statusKey(status.Account), payload, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set status batch: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, account domain.Address) (*compliance.Status, error) {
	payload, err := s.client.Get(ctx, statusKey(account)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}
	var status compliance.Status
	if err := json.Unmarshal(payload, &status); err != nil {
		return nil, fmt.Errorf("unmarshal status: %w", err)
	}
	return &status, nil
}
