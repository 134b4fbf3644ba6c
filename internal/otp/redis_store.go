package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/silkloom/store/internal/domain"
)

// RedisStore keeps pending actions in redis with PendingTTL expiry, so an
// abandoned checkout or signup cleans itself up.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Put(ctx context.Context, sessionID string, action *domain.PendingAction) error {
	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("marshal pending action: %w", err)
	}

	if err := r.client.Set(ctx, pendingKey(sessionID, action.Kind), data, PendingTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, sessionID string, kind domain.ActionKind) (*domain.PendingAction, error) {
	data, err := r.client.Get(ctx, pendingKey(sessionID, kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoPendingAction
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var action domain.PendingAction
	if err := json.Unmarshal(data, &action); err != nil {
		return nil, fmt.Errorf("unmarshal pending action: %w", err)
	}
	return &action, nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string, kind domain.ActionKind) error {
	if err := r.client.Del(ctx, pendingKey(sessionID, kind)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func pendingKey(sessionID string, kind domain.ActionKind) string {
	return fmt.Sprintf("pending:%s:%s", kind, sessionID)
}
