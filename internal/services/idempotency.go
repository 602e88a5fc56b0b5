package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const idempotencyProcessing = "processing"

// StoredResponse is a response replayed for a repeated Idempotency-Key.
type StoredResponse struct {
	Status      int             `json:"status"`
	Body        json.RawMessage `json:"body"`
	Fingerprint string          `json:"fingerprint,omitempty"`
}

// IdempotencyStore records engine responses in Redis so a retried request
// with the same key is answered without posting twice. A nil Redis client
// disables it.
type IdempotencyStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewIdempotencyStore(redisClient *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{redis: redisClient, ttl: ttl}
}

func (s *IdempotencyStore) Enabled() bool {
	return s != nil && s.redis != nil
}

func IdempotencyKey(userID, route, key string) string {
	return fmt.Sprintf("idempotency:%s:%s:%s", userID, route, key)
}

// Begin claims key. It returns the stored response when the key was already
// completed, and a Conflict error while another request holds it.
func (s *IdempotencyStore) Begin(ctx context.Context, key string) (*StoredResponse, error) {
	if !s.Enabled() {
		return nil, nil
	}

	acquired, err := s.redis.SetNX(ctx, key, idempotencyProcessing, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if acquired {
		return nil, nil
	}

	raw, err := s.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Expired or released between the two calls.
		return s.Begin(ctx, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if raw == idempotencyProcessing {
		return nil, newError(ErrConflict, "transactions.idempotency.inprogress")
	}

	var stored StoredResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("failed to decode stored response: %w", err)
	}
	return &stored, nil
}

// Complete stores the response for key until the TTL elapses.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, resp StoredResponse) error {
	if !s.Enabled() {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, s.ttl).Err()
}

// Release frees key so the request can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	return s.redis.Del(ctx, key).Err()
}
