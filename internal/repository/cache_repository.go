package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/brightpath-app/scheduling-api/pkg/errors"
)

// ScheduleCacheRepository caches the active schedule for a child-week tuple.
// Cache entries are invalidated on regeneration and reschedules; a miss falls
// through to Postgres, so eviction is always safe.
type ScheduleCacheRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewScheduleCacheRepository constructs repository.
func NewScheduleCacheRepository(client *redis.Client, ttl time.Duration) *ScheduleCacheRepository {
	return &ScheduleCacheRepository{client: client, ttl: ttl}
}

func activeScheduleKey(childID, weekStart string) string {
	return fmt.Sprintf("schedule:active:%s:%s", childID, weekStart)
}

// Get loads a cached value into dest. Returns ErrCacheMiss when absent.
func (r *ScheduleCacheRepository) Get(ctx context.Context, childID, weekStart string, dest any) error {
	if r.client == nil {
		return apperrors.ErrCacheMiss
	}
	payload, err := r.client.Get(ctx, activeScheduleKey(childID, weekStart)).Bytes()
	if errors.Is(err, redis.Nil) {
		return apperrors.ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("cache decode: %w", err)
	}
	return nil
}

// Set stores value under the child-week key with the configured TTL.
func (r *ScheduleCacheRepository) Set(ctx context.Context, childID, weekStart string, value any) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := r.client.Set(ctx, activeScheduleKey(childID, weekStart), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached entry for the child-week tuple.
func (r *ScheduleCacheRepository) Invalidate(ctx context.Context, childID, weekStart string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, activeScheduleKey(childID, weekStart)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
