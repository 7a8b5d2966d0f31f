package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"lif/internal/platform/redis"
)

// CachedStore decorates a Store with a Redis read-through cache for Resolve,
// the hot path of every dispatch cycle. Register and Delete invalidate the
// cached entry; cache failures degrade to the underlying store.
type CachedStore struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedStore wraps inner with a Redis cache.
func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

func cacheKey(key Key) string {
	return strings.Join([]string{
		"lif:mapping",
		key.LIFOrganizationID, key.LIFOrganizationPersonID,
		key.TargetSystemID, key.TargetSystemPersonIDType,
	}, ":")
}

func (s *CachedStore) Resolve(ctx context.Context, key Key) (string, error) {
	ck := cacheKey(key)

	cached, err := s.client.Get(ctx, ck).Result()
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, goredis.Nil) {
		s.logger.WarnContext(ctx, "mapping cache read failed", "error", err)
	}

	targetID, err := s.inner.Resolve(ctx, key)
	if err != nil {
		return "", err
	}

	if err := s.client.Set(ctx, ck, targetID, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "mapping cache write failed", "error", err)
	}
	return targetID, nil
}

func (s *CachedStore) Register(ctx context.Context, mapping *Mapping) error {
	if mapping == nil {
		return fmt.Errorf("mapping is required")
	}
	if err := s.inner.Register(ctx, mapping); err != nil {
		return err
	}
	if err := s.client.Del(ctx, cacheKey(mapping.Key)).Err(); err != nil {
		s.logger.WarnContext(ctx, "mapping cache invalidation failed", "error", err)
	}
	return nil
}

func (s *CachedStore) List(ctx context.Context, organizationID, organizationPersonID string) ([]*Mapping, error) {
	return s.inner.List(ctx, organizationID, organizationPersonID)
}

func (s *CachedStore) Delete(ctx context.Context, key Key) error {
	if err := s.inner.Delete(ctx, key); err != nil {
		return err
	}
	if err := s.client.Del(ctx, cacheKey(key)).Err(); err != nil {
		s.logger.WarnContext(ctx, "mapping cache invalidation failed", "error", err)
	}
	return nil
}
