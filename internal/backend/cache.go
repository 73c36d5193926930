package backend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const availabilityKeyPrefix = "pawcare:availability:"

type cacheStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// AvailabilityCache is a read-through Redis cache of provider working hours.
// Appointment lists are never cached, nor are responses that do not parse.
// Redis failures fall back to the API.
type AvailabilityCache struct {
	rdb  cacheStore
	next availabilityFetcher
	ttl  time.Duration
	log  *slog.Logger
}

func NewAvailabilityCache(rdb cacheStore, next availabilityFetcher, ttl time.Duration, log *slog.Logger) *AvailabilityCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &AvailabilityCache{
		rdb:  rdb,
		next: next,
		ttl:  ttl,
		log:  log.With(slog.String("component", "backend.availability_cache")),
	}
}

func (c *AvailabilityCache) FetchAvailability(ctx context.Context, auth AuthContext, providerID string) (AvailabilityResponse, error) {
	key := availabilityKeyPrefix + providerID

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached AvailabilityResponse
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		c.log.Warn("discarding undecodable cache entry", slog.String("provider_id", providerID))
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("availability cache read failed", slog.Any("err", err), slog.String("provider_id", providerID))
	}

	fresh, err := c.next.FetchAvailability(ctx, auth, providerID)
	if err != nil {
		return AvailabilityResponse{}, err
	}

	if _, err := fresh.WeeklyAvailability(); err != nil {
		return fresh, nil
	}
	b, err := json.Marshal(fresh)
	if err != nil {
		return fresh, nil
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.log.Warn("availability cache write failed", slog.Any("err", err), slog.String("provider_id", providerID))
	}
	return fresh, nil
}
