package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"booking-engine/internal/domain/catalog"
	"booking-engine/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "catalog:"

// CachedCatalog is a read-through cache in front of the catalog store.
// Redis failures fall back to the store; nothing is ever served from cache
// alone when Redis is unreachable.
type CachedCatalog struct {
	next   shared.CatalogReader
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedCatalog(next shared.CatalogReader, rdb redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *CachedCatalog {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedCatalog{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func (c *CachedCatalog) ServiceByID(ctx context.Context, id uuid.UUID) (*catalog.Service, error) {
	return readThrough(ctx, c, keyPrefix+"service:"+id.String(), func() (*catalog.Service, error) {
		return c.next.ServiceByID(ctx, id)
	})
}

func (c *CachedCatalog) PractitionerByID(ctx context.Context, id uuid.UUID) (*catalog.Practitioner, error) {
	return readThrough(ctx, c, keyPrefix+"practitioner:"+id.String(), func() (*catalog.Practitioner, error) {
		return c.next.PractitionerByID(ctx, id)
	})
}

type daySchedule struct {
	Hours    *catalog.BusinessHours        `json:"hours,omitempty"`
	Schedule *catalog.PractitionerSchedule `json:"schedule,omitempty"`
}

func (c *CachedCatalog) DaySchedule(ctx context.Context, practitionerID uuid.UUID, day time.Weekday) (*catalog.BusinessHours, *catalog.PractitionerSchedule, error) {
	key := fmt.Sprintf("%sday:%s:%d", keyPrefix, practitionerID, day)
	ds, err := readThrough(ctx, c, key, func() (*daySchedule, error) {
		hours, sched, err := c.next.DaySchedule(ctx, practitionerID, day)
		if err != nil {
			return nil, err
		}
		return &daySchedule{Hours: hours, Schedule: sched}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return ds.Hours, ds.Schedule, nil
}

// Invalidate drops every cached entry of one practitioner, e.g. after an
// out-of-band schedule change.
func (c *CachedCatalog) Invalidate(ctx context.Context, practitionerID uuid.UUID) error {
	keys := []string{keyPrefix + "practitioner:" + practitionerID.String()}
	for d := time.Sunday; d <= time.Saturday; d++ {
		keys = append(keys, fmt.Sprintf("%sday:%s:%d", keyPrefix, practitionerID, d))
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func readThrough[T any](ctx context.Context, c *CachedCatalog, key string, load func() (*T, error)) (*T, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return &v, nil
		}
		c.logger.Warn("discarding undecodable catalog cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("catalog cache read failed", "key", key, "error", err.Error())
	}

	v, err := load()
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(v); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("catalog cache write failed", "key", key, "error", err.Error())
		}
	}
	return v, nil
}
