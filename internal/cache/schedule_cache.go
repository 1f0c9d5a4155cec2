package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-booking-engine/internal/database"
	"github.com/smarttransit/seat-booking-engine/internal/models"
)

// DefaultScheduleTTL applies when no positive TTL is configured
const DefaultScheduleTTL = 5 * time.Minute

// ScheduleCache is a read-through Redis cache in front of a ScheduleCatalog.
// Only immutable schedule facts are cached; seat occupancy never is.
// Redis failures fall back to the underlying catalog.
//
// Entries are never invalidated explicitly: every entry is written with a
// TTL, so a catalog change is visible after at most one TTL.
type ScheduleCache struct {
	client *redis.Client
	next   database.ScheduleCatalog
	ttl    time.Duration
	logger *logrus.Logger
}

// NewScheduleCache creates a new ScheduleCache
func NewScheduleCache(client *redis.Client, next database.ScheduleCatalog, ttl time.Duration, logger *logrus.Logger) *ScheduleCache {
	// Redis treats a zero expiration as "keep forever"
	if ttl <= 0 {
		ttl = DefaultScheduleTTL
	}
	return &ScheduleCache{client: client, next: next, ttl: ttl, logger: logger}
}

// ScheduleKey returns the Redis key of a cached schedule
func ScheduleKey(scheduleID string) string {
	return "schedule:" + scheduleID
}

// GetSchedule returns the cached schedule or loads and caches it
func (c *ScheduleCache) GetSchedule(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	key := ScheduleKey(scheduleID)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var schedule models.Schedule
		if err := json.Unmarshal(data, &schedule); err == nil {
			return &schedule, nil
		}
		c.logger.WithField("schedule_id", scheduleID).Warn("Discarding undecodable cached schedule")
	case !errors.Is(err, redis.Nil):
		c.logger.WithError(err).WithField("schedule_id", scheduleID).Warn("Schedule cache read failed")
	}

	schedule, err := c.next.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(schedule); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.WithError(err).WithField("schedule_id", scheduleID).Warn("Schedule cache write failed")
		}
	}

	return schedule, nil
}
