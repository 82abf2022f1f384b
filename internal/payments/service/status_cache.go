package service

import (
	"context"
	"errors"
	"time"

	bookings "staybook/internal/bookings/service"
	"staybook/pkg/logger"
	"staybook/pkg/model"

	"github.com/redis/go-redis/v9"
)

// StatusCache absorbs client polling of the payment page. A miss or a cache
// failure always falls through to the booking store.
type StatusCache interface {
	Get(ctx context.Context, bookingID string) (string, bool)
	Set(ctx context.Context, bookingID string, status string)
	Invalidate(ctx context.Context, bookingID string)
}

// InvalidateOnTransition drops the cached status of every booking whose
// status changes, whichever path changed it.
func InvalidateOnTransition(cache StatusCache) bookings.TransitionListener {
	return func(ctx context.Context, b *model.Booking) {
		cache.Invalidate(ctx, b.ID)
	}
}

type NopStatusCache struct{}

func (NopStatusCache) Get(context.Context, string) (string, bool) { return "", false }
func (NopStatusCache) Set(context.Context, string, string)        {}
func (NopStatusCache) Invalidate(context.Context, string)         {}

type RedisStatusCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisStatusCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisStatusCache {
	return &RedisStatusCache{client: client, ttl: ttl, log: log}
}

func statusKey(bookingID string) string {
	return "payment-status:" + bookingID
}

func (c *RedisStatusCache) Get(ctx context.Context, bookingID string) (string, bool) {
	status, err := c.client.Get(ctx, statusKey(bookingID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("Status cache read failed", "booking_id", bookingID, "error", err)
		}
		return "", false
	}
	return status, true
}

func (c *RedisStatusCache) Set(ctx context.Context, bookingID string, status string) {
	if err := c.client.Set(ctx, statusKey(bookingID), status, c.ttl).Err(); err != nil {
		c.log.Warn("Status cache write failed", "booking_id", bookingID, "error", err)
	}
}

func (c *RedisStatusCache) Invalidate(ctx context.Context, bookingID string) {
	if err := c.client.Del(context.WithoutCancel(ctx), statusKey(bookingID)).Err(); err != nil {
		c.log.Warn("Status cache invalidation failed", "booking_id", bookingID, "error", err)
	}
}
