// Package cache names the cached API resources and drops their Redis entries
// when the underlying rows change.  Entries are keyed
// <prefix>:<resource>:<sha1>, so invalidating a resource is a prefix scan.
package cache

import (
	"context"
	"crypto/sha1"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/evanto-api/internal/metrics"
)

// Cached resources.
const (
	UnifiedItems     = "unified-items"
	UnifiedItem      = "unified-item"
	Events           = "events"
	Meetups          = "meetups"
	SeatAvailability = "seat-availability"
	Bookings         = "bookings"
	Favorites        = "favorites"
	UserProfile      = "user-profile"
	PaymentCards     = "payment-cards"
)

var freshness = map[string]time.Duration{
	UnifiedItems:     2 * time.Minute,
	Events:           2 * time.Minute,
	Meetups:          2 * time.Minute,
	UnifiedItem:      5 * time.Minute,
	SeatAvailability: 30 * time.Second,
}

// TTL returns how long a resource stays fresh, or def when it has no
// dedicated window.
func TTL(resource string, def time.Duration) time.Duration {
	if d, ok := freshness[resource]; ok {
		return d
	}
	return def
}

// ResourceForTable maps a table name from the change feed onto its list
// resource.
func ResourceForTable(table string) string {
	switch table {
	case "events":
		return Events
	case "meetups":
		return Meetups
	case "bookings":
		return Bookings
	case "favorites":
		return Favorites
	case "payment_methods":
		return PaymentCards
	case "users":
		return UserProfile
	}
	return table
}

// Key builds the cache key for a resource; tail identifies the request.
func Key(prefix, resource, tail string) string {
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:%s:%x", prefix, resource, sum[:])
}

// Invalidator deletes every cached entry of the given resources.  A nil
// Invalidator, or one without a client, does nothing.
type Invalidator struct {
	rdb    *redis.Client
	prefix string
}

func NewInvalidator(rdb *redis.Client, prefix string) *Invalidator {
	if prefix == "" {
		prefix = "cache"
	}
	return &Invalidator{rdb: rdb, prefix: prefix}
}

func (i *Invalidator) Invalidate(ctx context.Context, resources ...string) error {
	if i == nil || i.rdb == nil {
		return nil
	}
	for _, res := range resources {
		pattern := fmt.Sprintf("%s:%s:*", i.prefix, res)
		var cursor uint64
		for {
			keys, next, err := i.rdb.Scan(ctx, cursor, pattern, 100).Result()
			if err != nil {
				return fmt.Errorf("scan %s: %w", pattern, err)
			}
			if len(keys) > 0 {
				if err := i.rdb.Del(ctx, keys...).Err(); err != nil {
					return fmt.Errorf("del %s: %w", pattern, err)
				}
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
		metrics.TrackInvalidation(res)
	}
	return nil
}
