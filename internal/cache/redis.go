package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/filemart/downloads/internal/model"
	"github.com/filemart/downloads/internal/quota"
	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"
)

// Redis implements EntitlementCache on go-redis with a short TTL. Entries
// are JSON blobs keyed by package or user id; invalidation is a key delete.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// Connect initializes a redis client from a redis:// URL or host:port.
func Connect(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// NewRedis constructs a redis-backed cache with the given entry TTL.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

func usageKey(packageID uuid.UUID) string { return "dl:usage:" + packageID.String() }
func currentKey(userID uuid.UUID) string  { return "dl:curpkg:" + userID.String() }

func (c *Redis) get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// A corrupt entry behaves like a miss; the next Set repairs it.
		return false, nil
	}
	return true, nil
}

func (c *Redis) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, ttl).Err()
}

// usageTTL caps ttl at the time left in the current UTC day: a usage
// snapshot never outlives the day its daily counters were computed in.
func usageTTL(now time.Time, ttl time.Duration) time.Duration {
	if rem := quota.DayStart(now).AddDate(0, 0, 1).Sub(now); rem < ttl {
		return rem
	}
	return ttl
}

// GetUsage returns a cached usage snapshot, or (nil, nil) on a miss.
func (c *Redis) GetUsage(ctx context.Context, packageID uuid.UUID) (*model.Usage, error) {
	var u model.Usage
	ok, err := c.get(ctx, usageKey(packageID), &u)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

// SetUsage stores a usage snapshot, expiring no later than UTC midnight.
func (c *Redis) SetUsage(ctx context.Context, packageID uuid.UUID, u model.Usage) error {
	return c.set(ctx, usageKey(packageID), u, usageTTL(time.Now(), c.ttl))
}

// InvalidateUsage drops the usage snapshot for a package.
func (c *Redis) InvalidateUsage(ctx context.Context, packageID uuid.UUID) error {
	return c.rdb.Del(ctx, usageKey(packageID)).Err()
}

// GetCurrent returns the cached current package, or (nil, nil) on a miss.
func (c *Redis) GetCurrent(ctx context.Context, userID uuid.UUID) (*model.Package, error) {
	var p model.Package
	ok, err := c.get(ctx, currentKey(userID), &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

// SetCurrent stores the user's current package.
func (c *Redis) SetCurrent(ctx context.Context, userID uuid.UUID, p model.Package) error {
	return c.set(ctx, currentKey(userID), p, c.ttl)
}

// InvalidateCurrent drops the user's current-package entry.
func (c *Redis) InvalidateCurrent(ctx context.Context, userID uuid.UUID) error {
	return c.rdb.Del(ctx, currentKey(userID)).Err()
}
