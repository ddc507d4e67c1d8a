package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/StricklySoft/authbridge/pkg/clients/redis"
)

// Default TTLs for cached membership sets. Positive entries live long enough
// to absorb bursts of requests from the same subject; empty results are kept
// on a shorter leash so a freshly granted membership becomes visible quickly.
const (
	DefaultCacheTTL         = 5 * time.Minute
	DefaultNegativeCacheTTL = 30 * time.Second
)

// cacheKeyPrefix namespaces membership entries in Redis. The full key is the
// prefix followed by the subject, e.g. "authz:memberships:auth0|abc123".
const cacheKeyPrefix = "authz:memberships:"

// Cache is a read-through decorator over a [Lookup]. Hits are served from
// Redis; misses fall through to the wrapped Lookup and the result is written
// back with a TTL. Empty membership sets are cached too, with a shorter TTL,
// so repeated requests from unknown subjects do not hammer the database.
//
// Redis being down or slow never fails a lookup: any cache error is logged
// and the call falls through to the wrapped Lookup. The cache is an
// optimization, not a dependency.
type Cache struct {
	lookup      Lookup
	client      *redis.Client
	logger      *slog.Logger
	ttl         time.Duration
	negativeTTL time.Duration
}

var _ Lookup = (*Cache)(nil)

// CacheOption configures a [Cache].
type CacheOption func(*Cache)

// WithCacheTTL overrides the TTL for non-empty membership sets.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithNegativeCacheTTL overrides the TTL for empty membership sets.
func WithNegativeCacheTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.negativeTTL = ttl
		}
	}
}

// WithCacheLogger overrides the logger used for cache degradation warnings.
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCache wraps lookup with a Redis read-through cache.
func NewCache(lookup Lookup, client *redis.Client, opts ...CacheOption) *Cache {
	c := &Cache{
		lookup:      lookup,
		client:      client,
		logger:      slog.Default(),
		ttl:         DefaultCacheTTL,
		negativeTTL: DefaultNegativeCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MembershipsBySubject returns the cached membership set for subject, falling
// through to the wrapped Lookup on a miss and writing the result back.
//
// A cached empty set is returned as an empty slice, matching the store's
// contract for subjects with no memberships.
func (c *Cache) MembershipsBySubject(ctx context.Context, subject string) ([]Membership, error) {
	key := cacheKeyPrefix + subject

	payload, err := c.client.Get(ctx, key)
	if err == nil {
		var memberships []Membership
		if jsonErr := json.Unmarshal([]byte(payload), &memberships); jsonErr == nil {
			if memberships == nil {
				memberships = []Membership{}
			}
			return memberships, nil
		}
		// A corrupt entry is treated as a miss; the write-back below
		// replaces it.
		c.logger.WarnContext(ctx, "membership cache entry is corrupt, refreshing from store",
			slog.String("subject", subject))
	} else if !errors.Is(err, goredis.Nil) {
		c.logger.WarnContext(ctx, "membership cache read failed, falling through to store",
			slog.String("subject", subject),
			slog.String("error", err.Error()))
	}

	memberships, err := c.lookup.MembershipsBySubject(ctx, subject)
	if err != nil {
		return nil, err
	}

	c.writeBack(ctx, key, subject, memberships)
	return memberships, nil
}

// Invalidate removes the cached membership set for subject. Call it after a
// membership change so the next lookup sees the new state immediately instead
// of waiting for the TTL.
func (c *Cache) Invalidate(ctx context.Context, subject string) error {
	_, err := c.client.Del(ctx, cacheKeyPrefix+subject)
	return err
}

func (c *Cache) writeBack(ctx context.Context, key, subject string, memberships []Membership) {
	if memberships == nil {
		memberships = []Membership{}
	}

	payload, err := json.Marshal(memberships)
	if err != nil {
		c.logger.WarnContext(ctx, "membership cache write-back failed to marshal",
			slog.String("subject", subject),
			slog.String("error", err.Error()))
		return
	}

	ttl := c.ttl
	if len(memberships) == 0 {
		ttl = c.negativeTTL
	}

	if err := c.client.Set(ctx, key, payload, ttl); err != nil {
		c.logger.WarnContext(ctx, "membership cache write-back failed",
			slog.String("subject", subject),
			slog.String("error", err.Error()))
	}
}
