// Package cache implements a TTL in-memory cache over an external
// key-value store, with stale-while-revalidate semantics and batched
// lookups. It fronts a store that is a source of truth living outside
// this process (Redis), not a general-purpose cache.
package cache

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// ValueParser turns a raw store value into a typed V. raw is nil when
// the key is absent from the store; implementations decide what that
// means for V (e.g. false for a boolean quota flag).
type ValueParser[V any] func(raw *string) (V, error)

type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

// Cache is a generic, stale-while-revalidate cache over a Redis-backed
// external store. Construction parameters are fixed for the lifetime of
// the value: ttl, stale-buffer, key prefix, and the value parser.
type Cache[V any] struct {
	ttl         time.Duration
	staleBuffer time.Duration
	keyPrefix   string
	parser      ValueParser[V]
	store       *redis.Client
	local       *gocache.Cache
	log         *log.Entry
}

// New returns a Cache fronting store. Local entries are evicted by
// go-cache's own janitor once they are old enough that they would be
// expired (not merely stale) anyway — freshness inside that window is
// computed separately from fetchedAt, not from go-cache's expiration.
func New[V any](store *redis.Client, ttl, staleBuffer time.Duration, keyPrefix string, parser ValueParser[V]) *Cache[V] {
	localTTL := ttl + staleBuffer
	return &Cache[V]{
		ttl:         ttl,
		staleBuffer: staleBuffer,
		keyPrefix:   keyPrefix,
		parser:      parser,
		store:       store,
		local:       gocache.New(localTTL, staleBuffer),
		log:         log.WithField("component", "cache").WithField("prefix", keyPrefix),
	}
}

type freshness int

const (
	freshnessFresh freshness = iota
	freshnessStale
	freshnessExpired
)

func (c *Cache[V]) classify(fetchedAt time.Time) freshness {
	age := time.Since(fetchedAt)
	switch {
	case age < c.ttl:
		return freshnessFresh
	case age < c.ttl+c.staleBuffer:
		return freshnessStale
	default:
		return freshnessExpired
	}
}

func (c *Cache[V]) fullKey(keySuffix string) string {
	return fmt.Sprintf("%s:%s", c.keyPrefix, keySuffix)
}

// GetOrRefresh returns the value for keySuffix. A fresh cached entry is
// returned as-is. A stale entry is returned immediately and triggers a
// detached background refresh. Anything else (no entry, or an expired
// one) is fetched from the store in the foreground.
func (c *Cache[V]) GetOrRefresh(ctx context.Context, keySuffix string) (V, error) {
	key := c.fullKey(keySuffix)

	if raw, ok := c.local.Get(key); ok {
		e := raw.(entry[V])
		switch c.classify(e.fetchedAt) {
		case freshnessFresh:
			return e.value, nil
		case freshnessStale:
			go c.backgroundRefresh(key, keySuffix)
			return e.value, nil
		}
	}

	return c.foregroundFetch(ctx, key, keySuffix)
}

// GetManyOrRefresh resolves every key suffix in keySuffixes, partitioning
// them into served-from-local-cache (fresh or stale) and fetched fresh
// from the store in a single pipelined round trip. Stale entries also
// trigger a background refresh, same as GetOrRefresh. The returned maps
// are keyed by the original key suffix, not the prefixed store key.
func (c *Cache[V]) GetManyOrRefresh(ctx context.Context, keySuffixes []string) (map[string]V, map[string]error) {
	values := make(map[string]V, len(keySuffixes))
	errs := make(map[string]error)

	var toFetch []string
	for _, suffix := range keySuffixes {
		key := c.fullKey(suffix)
		raw, ok := c.local.Get(key)
		if !ok {
			toFetch = append(toFetch, suffix)
			continue
		}

		e := raw.(entry[V])
		switch c.classify(e.fetchedAt) {
		case freshnessFresh:
			values[suffix] = e.value
		case freshnessStale:
			values[suffix] = e.value
			go c.backgroundRefresh(key, suffix)
		default:
			toFetch = append(toFetch, suffix)
		}
	}

	if len(toFetch) == 0 {
		return values, errs
	}

	pipe := c.store.Pipeline()
	cmds := make(map[string]*redis.StringCmd, len(toFetch))
	for _, suffix := range toFetch {
		cmds[suffix] = pipe.Get(ctx, c.fullKey(suffix))
	}
	// Errors from individual missing keys (redis.Nil) surface per-command
	// below; only a transport-level failure is worth treating as a whole
	// batch error here.
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		for _, suffix := range toFetch {
			errs[suffix] = fmt.Errorf("batch fetch %q: %w", suffix, err)
		}
		return values, errs
	}

	now := time.Now()
	for suffix, cmd := range cmds {
		raw, rerr := stringCmdToPtr(cmd)
		if rerr != nil {
			errs[suffix] = fmt.Errorf("batch fetch %q: %w", suffix, rerr)
			continue
		}
		parsed, perr := c.parser(raw)
		if perr != nil {
			errs[suffix] = fmt.Errorf("parse %q: %w", suffix, perr)
			continue
		}
		c.local.SetDefault(c.fullKey(suffix), entry[V]{value: parsed, fetchedAt: now})
		values[suffix] = parsed
	}

	return values, errs
}

func (c *Cache[V]) foregroundFetch(ctx context.Context, key, keySuffix string) (V, error) {
	var zero V

	raw, err := stringCmdToPtr(c.store.Get(ctx, key))
	if err != nil {
		return zero, fmt.Errorf("fetch %q: %w", keySuffix, err)
	}

	parsed, err := c.parser(raw)
	if err != nil {
		return zero, fmt.Errorf("parse %q: %w", keySuffix, err)
	}

	c.local.SetDefault(key, entry[V]{value: parsed, fetchedAt: time.Now()})
	return parsed, nil
}

func (c *Cache[V]) backgroundRefresh(key, keySuffix string) {
	raw, err := stringCmdToPtr(c.store.Get(context.Background(), key))
	if err != nil {
		c.log.WithError(err).WithField("key", keySuffix).Warn("background refresh failed, keeping stale value")
		return
	}

	parsed, err := c.parser(raw)
	if err != nil {
		c.log.WithError(err).WithField("key", keySuffix).Warn("background refresh parse failed, keeping stale value")
		return
	}

	c.local.SetDefault(key, entry[V]{value: parsed, fetchedAt: time.Now()})
}

func stringCmdToPtr(cmd *redis.StringCmd) (*string, error) {
	val, err := cmd.Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &val, nil
}
