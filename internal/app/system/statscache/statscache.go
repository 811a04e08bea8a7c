// Package statscache is a read-through Redis cache for demand statistics.
//
// Keys embed a per-domain generation number; Invalidate bumps it so every
// cached entry of the domain is bypassed at once and left to expire.
package statscache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	demandstore "github.com/GlennEriss/kara-client-front-sub014/internal/app/store/demands"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const keyPrefix = "kara:stats:"

// DefaultTTL applies when New is given a non-positive ttl.
const DefaultTTL = 30 * time.Second

// Cache serves demandstore.Stats from Redis.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

// New creates a cache on rdb.
func New(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl, log: logger}
}

// Get returns the cached stats for (domain, f) or calls load and caches its
// result. Redis failures fall through to load.
func (c *Cache) Get(ctx context.Context, domain models.Domain, f demandstore.Filters, load func(context.Context) demandstore.Stats) demandstore.Stats {
	gen, err := c.generation(ctx, domain)
	if err != nil {
		c.log.Warn("stats cache unavailable", zap.String("domain", string(domain)), zap.Error(err))
		return load(ctx)
	}
	key := Key(domain, gen, f)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var st demandstore.Stats
		if err := json.Unmarshal(raw, &st); err == nil {
			return st
		}
		c.log.Warn("discarding malformed stats cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("stats cache read failed", zap.String("key", key), zap.Error(err))
		return load(ctx)
	}

	st := load(ctx)
	if raw, err := json.Marshal(st); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.log.Warn("stats cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return st
}

// Invalidate makes every cached entry of domain stale.
func (c *Cache) Invalidate(ctx context.Context, domain models.Domain) {
	if err := c.rdb.Incr(ctx, genKey(domain)).Err(); err != nil {
		c.log.Warn("stats cache invalidation failed", zap.String("domain", string(domain)), zap.Error(err))
	}
}

// Ping reports whether Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Cache) generation(ctx context.Context, domain models.Domain) (int64, error) {
	gen, err := c.rdb.Get(ctx, genKey(domain)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func genKey(domain models.Domain) string {
	return keyPrefix + string(domain) + ":gen"
}

// Key returns the cache key of the stats of domain at generation gen for f.
// Only the filters that influence the counts contribute to the hash.
func Key(domain models.Domain, gen int64, f demandstore.Filters) string {
	return fmt.Sprintf("%s%s:%d:%s", keyPrefix, domain, gen, filtersHash(f))
}

func filtersHash(f demandstore.Filters) string {
	canonical, _ := json.Marshal(struct {
		ContractType   string     `json:"ct,omitempty"`
		CaisseType     string     `json:"cs,omitempty"`
		MemberID       string     `json:"m,omitempty"`
		GroupID        string     `json:"g,omitempty"`
		DecisionMadeBy string     `json:"d,omitempty"`
		CreatedFrom    *time.Time `json:"cf,omitempty"`
		CreatedTo      *time.Time `json:"ctl,omitempty"`
	}{f.ContractType, f.CaisseType, f.MemberID, f.GroupID, f.DecisionMadeBy, f.CreatedFrom, f.CreatedTo})
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:8])
}
