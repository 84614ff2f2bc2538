package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "storefront:cart:"
	payloadFormat = 1
	defaultTTL    = 15 * time.Minute
	maxJitter     = 5 * time.Minute
	// outlives any cached entry so a Set can never see a reset counter
	generationTTL = 24 * time.Hour
)

// cachedCart is what lands in Redis. Entries with another format are treated as a miss.
type cachedCart struct {
	Format int               `json:"v"`
	Lines  []domain.CartLine `json:"lines"`
}

// RedisCache stores owner cart lines as one JSON value per owner, next to a generation
// counter. Both keys share a hash tag so they live in the same cluster slot.
type RedisCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisCache(rdb redis.UniversalClient) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: defaultTTL}
}

func linesKey(ownerID string) string { return keyPrefix + "{" + ownerID + "}" }
func genKey(ownerID string) string   { return keyPrefix + "{" + ownerID + "}:gen" }

func (c *RedisCache) Get(ctx context.Context, ownerID string) ([]domain.CartLine, uint64, error) {
	vals, err := c.rdb.MGet(ctx, linesKey(ownerID), genKey(ownerID)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("cache get %s: %w", ownerID, err)
	}

	gen, err := parseGeneration(vals[1])
	if err != nil {
		return nil, 0, fmt.Errorf("cache generation %s: %w", ownerID, err)
	}

	raw, ok := vals[0].(string)
	if !ok {
		return nil, gen, ErrCacheMiss
	}

	var entry cachedCart
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, 0, fmt.Errorf("cache decode %s: %w", ownerID, err)
	}
	if entry.Format != payloadFormat {
		return nil, gen, ErrCacheMiss
	}
	return entry.Lines, gen, nil
}

// Set stores lines only while the owner's generation still equals gen.
func (c *RedisCache) Set(ctx context.Context, ownerID string, gen uint64, lines []domain.CartLine) error {
	raw, err := json.Marshal(cachedCart{Format: payloadFormat, Lines: lines})
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", ownerID, err)
	}

	gk := genKey(ownerID)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return ErrStale
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, linesKey(ownerID), raw, c.expiry())
			return nil
		})
		return err
	}, gk)
	switch {
	case errors.Is(err, ErrStale), errors.Is(err, redis.TxFailedErr):
		return ErrStale
	case err != nil:
		return fmt.Errorf("cache set %s: %w", ownerID, err)
	}
	return nil
}

// Delete drops the cached lines and bumps the generation in one transaction.
func (c *RedisCache) Delete(ctx context.Context, ownerID string) error {
	gk := genKey(ownerID)
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, gk)
		p.Expire(ctx, gk, generationTTL)
		p.Del(ctx, linesKey(ownerID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache delete %s: %w", ownerID, err)
	}
	return nil
}

// expiry spreads TTLs so carts written together do not expire together.
func (c *RedisCache) expiry() time.Duration {
	return c.ttl + time.Duration(rand.Int63n(int64(maxJitter)))
}

func parseGeneration(v any) (uint64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}
