// Package cache holds the redis-backed TTL cache.  Every key belongs to
// one bar namespace, "<prefix>:bar:<barID>:...", so all cached reads of a
// bar can be dropped with one InvalidateBar call after a write.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// BarKey builds a key inside the bar's namespace.
func BarKey(prefix, barID string, parts ...string) string {
	return strings.Join(append([]string{prefix, "bar", barID}, parts...), ":")
}

// RedisCache stores JSON values with a TTL.  A nil *RedisCache, or one
// without a client, is a valid always-miss cache.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    logrus.FieldLogger
}

func NewRedisCache(rdb *redis.Client, prefix string, ttl time.Duration, log logrus.FieldLogger) *RedisCache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: ttl, log: log}
}

func (c *RedisCache) enabled() bool { return c != nil && c.rdb != nil }

// Key returns the key for parts inside barID's namespace.
func (c *RedisCache) Key(barID string, parts ...string) string {
	if c == nil {
		return BarKey("cache", barID, parts...)
	}
	return BarKey(c.prefix, barID, parts...)
}

// GetJSON decodes the value at key into dst.  found is false on a miss.
func (c *RedisCache) GetJSON(ctx context.Context, key string, dst interface{}) (found bool, err error) {
	if !c.enabled() {
		return false, nil
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		// A value we cannot read is as good as absent.
		_ = c.rdb.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

// SetJSON stores v at key for the cache TTL.
func (c *RedisCache) SetJSON(ctx context.Context, key string, v interface{}) error {
	if !c.enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

// escapeGlob quotes the SCAN MATCH metacharacters in s.
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

// InvalidateBar deletes every key of the bar's namespace.  The bar id is
// escaped so an id such as "bar-*" cannot reach other bars' keys.
func (c *RedisCache) InvalidateBar(ctx context.Context, barID string) error {
	if !c.enabled() {
		return nil
	}
	pattern := BarKey(c.prefix, escapeGlob(barID), "*")
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		c.log.WithFields(logrus.Fields{"bar_id": barID, "keys": deleted}).Debug("cache invalidated")
	}
	return nil
}
