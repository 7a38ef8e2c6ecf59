package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bar-table-reservation/internal/model"
	"github.com/iliyamo/bar-table-reservation/internal/repository"
)

func newCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisCache(rdb, "cache", time.Minute, logrus.New()), mr
}

func TestInvalidateBarOnlyTouchesItsNamespace(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, c.Key("bar-1", "config"), map[string]int{"a": 1}))
	require.NoError(t, c.SetJSON(ctx, c.Key("bar-1", "http", "abc"), "body"))
	require.NoError(t, c.SetJSON(ctx, c.Key("bar-10", "config"), "other"))

	require.NoError(t, c.InvalidateBar(ctx, "bar-1"))
	assert.False(t, mr.Exists("cache:bar:bar-1:config"))
	assert.False(t, mr.Exists("cache:bar:bar-1:http:abc"))
	assert.True(t, mr.Exists("cache:bar:bar-10:config"))
}

func TestInvalidateBarEscapesPatternCharacters(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, c.Key("bar-1", "config"), "one"))
	require.NoError(t, c.SetJSON(ctx, c.Key("bar-2", "config"), "two"))
	require.NoError(t, c.SetJSON(ctx, c.Key("bar-*", "config"), "star"))

	for _, id := range []string{"bar-*", "bar-?", "bar-[12]", `bar-\*`} {
		require.NoError(t, c.InvalidateBar(ctx, id), id)
	}
	assert.True(t, mr.Exists("cache:bar:bar-1:config"))
	assert.True(t, mr.Exists("cache:bar:bar-2:config"))
	assert.False(t, mr.Exists("cache:bar:bar-*:config"), "a literal id is still invalidated")
	assert.Equal(t, `bar-\*\?`, escapeGlob("bar-*?"))
}

func TestGetJSONMissAndTTL(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	var v string
	found, err := c.GetJSON(ctx, c.Key("bar-1", "x"), &v)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.SetJSON(ctx, c.Key("bar-1", "x"), "hello"))
	found, err = c.GetJSON(ctx, c.Key("bar-1", "x"), &v)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hello", v)

	mr.FastForward(2 * time.Minute)
	found, _ = c.GetJSON(ctx, c.Key("bar-1", "x"), &v)
	assert.False(t, found)
}

func TestNilCacheIsANoop(t *testing.T) {
	var c *RedisCache
	ctx := context.Background()
	assert.NoError(t, c.InvalidateBar(ctx, "bar-1"))
	assert.NoError(t, c.SetJSON(ctx, c.Key("bar-1", "x"), 1))
	found, err := c.GetJSON(ctx, "k", new(int))
	assert.NoError(t, err)
	assert.False(t, found)
}

type countingConfigs struct {
	*repository.MemoryStore
	reads int
}

func (c *countingConfigs) GetReservationConfig(ctx context.Context, barID string) (model.ReservationConfig, error) {
	c.reads++
	return c.MemoryStore.GetReservationConfig(ctx, barID)
}

func TestCachedConfigs(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	src := &countingConfigs{MemoryStore: repository.NewMemoryStore()}
	cached := NewCachedConfigs(src, c)

	_, err := cached.GetReservationConfig(ctx, "bar-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = cached.GetReservationConfig(ctx, "bar-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 2, src.reads, "misses are not cached")

	cfg := model.DefaultReservationConfig("bar-1")
	cfg.Timezone = "Europe/Berlin"
	require.NoError(t, cached.SaveReservationConfig(ctx, cfg))

	got, err := cached.GetReservationConfig(ctx, "bar-1")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", got.Timezone)
	got, err = cached.GetReservationConfig(ctx, "bar-1")
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
	assert.Equal(t, 3, src.reads)

	cfg.MaxPartySize = 6
	require.NoError(t, cached.SaveReservationConfig(ctx, cfg))
	got, err = cached.GetReservationConfig(ctx, "bar-1")
	require.NoError(t, err)
	assert.Equal(t, 6, got.MaxPartySize)
	assert.Equal(t, 4, src.reads)
}
