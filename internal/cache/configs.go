package cache

import (
	"context"

	"github.com/iliyamo/bar-table-reservation/internal/model"
)

// ConfigSource is the reservation config store being cached.
type ConfigSource interface {
	GetReservationConfig(ctx context.Context, barID string) (model.ReservationConfig, error)
	SaveReservationConfig(ctx context.Context, cfg model.ReservationConfig) error
}

// CachedConfigs reads reservation configs through the cache.  Errors of
// the source, not-found included, are passed through uncached.  Cache
// failures degrade to a direct read.
type CachedConfigs struct {
	source ConfigSource
	cache  *RedisCache
}

func NewCachedConfigs(source ConfigSource, cache *RedisCache) *CachedConfigs {
	return &CachedConfigs{source: source, cache: cache}
}

func (c *CachedConfigs) GetReservationConfig(ctx context.Context, barID string) (model.ReservationConfig, error) {
	key := c.cache.Key(barID, "config")
	var cfg model.ReservationConfig
	if found, err := c.cache.GetJSON(ctx, key, &cfg); err == nil && found {
		return cfg, nil
	} else if err != nil {
		c.cache.log.WithError(err).WithField("bar_id", barID).Warn("config cache read failed")
	}

	cfg, err := c.source.GetReservationConfig(ctx, barID)
	if err != nil {
		return model.ReservationConfig{}, err
	}
	if err := c.cache.SetJSON(ctx, key, cfg); err != nil {
		c.cache.log.WithError(err).WithField("bar_id", barID).Warn("config cache write failed")
	}
	return cfg, nil
}

// SaveReservationConfig writes through and drops the bar's namespace.
func (c *CachedConfigs) SaveReservationConfig(ctx context.Context, cfg model.ReservationConfig) error {
	if err := c.source.SaveReservationConfig(ctx, cfg); err != nil {
		return err
	}
	return c.cache.InvalidateBar(ctx, cfg.BarID)
}
