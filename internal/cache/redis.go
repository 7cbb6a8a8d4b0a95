package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"afltips/automation/internal/metrics"
	"afltips/automation/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const snapshotKeyPrefix = "afltips:snapshot:"

// Cache wraps redis for read-through caching of accuracy snapshots.
// Every operation degrades gracefully: a redis failure is logged and the
// caller proceeds against the database.
type Cache struct {
	client      *redis.Client
	snapshotTTL time.Duration
}

// Config holds redis connection settings
type Config struct {
	Addr        string
	Password    string
	DB          int
	SnapshotTTL time.Duration
}

// New connects to redis and verifies the connection
func New(ctx context.Context, cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Cache{client: client, snapshotTTL: cfg.SnapshotTTL}, nil
}

// Close releases the redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks the redis connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetSnapshot returns the cached snapshot for a period, or nil on a miss.
// Redis errors are treated as misses.
func (c *Cache) GetSnapshot(ctx context.Context, period string) *models.AccuracySnapshot {
	data, err := c.client.Get(ctx, snapshotKeyPrefix+period).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("period", period).Msg("Snapshot cache read failed")
		}
		metrics.RecordCacheMiss("snapshot")
		return nil
	}

	var snap models.AccuracySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Warn().Err(err).Str("period", period).Msg("Discarding corrupt cached snapshot")
		metrics.RecordCacheMiss("snapshot")
		return nil
	}

	metrics.RecordCacheHit("snapshot")
	return &snap
}

// SetSnapshot caches a snapshot under its period
func (c *Cache) SetSnapshot(ctx context.Context, snap *models.AccuracySnapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		log.Warn().Err(err).Str("period", snap.Period).Msg("Failed to marshal snapshot for cache")
		return
	}
	if err := c.client.Set(ctx, snapshotKeyPrefix+snap.Period, data, c.snapshotTTL).Err(); err != nil {
		log.Warn().Err(err).Str("period", snap.Period).Msg("Snapshot cache write failed")
	}
}

// InvalidateSnapshots drops all cached snapshots after a recompute
func (c *Cache) InvalidateSnapshots(ctx context.Context) error {
	keys := []string{
		snapshotKeyPrefix + models.PeriodDaily,
		snapshotKeyPrefix + models.PeriodWeekly,
		snapshotKeyPrefix + models.PeriodAllTime,
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidating snapshot cache: %w", err)
	}
	return nil
}
