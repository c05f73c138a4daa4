package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"go-pos-inventory/config"
)

const keyPrefix = "pos:report"

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}

// ReportCache stores report results per tenant. Writes bump a per-tenant version, so
// entries computed before the write are never read again and expire on their own.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewReportCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ReportCache {
	return &ReportCache{client: client, ttl: ttl, logger: logger}
}

func versionKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:version", keyPrefix, tenantID)
}

func entryKey(tenantID uuid.UUID, version int64, key string) string {
	return fmt.Sprintf("%s:%s:v%d:%s", keyPrefix, tenantID, version, key)
}

// Version returns the tenant's current cache generation. Callers read it once before
// computing a report and pass it to both Get and Set, so a result computed while a write
// committed is stored under the superseded generation and never read.
func (c *ReportCache) Version(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(tenantID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		c.logger.Warn("report cache unavailable", zap.Error(err))
	}
	return v, err
}

// Get decodes a cached entry into dest. Any redis failure counts as a miss.
func (c *ReportCache) Get(ctx context.Context, tenantID uuid.UUID, version int64, key string, dest interface{}) bool {
	raw, err := c.client.Get(ctx, entryKey(tenantID, version, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("report cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *ReportCache) Set(ctx context.Context, tenantID uuid.UUID, version int64, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("report cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, entryKey(tenantID, version, key), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *ReportCache) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	if err := c.client.Incr(ctx, versionKey(tenantID)).Err(); err != nil {
		c.logger.Warn("report cache invalidation failed",
			zap.String("tenant_id", tenantID.String()), zap.Error(err))
	}
}

// Noop is used when no redis address is configured
type Noop struct{}

func (Noop) Version(context.Context, uuid.UUID) (int64, error)               { return 0, nil }
func (Noop) Get(context.Context, uuid.UUID, int64, string, interface{}) bool { return false }
func (Noop) Set(context.Context, uuid.UUID, int64, string, interface{})      {}
func (Noop) Invalidate(context.Context, uuid.UUID)                           {}
