package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/novamart/novamart-dashboard/backend-go/internal/config"
	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

const (
	forecastKeyPrefix     = "forecast"
	forecastScanBatchSize = 100
)

// ForecastCache stores fitted forecasts keyed by product, horizon and a
// fingerprint of the demand history. The fingerprint makes entries
// self-invalidating: new sales data changes the key, so stale forecasts are
// simply never read again and age out via TTL.
type ForecastCache interface {
	Get(ctx context.Context, product string, horizonDays int, history domain.DemandSeries) (*domain.ForecastResult, bool, error)
	Set(ctx context.Context, product string, horizonDays int, history domain.DemandSeries, result *domain.ForecastResult) error
	InvalidateProduct(ctx context.Context, product string) error
	InvalidateAll(ctx context.Context) error
}

type redisForecastCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopForecastCache struct{}

func NewForecastCache(cfg config.CacheConfig) (ForecastCache, error) {
	if !cfg.Enabled {
		return &noopForecastCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg, cfg.ForecastTTLSeconds)
	if err != nil {
		return nil, err
	}

	return &redisForecastCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopForecastCache() ForecastCache {
	return &noopForecastCache{}
}

func (c *redisForecastCache) Get(ctx context.Context, product string, horizonDays int, history domain.DemandSeries) (*domain.ForecastResult, bool, error) {
	key := buildForecastKey(product, horizonDays, history)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var result domain.ForecastResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false, fmt.Errorf("decode forecast cache: %w", err)
	}

	return &result, true, nil
}

func (c *redisForecastCache) Set(ctx context.Context, product string, horizonDays int, history domain.DemandSeries, result *domain.ForecastResult) error {
	key := buildForecastKey(product, horizonDays, history)
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode forecast cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisForecastCache) InvalidateProduct(ctx context.Context, product string) error {
	prefix := fmt.Sprintf("%s:%s:", forecastKeyPrefix, productKeyHash(product))
	return deleteKeysWithPrefix(ctx, c.client, prefix, forecastScanBatchSize)
}

func (c *redisForecastCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, forecastKeyPrefix+":", forecastScanBatchSize)
}

func (n *noopForecastCache) Get(ctx context.Context, product string, horizonDays int, history domain.DemandSeries) (*domain.ForecastResult, bool, error) {
	return nil, false, nil
}

func (n *noopForecastCache) Set(ctx context.Context, product string, horizonDays int, history domain.DemandSeries, result *domain.ForecastResult) error {
	return nil
}

func (n *noopForecastCache) InvalidateProduct(ctx context.Context, product string) error {
	return nil
}

func (n *noopForecastCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildForecastKey(product string, horizonDays int, history domain.DemandSeries) string {
	return fmt.Sprintf("%s:%s:%d:%s", forecastKeyPrefix, productKeyHash(product), horizonDays, seriesFingerprint(history))
}

// productKeyHash keeps arbitrary product names safe inside a redis key and
// gives per-product invalidation a stable prefix to scan.
func productKeyHash(product string) string {
	sum := sha1.Sum([]byte(strings.TrimSpace(product)))
	return hex.EncodeToString(sum[:])
}

// seriesFingerprint hashes the observations a forecast was fitted on.
func seriesFingerprint(history domain.DemandSeries) string {
	if len(history.Points) == 0 {
		return "empty"
	}
	h := sha1.New()
	for _, p := range history.Points {
		fmt.Fprintf(h, "%s|%.6f\n", p.Date.Format("2006-01-02"), p.Quantity)
	}
	return hex.EncodeToString(h.Sum(nil))
}
