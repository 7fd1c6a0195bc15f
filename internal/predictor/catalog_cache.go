package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"property-estimator/internal/common/logger"
	"property-estimator/internal/common/metrics"
	"property-estimator/internal/form"
	"property-estimator/internal/models"

	"github.com/redis/go-redis/v9"
)

// CachedClient serves FetchOptions from Redis when it can and passes
// everything else through. Redis failures never fail a fetch.
type CachedClient struct {
	next  form.PredictionClient
	redis redis.Cmdable
	key   string
	ttl   time.Duration
	log   logger.Logger
}

func NewCachedClient(next form.PredictionClient, rdb redis.Cmdable, key string, ttl time.Duration, log logger.Logger) *CachedClient {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &CachedClient{
		next:  next,
		redis: rdb,
		key:   key,
		ttl:   ttl,
		log:   log,
	}
}

var _ form.PredictionClient = (*CachedClient)(nil)

func (c *CachedClient) FetchOptions(ctx context.Context) (models.OptionCatalog, error) {
	val, err := c.redis.Get(ctx, c.key).Bytes()
	switch {
	case err == nil:
		var catalog models.OptionCatalog
		if jsonErr := json.Unmarshal(val, &catalog); jsonErr == nil {
			metrics.CatalogCacheLookups.WithLabelValues("hit").Inc()
			c.log.Debug("Option catalog served from cache", map[string]interface{}{"key": c.key})
			return withEmptyDefaults(catalog), nil
		}
		c.log.Warn("Discarding unreadable cached option catalog", map[string]interface{}{"key": c.key})
		metrics.CatalogCacheLookups.WithLabelValues("corrupt").Inc()
	case errors.Is(err, redis.Nil):
		metrics.CatalogCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.CatalogCacheLookups.WithLabelValues("error").Inc()
		c.log.Warn("Option catalog cache unavailable", map[string]interface{}{
			"key":   c.key,
			"error": err,
		})
	}

	catalog, err := c.next.FetchOptions(ctx)
	if err != nil {
		return catalog, err
	}

	data, err := json.Marshal(catalog)
	if err != nil {
		return catalog, nil
	}
	if err := c.redis.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		c.log.Warn("Failed to cache option catalog", map[string]interface{}{
			"key":   c.key,
			"error": err,
		})
	}
	return catalog, nil
}

func (c *CachedClient) Predict(ctx context.Context, input form.Normalized) (*models.PredictionResult, error) {
	return c.next.Predict(ctx, input)
}

// Invalidate drops the cached catalog.
func (c *CachedClient) Invalidate(ctx context.Context) error {
	return c.redis.Del(ctx, c.key).Err()
}

func withEmptyDefaults(c models.OptionCatalog) models.OptionCatalog {
	if c.Locations == nil {
		c.Locations = map[string][]string{}
	}
	if c.PropertyTypes == nil {
		c.PropertyTypes = []string{}
	}
	return c
}
