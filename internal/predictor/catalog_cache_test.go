package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"property-estimator/internal/common/logger"
	"property-estimator/internal/form"
	"property-estimator/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUpstream struct {
	catalog models.OptionCatalog
	err     error
	fetches int
	predict int
}

func (s *stubUpstream) FetchOptions(context.Context) (models.OptionCatalog, error) {
	s.fetches++
	return s.catalog, s.err
}

func (s *stubUpstream) Predict(context.Context, form.Normalized) (*models.PredictionResult, error) {
	s.predict++
	return &models.PredictionResult{PredictedPrice: 1}, nil
}

var sampleCatalog = models.OptionCatalog{
	Locations:     map[string][]string{"Maharashtra": {"Pune", "Mumbai"}},
	PropertyTypes: []string{"Apartment", "Villa"},
}

func TestCachedClient_MissThenHit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	upstream := &stubUpstream{catalog: sampleCatalog}
	client := NewCachedClient(upstream, rdb, "estimator:options", time.Hour, logger.NewTestLogger(t))
	ctx := context.Background()

	first, err := client.FetchOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleCatalog, first)
	assert.Equal(t, 1, upstream.fetches)
	assert.True(t, mr.Exists("estimator:options"))
	assert.Equal(t, time.Hour, mr.TTL("estimator:options"))

	second, err := client.FetchOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleCatalog, second)
	assert.Equal(t, 1, upstream.fetches)

	mr.FastForward(2 * time.Hour)
	_, err = client.FetchOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.fetches)
}

func TestCachedClient_UpstreamFailureIsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	upstream := &stubUpstream{catalog: models.EmptyCatalog(), err: errors.New("connection refused")}
	client := NewCachedClient(upstream, rdb, "estimator:options", time.Hour, nil)

	_, err := client.FetchOptions(context.Background())
	require.Error(t, err)
	assert.False(t, mr.Exists("estimator:options"))
}

func TestCachedClient_Invalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	upstream := &stubUpstream{catalog: sampleCatalog}
	client := NewCachedClient(upstream, rdb, "estimator:options", time.Hour, nil)
	ctx := context.Background()

	_, err := client.FetchOptions(ctx)
	require.NoError(t, err)
	require.NoError(t, client.Invalidate(ctx))
	assert.False(t, mr.Exists("estimator:options"))
}

func TestCachedClient_WithRedisMock(t *testing.T) {
	cachedData, err := json.Marshal(sampleCatalog)
	require.NoError(t, err)

	t.Run("cache hit skips upstream", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		redisMock.ExpectGet("opts").SetVal(string(cachedData))

		upstream := &stubUpstream{}
		client := NewCachedClient(upstream, redisClient, "opts", time.Minute, nil)

		catalog, err := client.FetchOptions(context.Background())
		require.NoError(t, err)
		assert.Equal(t, sampleCatalog, catalog)
		assert.Equal(t, 0, upstream.fetches)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("cache miss writes through", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		redisMock.ExpectGet("opts").RedisNil()
		redisMock.ExpectSet("opts", cachedData, time.Minute).SetVal("OK")

		upstream := &stubUpstream{catalog: sampleCatalog}
		client := NewCachedClient(upstream, redisClient, "opts", time.Minute, nil)

		catalog, err := client.FetchOptions(context.Background())
		require.NoError(t, err)
		assert.Equal(t, sampleCatalog, catalog)
		assert.Equal(t, 1, upstream.fetches)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("redis errors fall back to upstream", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		redisMock.ExpectGet("opts").SetErr(errors.New("connection reset"))
		redisMock.ExpectSet("opts", cachedData, time.Minute).SetErr(errors.New("connection reset"))

		upstream := &stubUpstream{catalog: sampleCatalog}
		client := NewCachedClient(upstream, redisClient, "opts", time.Minute, nil)

		catalog, err := client.FetchOptions(context.Background())
		require.NoError(t, err)
		assert.Equal(t, sampleCatalog, catalog)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("corrupt cache entry is refetched", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		redisMock.ExpectGet("opts").SetVal("{not json")
		redisMock.ExpectSet("opts", cachedData, time.Minute).SetVal("OK")

		upstream := &stubUpstream{catalog: sampleCatalog}
		client := NewCachedClient(upstream, redisClient, "opts", time.Minute, nil)

		_, err := client.FetchOptions(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, upstream.fetches)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})
}

func TestCachedClient_PredictPassesThrough(t *testing.T) {
	redisClient, redisMock := redismock.NewClientMock()
	upstream := &stubUpstream{}
	client := NewCachedClient(upstream, redisClient, "opts", time.Minute, nil)

	result, err := client.Predict(context.Background(), form.Normalized{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.PredictedPrice)
	assert.Equal(t, 1, upstream.predict)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
