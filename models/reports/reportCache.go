package reports

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/contacts_backend/config"
	"github.com/mmdatafocus/contacts_backend/utils"
	"github.com/sirupsen/logrus"
)

const (
	globalStatsKey   = "Stats:global"
	accountStatsKey  = "Stats:account:"
	statsLockTTL     = 15 * time.Second
	statsLockRetries = 50
)

func reportSlowMs() int64 {
	// Env: REPORT_SLOW_MS (default 500ms)
	ms := int64(500)
	if v := strings.TrimSpace(os.Getenv("REPORT_SLOW_MS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			ms = n
		}
	}
	return ms
}

func logSlowReport(ctx context.Context, name string, started time.Time, extra logrus.Fields) {
	d := time.Since(started)
	if d.Milliseconds() < reportSlowMs() {
		return
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	fields := logrus.Fields{
		"field":          "slow_report",
		"name":           name,
		"ms":             d.Milliseconds(),
		"correlation_id": cid,
	}
	for k, v := range extra {
		fields[k] = v
	}
	config.GetLogger().WithFields(fields).Warn("slow statistics computation")
}

// cache keys carry the week so a cached result never crosses a week boundary
func globalCacheKey(now time.Time) string {
	return globalStatsKey + ":" + WeekKey(now)
}

func accountCacheKey(userId int, now time.Time) string {
	return accountStatsKey + fmt.Sprint(userId) + ":" + WeekKey(now)
}

// cached serves key from redis, otherwise computes under a redis lock so concurrent misses
// run compute once. Without redis or with caching disabled it just computes.
func cached[T any](ctx context.Context, key string, compute func(context.Context) (*T, error)) (*T, error) {
	if !config.StatsCacheEnabled() || config.GetRedisDB() == nil {
		return compute(ctx)
	}

	var hit T
	if ok, err := config.GetRedisObject(key, &hit); err == nil && ok {
		return &hit, nil
	}

	locker := config.GetRedisLock()
	if locker == nil {
		return compute(ctx)
	}
	lock, err := locker.Obtain(ctx, key+":lock", statsLockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), statsLockRetries),
	})
	if err != nil {
		if !errors.Is(err, redislock.ErrNotObtained) {
			config.LogError(config.GetLogger(), "reports", "cached", "obtain lock", key, err)
		}
		return compute(ctx)
	}
	defer func() { _ = lock.Release(context.Background()) }()

	// another holder may have filled the cache while we waited
	if ok, err := config.GetRedisObject(key, &hit); err == nil && ok {
		return &hit, nil
	}

	result, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := config.SetRedisObject(key, result, config.StatsCacheTTL()); err != nil {
		config.LogError(config.GetLogger(), "reports", "cached", "store", key, err)
	}
	return result, nil
}

// CachedGlobalStatistics wraps ComputeGlobalStatistics with the redis statistics cache.
func (s *StatisticsService) CachedGlobalStatistics(ctx context.Context, now time.Time) (*GlobalStatistics, error) {
	started := time.Now()
	defer logSlowReport(ctx, "GlobalStatistics", started, nil)
	return cached(ctx, globalCacheKey(now), func(ctx context.Context) (*GlobalStatistics, error) {
		return s.ComputeGlobalStatistics(ctx, now)
	})
}

func (s *StatisticsService) CachedAccountStatistics(ctx context.Context, userId int, now time.Time) (*AccountStatistics, error) {
	started := time.Now()
	defer logSlowReport(ctx, "AccountStatistics", started, logrus.Fields{"user_id": userId})
	return cached(ctx, accountCacheKey(userId, now), func(ctx context.Context) (*AccountStatistics, error) {
		return s.ComputeAccountStatistics(ctx, userId, now)
	})
}

// InvalidateStatistics drops cached results touched by a change to userId's persons or reports.
func InvalidateStatistics(userId int, now time.Time) error {
	return config.RemoveRedisKey(globalCacheKey(now), accountCacheKey(userId, now))
}
