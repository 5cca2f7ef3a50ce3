package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// StatsDedupPersonWeek counts at most one report per person per week in completion statistics.
// Off by default: raw report counts are used, so a week can show more actual than expected reports.
//
// Set via env:
// - STATS_DEDUP_PERSON_WEEK=true
func StatsDedupPersonWeek() bool {
	return boolFromEnv("STATS_DEDUP_PERSON_WEEK")
}

// StatsWeekLimit is how many of the most recent week buckets are returned (default 12, 0 = all).
func StatsWeekLimit() int {
	n := intFromEnv("STATS_WEEK_LIMIT", 12)
	if n < 0 {
		return 12
	}
	return n
}

// StatsRecentLimit is how many recent reports are returned alongside statistics (default 10).
func StatsRecentLimit() int {
	n := intFromEnv("STATS_RECENT_LIMIT", 10)
	if n < 0 {
		return 10
	}
	return n
}

// StatsCacheEnabled turns on the redis cache for computed statistics.
//
// Set via env:
// - ENABLE_STATS_CACHE=true
// - STATS_CACHE_TTL_SECONDS=120
func StatsCacheEnabled() bool {
	return boolFromEnv("ENABLE_STATS_CACHE")
}

func StatsCacheTTL() time.Duration {
	ttl := 120
	if v := strings.TrimSpace(os.Getenv("STATS_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = n
		}
	}
	return time.Duration(ttl) * time.Second
}

// PhoneRegion is the default libphonenumber region for person phone numbers.
func PhoneRegion() string {
	if v := strings.TrimSpace(os.Getenv("PHONE_REGION")); v != "" {
		return strings.ToUpper(v)
	}
	return "MM"
}

// TokenLifespan is the JWT lifetime (TOKEN_HOUR_LIFESPAN, default 24h).
func TokenLifespan() time.Duration {
	hours := intFromEnv("TOKEN_HOUR_LIFESPAN", 24)
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}
