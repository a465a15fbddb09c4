package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads the limits for general writes.
func LoadRateLimitConfig() RateLimitConfig {
	return loadRateLimit("RATE_LIMIT", 60)
}

// LoadBookingRateLimitConfig reads the tighter limits for booking creation.
// Unset values fall back to the general ones.
func LoadBookingRateLimitConfig() RateLimitConfig {
	base := LoadRateLimitConfig()
	c := loadRateLimit("BOOKING_RATE_LIMIT", 10)
	c.Enabled = base.Enabled && envBool("BOOKING_RATE_LIMIT_ENABLED", true)
	c.KeyStrategy = envStr("BOOKING_RATE_LIMIT_KEY_STRATEGY", "user")
	c.Prefix = base.Prefix
	c.Debug = base.Debug
	return c
}

func loadRateLimit(prefix string, capacity int) RateLimitConfig {
	c := RateLimitConfig{
		Enabled:        envBool(prefix+"_ENABLED", true),
		Capacity:       envInt(prefix+"_CAPACITY", capacity),
		RefillTokens:   envInt(prefix+"_REFILL_TOKENS", 1),
		RefillInterval: envDur(prefix+"_REFILL_INTERVAL", time.Second),
		TTL:            envDur(prefix+"_TTL", 10*time.Minute),
		KeyStrategy:    envStr(prefix+"_KEY_STRATEGY", "ip_user_route"),
		Prefix:         envStr(prefix+"_PREFIX", "rl"),
		Debug:          envBool(prefix+"_DEBUG", false),
	}
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return dur
	}
	return d
}
