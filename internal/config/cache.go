package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware that
// sits in front of the public event listings.  When Enabled is false or
// no Redis client is available, caching is a no-op.  Methods lists which
// HTTP methods are cacheable; KeyStrategy determines which parts of the
// request form the cache key; MaxBodyBytes caps how large a response may
// be before it is stored uncached.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads the cache settings from the environment.  The
// default TTL is short because event availability changes with every
// reservation; admin writes additionally invalidate the whole prefix.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 15*time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "tickets:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
