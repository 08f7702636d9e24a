package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// LoadConfig reads the RATE_LIMIT_* environment variables. Unparseable
// values fall back to the defaults.
func LoadConfig() *Config {
	if !envOr("RATE_LIMIT_ENABLED", true, strconv.ParseBool) {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    envOr("RATE_LIMIT_DEFAULT_LIMIT", 1000, strconv.Atoi),
		DefaultWindow:   envOr("RATE_LIMIT_DEFAULT_WINDOW", time.Minute, time.ParseDuration),
		CleanupInterval: envOr("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute, time.ParseDuration),
		Whitelist:       ipSet(os.Getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       ipSet(os.Getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Tier 1: resume generation and LaTeX compile (strictest limits)
		{Path: "/approval/api/manual-submit", Method: "POST", Limit: 20, Window: time.Hour, Burst: 3},
		{Path: "/approval/api/manual-submit/stream", Method: "POST", Limit: 20, Window: time.Hour, Burst: 3},
		{Path: "/approval/api/regenerate/", Method: "POST", Limit: 20, Window: time.Hour, Burst: 3},

		// Tier 2: model calls, sends and queue writes (moderate limits)
		{Path: "/approval/api/regenerate-email/", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/approval/api/approve/", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/approval/api/send-now/", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/approval/api/reject/", Method: "POST", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/approval/api/request-changes/", Method: "POST", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/approval/api/delete/", Method: "DELETE", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/approval/api/delete-all", Method: "DELETE", Limit: 10, Window: time.Minute, Burst: 2},

		// Tier 3: Read operations (more lenient) - handled by default limit
		// Tier 4: Health check (unlimited) - handled by special case in matcher
	}
}

// key is the bucket key for a request path: prefix configs share one bucket
// across IDs.
func (c *EndpointConfig) key(path string) string {
	if c.Path != "" && strings.HasSuffix(c.Path, "/") {
		return c.Path
	}
	return path
}

func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

// ipSet splits a comma-separated address list, dropping blanks.
func ipSet(list string) map[string]bool {
	set := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			set[ip] = true
		}
	}
	return set
}
