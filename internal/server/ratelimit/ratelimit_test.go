package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(t *testing.T, cfg *Config) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLimiter(cfg)
	l.now = clock.Now
	t.Cleanup(l.Stop)
	return l, clock
}

func TestLimiter_Allow(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})

	for i := range 10 {
		allowed, info := l.Allow("127.0.0.1", "/approval/api/pending", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	allowed, info := l.Allow("127.0.0.1", "/approval/api/pending", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Greater(t, info.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, info.RetryAfter, 6*time.Second)
}

func TestLimiter_Refill(t *testing.T) {
	l, clock := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 10, DefaultWindow: 10 * time.Second})

	for range 10 {
		l.Allow("c", "/x", "GET")
	}
	allowed, _ := l.Allow("c", "/x", "GET")
	require.False(t, allowed)

	clock.Advance(time.Second)
	allowed, _ = l.Allow("c", "/x", "GET")
	assert.True(t, allowed, "one token refills per second")
	allowed, _ = l.Allow("c", "/x", "GET")
	assert.False(t, allowed)
}

func TestLimiter_ResetTime(t *testing.T) {
	l, clock := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 10, DefaultWindow: 10 * time.Second})

	for range 5 {
		l.Allow("c", "/x", "GET")
	}
	_, info := l.Allow("c", "/x", "GET")
	assert.Equal(t, 4, info.Remaining)
	assert.Equal(t, clock.Now().Add(6*time.Second), info.ResetTime)
}

func TestLimiter_Lists(t *testing.T) {
	cfg := &Config{
		Enabled:      true,
		DefaultLimit: 1,
		Whitelist:    map[string]bool{"10.0.0.1": true},
		Blacklist:    map[string]bool{"10.0.0.2": true},
	}
	l, _ := newTestLimiter(t, cfg)

	for range 5 {
		allowed, info := l.Allow("10.0.0.1", "/x", "GET")
		assert.True(t, allowed)
		assert.Zero(t, info.Limit)
	}
	allowed, _ := l.Allow("10.0.0.2", "/x", "GET")
	assert.False(t, allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: false, DefaultLimit: 1})
	for range 3 {
		allowed, _ := l.Allow("c", "/x", "POST")
		assert.True(t, allowed)
	}
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	cfg := &Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(),
	}
	l, _ := newTestLimiter(t, cfg)

	for i := range 3 {
		allowed, info := l.Allow("c", "/approval/api/manual-submit", "POST")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 20, info.Limit)
	}
	allowed, _ := l.Allow("c", "/approval/api/manual-submit", "POST")
	assert.False(t, allowed, "burst of 3 exhausted")

	allowed, _ = l.Allow("c", "/approval/api/pending", "GET")
	assert.True(t, allowed, "reads use the default bucket")

	allowed, info := l.Allow("c", "/health", "GET")
	assert.True(t, allowed)
	assert.Zero(t, info.Limit)
}

func TestLimiter_PrefixSharesBucket(t *testing.T) {
	cfg := &Config{
		Enabled:      true,
		DefaultLimit: 100,
		EndpointConfigs: []EndpointConfig{
			{Path: "/approval/api/approve/", Method: "POST", Limit: 2, Window: time.Minute, Burst: 2},
		},
	}
	l, _ := newTestLimiter(t, cfg)

	allowed, _ := l.Allow("c", "/approval/api/approve/a", "POST")
	assert.True(t, allowed)
	allowed, _ = l.Allow("c", "/approval/api/approve/b", "POST")
	assert.True(t, allowed)
	allowed, _ = l.Allow("c", "/approval/api/approve/c", "POST")
	assert.False(t, allowed, "different IDs share the endpoint bucket")

	allowed, _ = l.Allow("other", "/approval/api/approve/a", "POST")
	assert.True(t, allowed, "clients are independent")
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 50, DefaultWindow: time.Hour})

	var ok atomic.Int32
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allowed, _ := l.Allow("c", "/x", "GET"); allowed {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(50), ok.Load())
}

func TestLimiter_Cleanup(t *testing.T) {
	l, clock := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute, IdleTTL: time.Minute})

	for i := range 3 {
		l.Allow(fmt.Sprintf("client-%d", i), "/x", "GET")
	}
	require.Equal(t, 3, l.size())

	clock.Advance(30 * time.Second)
	l.Allow("client-0", "/x", "GET")
	clock.Advance(45 * time.Second)
	l.cleanupBuckets()

	assert.Equal(t, 1, l.size(), "only the recently used bucket survives")
}

func TestNewLimiter_NilConfig(t *testing.T) {
	l := NewLimiter(nil)
	defer l.Stop()
	l.Stop()

	allowed, info := l.Allow("c", "/x", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 1000, info.Limit)
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	tests := []struct {
		name   string
		path   string
		method string
		want   string
	}{
		{"exact", "/approval/api/manual-submit", "POST", "/approval/api/manual-submit"},
		{"prefix with id", "/approval/api/send-now/abc", "POST", "/approval/api/send-now/"},
		{"delete all is not delete by id", "/approval/api/delete-all", "DELETE", "/approval/api/delete-all"},
		{"regenerate email is not regenerate", "/approval/api/regenerate-email/abc", "POST", "/approval/api/regenerate-email/"},
		{"method mismatch", "/approval/api/manual-submit", "GET", ""},
		{"no match", "/approval/api/pending", "GET", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Path)
		})
	}

	health := MatchEndpoint("/health", "GET", configs)
	require.NotNil(t, health)
	assert.Zero(t, health.Limit)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "42")
	t.Setenv("RATE_LIMIT_WHITELIST", " 10.0.0.1 , ,10.0.0.3")

	cfg := LoadConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 42, cfg.DefaultLimit)
	assert.Equal(t, map[string]bool{"10.0.0.1": true, "10.0.0.3": true}, cfg.Whitelist)
	assert.NotEmpty(t, cfg.EndpointConfigs)

	t.Setenv("RATE_LIMIT_ENABLED", "false")
	assert.False(t, LoadConfig().Enabled)
}

func TestMatchEndpoint_LongestPrefixWins(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/approval/", Method: "POST", Limit: 1},
		{Path: "/approval/api/", Method: "POST", Limit: 2},
		{Path: "/approval/api/approve/", Method: "POST", Limit: 3},
	}

	got := MatchEndpoint("/approval/api/approve/abc", "POST", configs)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.Limit)

	got = MatchEndpoint("/approval/api/reject/abc", "POST", configs)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Limit)

	assert.Nil(t, MatchEndpoint("/approval/api/approve/abc", "GET", configs))
}
