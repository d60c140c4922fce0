package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/pkg/cache"
	"github.com/jmcruz/skins-arb/pkg/ratelimit"
	"github.com/jmcruz/skins-arb/pkg/types"
)

func newTestClient(t *testing.T, cfg *Config) *Client {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.New(10000, 10000)
	}
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = 5 * time.Millisecond
	}
	cfg.Logger = zap.NewNop()
	return New(cfg)
}

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	c := newTestClient(t, nil)
	body, err := c.Fetch(context.Background(), &Request{Source: "src", URL: server.URL})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(body))

	m := c.TakeRunMetrics("src")
	assert.Equal(t, 1, m.RequestsMade)
	assert.Equal(t, 1, m.RequestsSuccessful)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`ok`))
	}))
	defer server.Close()

	c := newTestClient(t, nil)
	body, err := c.Fetch(context.Background(), &Request{Source: "src", URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int64(3), calls.Load())
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`denied`))
	}))
	defer server.Close()

	c := newTestClient(t, nil)
	_, err := c.Fetch(context.Background(), &Request{Source: "src", URL: server.URL})
	require.Error(t, err)

	var apiErr *types.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Contains(t, apiErr.Body, "denied")
	assert.Equal(t, int64(1), calls.Load())
}

func TestFetchHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`ok`))
	}))
	defer server.Close()

	c := newTestClient(t, nil)

	start := time.Now()
	body, err := c.Fetch(context.Background(), &Request{Source: "src", URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.GreaterOrEqual(t, time.Since(start), time.Second)

	m := c.TakeRunMetrics("src")
	assert.Equal(t, 1, m.RateLimitHits)
}

func TestFetchUsesCache(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`cached body`))
	}))
	defer server.Close()

	responseCache, err := cache.NewTieredCache(&cache.TieredConfig{SweepInterval: time.Hour})
	require.NoError(t, err)
	defer responseCache.Close()

	c := newTestClient(t, &Config{Cache: responseCache})

	req := &Request{Source: "src", URL: server.URL, UseCache: true, CacheTTL: time.Minute}
	first, err := c.Fetch(context.Background(), req)
	require.NoError(t, err)
	second, err := c.Fetch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), calls.Load())
}

func TestFetchJSONParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer server.Close()

	c := newTestClient(t, nil)
	var out map[string]interface{}
	err := c.FetchJSON(context.Background(), &Request{Source: "src", URL: server.URL}, &out)
	require.Error(t, err)

	var perr *types.ParseError
	assert.ErrorAs(t, err, &perr)
}

// recordingPool counts proxy outcomes.
type recordingPool struct {
	gets      atomic.Int64
	successes atomic.Int64
	failures  atomic.Int64
}

func (p *recordingPool) Get() string {
	p.gets.Add(1)
	return "" // direct connection; binding is exercised elsewhere
}

func (p *recordingPool) Report(success bool, _ time.Duration) {
	if success {
		p.successes.Add(1)
	} else {
		p.failures.Add(1)
	}
}

func TestFetchDrawsProxyPerAttempt(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`ok`))
	}))
	defer server.Close()

	pool := &recordingPool{}
	c := newTestClient(t, &Config{Proxies: pool})

	_, err := c.Fetch(context.Background(), &Request{Source: "src", URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, int64(2), pool.gets.Load())
}
