// Package httpclient provides the shared connection-pooled fetcher every
// adapter calls through: rate limiting, proxy binding, response caching,
// retries with exponential backoff, and per-source request metrics.
package httpclient

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/pkg/cache"
	"github.com/jmcruz/skins-arb/pkg/ratelimit"
	"github.com/jmcruz/skins-arb/pkg/types"
)

type contextKey int

const proxyContextKey contextKey = iota

// ProxyPool is the capability the client needs from the proxy manager.
type ProxyPool interface {
	Get() string
	Report(success bool, elapsed time.Duration)
}

// Config holds client configuration.
type Config struct {
	Limiter      *ratelimit.Limiter
	Proxies      ProxyPool // nil disables proxying
	Cache        cache.Cache
	MaxAttempts  int
	BackoffBase  time.Duration
	TotalTimeout time.Duration
	Logger       *zap.Logger
}

// Client is the shared fetcher. One instance per process; adapters identify
// themselves by source tag on every call.
type Client struct {
	httpClient  *http.Client
	limiter     *ratelimit.Limiter
	proxies     ProxyPool
	cache       cache.Cache
	maxAttempts int
	backoffBase time.Duration
	logger      *zap.Logger

	mu            sync.Mutex
	counters      map[string]*types.RunMetrics
	responseTimes []float64 // seconds, rolling 100
}

// Request describes one upstream call.
type Request struct {
	Source   string
	Method   string
	URL      string
	Query    url.Values
	Headers  map[string]string
	Body     []byte
	UseCache bool
	CacheTTL time.Duration
}

// New creates the client with a single pooled transport shared by all
// sources. The per-request proxy is read from the request context so one
// transport keeps its connection pool across proxy rotations.
func New(cfg *Config) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.TotalTimeout <= 0 {
		cfg.TotalTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			v := req.Context().Value(proxyContextKey)
			s, ok := v.(string)
			if !ok || s == "" {
				return nil, nil
			}
			return url.Parse(s)
		},
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   30,
		MaxConnsPerHost:       30,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 20 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.TotalTimeout,
		},
		limiter:     cfg.Limiter,
		proxies:     cfg.Proxies,
		cache:       cfg.Cache,
		maxAttempts: cfg.MaxAttempts,
		backoffBase: cfg.BackoffBase,
		logger:      cfg.Logger,
		counters:    make(map[string]*types.RunMetrics),
	}
}

// Fetch performs the request with the full per-call sequence: rate limit,
// proxy binding, classification, and retries with backoff. The returned
// bytes are the response body.
func (c *Client) Fetch(ctx context.Context, req *Request) ([]byte, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	fullURL := req.URL
	if len(req.Query) > 0 {
		sep := "?"
		if bytes.ContainsRune([]byte(req.URL), '?') {
			sep = "&"
		}
		fullURL = req.URL + sep + req.Query.Encode()
	}

	cacheKey := ""
	if req.UseCache && c.cache != nil {
		cacheKey = c.cacheKey(req.Source, fullURL)
		if v, ok := c.cache.Get(cacheKey); ok {
			if body, ok := v.([]byte); ok {
				return body, nil
			}
			if s, ok := v.(string); ok {
				return []byte(s), nil
			}
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.backoffBase * time.Duration(1<<uint(attempt-1))
			if rle, ok := lastErr.(*types.RateLimitError); ok && rle.RetryAfter > 0 {
				delay = time.Duration(rle.RetryAfter) * time.Second
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, err := c.attempt(ctx, req, fullURL)
		if err == nil {
			if cacheKey != "" {
				ttl := req.CacheTTL
				c.cache.Set(cacheKey, body, ttl)
			}
			return body, nil
		}

		lastErr = err
		if !types.IsRetryable(err) {
			break
		}
		c.logger.Debug("fetch-retrying",
			zap.String("source", req.Source),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return nil, lastErr
}

// attempt is one send/receive including proxy draw and outcome reporting.
func (c *Client) attempt(ctx context.Context, req *Request, fullURL string) ([]byte, error) {
	err := c.limiter.Acquire(ctx, req.Source)
	if err != nil {
		return nil, err
	}

	proxy := ""
	if c.proxies != nil {
		proxy = c.proxies.Get()
		if proxy != "" {
			ctx = context.WithValue(ctx, proxyContextKey, proxy)
		}
	}

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	c.count(req.Source, func(m *types.RunMetrics) { m.RequestsMade++ })
	RequestsTotal.WithLabelValues(req.Source).Inc()

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	elapsed := time.Since(start)

	if err != nil {
		c.reportOutcome(req.Source, proxy, false, elapsed)
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.count(req.Source, func(m *types.RunMetrics) {
			m.RequestsFailed++
			m.RateLimitHits++
		})
		RateLimitHitsTotal.WithLabelValues(req.Source).Inc()
		c.reportOutcome(req.Source, proxy, false, elapsed)

		retryAfter := 0
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			retryAfter, _ = strconv.Atoi(ra)
		}
		return nil, &types.RateLimitError{Source: req.Source, RetryAfter: retryAfter}

	case resp.StatusCode >= 400:
		c.count(req.Source, func(m *types.RunMetrics) { m.RequestsFailed++ })
		c.reportOutcome(req.Source, proxy, false, elapsed)

		truncated, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &types.APIError{
			Source: req.Source,
			Status: resp.StatusCode,
			URL:    fullURL,
			Body:   string(truncated),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.count(req.Source, func(m *types.RunMetrics) { m.RequestsFailed++ })
		c.reportOutcome(req.Source, proxy, false, elapsed)
		return nil, err
	}

	c.count(req.Source, func(m *types.RunMetrics) { m.RequestsSuccessful++ })
	c.reportOutcome(req.Source, proxy, true, elapsed)
	ResponseSeconds.WithLabelValues(req.Source).Observe(elapsed.Seconds())
	c.recordResponseTime(elapsed)

	return body, nil
}

// FetchJSON fetches and decodes into out.
func (c *Client) FetchJSON(ctx context.Context, req *Request, out interface{}) error {
	body, err := c.Fetch(ctx, req)
	if err != nil {
		return err
	}
	err = json.Unmarshal(body, out)
	if err != nil {
		return &types.ParseError{Source: req.Source, Reason: err.Error()}
	}
	return nil
}

// reportOutcome feeds the proxy pool and counts rotations: a failed
// proxy-mediated request means the next attempt draws a different proxy.
func (c *Client) reportOutcome(source, proxy string, success bool, elapsed time.Duration) {
	if c.proxies == nil || proxy == "" {
		return
	}
	c.proxies.Report(success, elapsed)
	if !success {
		c.count(source, func(m *types.RunMetrics) { m.ProxyRotations++ })
		ProxyRotationsTotal.WithLabelValues(source).Inc()
	}
}

func (c *Client) count(source string, fn func(*types.RunMetrics)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.counters[source]
	if !ok {
		m = &types.RunMetrics{}
		c.counters[source] = m
	}
	fn(m)
}

func (c *Client) recordResponseTime(elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responseTimes = append(c.responseTimes, elapsed.Seconds())
	if len(c.responseTimes) > 100 {
		c.responseTimes = c.responseTimes[len(c.responseTimes)-100:]
	}
}

// TakeRunMetrics returns and resets the accumulated counters for a source.
// Adapter runs for one source never overlap, so the window covers exactly
// one run.
func (c *Client) TakeRunMetrics(source string) types.RunMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.counters[source]
	if !ok {
		return types.RunMetrics{}
	}
	out := *m
	delete(c.counters, source)
	return out
}

// AvgResponseTime returns the mean of the rolling response-time window.
func (c *Client) AvgResponseTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.responseTimes) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range c.responseTimes {
		sum += t
	}
	return sum / float64(len(c.responseTimes))
}

func (c *Client) cacheKey(source, fullURL string) string {
	sum := sha1.Sum([]byte(fullURL))
	return source + ":" + hex.EncodeToString(sum[:])
}
