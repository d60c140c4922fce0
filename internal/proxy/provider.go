package proxy

import (
	"bytes"
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/pkg/types"
)

// Provider fetches a bulk proxy list for one region. via, when non-empty,
// is a proxy endpoint the fetch itself should be routed through.
type Provider interface {
	Fetch(ctx context.Context, region string, count int, via string) ([]string, error)
}

// UpstreamConfig configures the bulk proxy provider client.
type UpstreamConfig struct {
	URL          string
	AuthToken    string // environment only
	OrderToken   string // environment only
	WhitelistIPs []string
	Logger       *zap.Logger
}

// UpstreamProvider talks to the Oculus-style bulk proxy API: a POST with an
// order token returning `host:port:user:pass` lines.
type UpstreamProvider struct {
	cfg    UpstreamConfig
	logger *zap.Logger
}

// NewUpstreamProvider creates the provider. Missing tokens are a fatal
// configuration error when proxies are enabled.
func NewUpstreamProvider(cfg UpstreamConfig) (*UpstreamProvider, error) {
	if cfg.AuthToken == "" || cfg.OrderToken == "" {
		return nil, &types.ConfigError{
			Key:    "proxy provider",
			Reason: "BOT_PROXY_AUTH_TOKEN and BOT_PROXY_ORDER_TOKEN must be set when proxies are enabled",
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &UpstreamProvider{cfg: cfg, logger: cfg.Logger}, nil
}

type upstreamRequest struct {
	OrderToken      string   `json:"orderToken"`
	Country         string   `json:"country"`
	NumberOfProxies int      `json:"numberOfProxies"`
	WhiteListIP     []string `json:"whiteListIP"`
	EnableSock5     bool     `json:"enableSock5"`
	PlanType        string   `json:"planType"`
}

// Fetch pulls up to count proxies for region.
func (p *UpstreamProvider) Fetch(ctx context.Context, region string, count int, via string) ([]string, error) {
	payload, err := json.Marshal(upstreamRequest{
		OrderToken:      p.cfg.OrderToken,
		Country:         strings.ToUpper(region),
		NumberOfProxies: count,
		WhiteListIP:     p.cfg.WhitelistIPs,
		EnableSock5:     false,
		PlanType:        "SHARED_DC",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal provider request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create provider request: %w", err)
	}
	req.Header.Set("authToken", p.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	if via != "" {
		proxyURL, perr := url.Parse(via)
		if perr == nil {
			client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &types.ProxyError{Kind: types.ProxyConnection, Region: region, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &types.ProxyError{
			Kind:   types.ProxyAuthentication,
			Region: region,
			Err:    fmt.Errorf("status %d", resp.StatusCode),
		}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &types.ProxyError{
			Kind:   types.ProxyConnection,
			Region: region,
			Err:    fmt.Errorf("status %d: %s", resp.StatusCode, string(body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.ProxyError{Kind: types.ProxyConnection, Region: region, Err: err}
	}

	return parseProviderResponse(body), nil
}

// parseProviderResponse accepts an object with a proxies array, a bare
// array, or a single string.
func parseProviderResponse(body []byte) []string {
	var wrapped struct {
		Proxies []string `json:"proxies"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped.Proxies) > 0 {
		return parseRawProxies(wrapped.Proxies)
	}

	var list []string
	if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 {
		return parseRawProxies(list)
	}

	var single string
	if err := json.Unmarshal(body, &single); err == nil && single != "" {
		return parseRawProxies([]string{single})
	}

	return nil
}

func parseRawProxies(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		parsed := parseProxyLine(r)
		if parsed != "" {
			out = append(out, parsed)
		}
	}
	return out
}

// parseProxyLine converts `host:port:user:pass` into a proxy URL. Lines
// already shaped like URLs or bare host:port pass through.
func parseProxyLine(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "://") {
		return raw
	}
	parts := strings.Split(raw, ":")
	switch len(parts) {
	case 4:
		return fmt.Sprintf("http://%s:%s@%s:%s", parts[2], parts[3], parts[0], parts[1])
	case 2:
		return "http://" + raw
	default:
		return ""
	}
}

// StaticProvider serves a fixed list loaded from a newline-delimited file
// (proxy.txt), the no-upstream alternative path. Region is ignored.
type StaticProvider struct {
	proxies []string
}

// NewStaticProvider loads proxies from path.
func NewStaticProvider(path string) (*StaticProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var proxies []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parsed := parseProxyLine(line)
		if parsed != "" {
			proxies = append(proxies, parsed)
		}
	}
	err = scanner.Err()
	if err != nil {
		return nil, err
	}

	return &StaticProvider{proxies: proxies}, nil
}

// Fetch returns the static list regardless of region.
func (s *StaticProvider) Fetch(_ context.Context, _ string, count int, _ string) ([]string, error) {
	if len(s.proxies) == 0 {
		return nil, &types.ProxyError{Kind: types.ProxyNoneAvailable}
	}
	if count > 0 && count < len(s.proxies) {
		return s.proxies[:count], nil
	}
	return s.proxies, nil
}
