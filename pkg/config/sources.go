package config

import "time"

// AuthStyle describes how a source authenticates requests.
type AuthStyle string

const (
	AuthNone   AuthStyle = "none"
	AuthBearer AuthStyle = "bearer"
	AuthAPIKey AuthStyle = "api_key"
)

// SourceConfig is the wire-protocol and scheduling record for one
// marketplace. File overrides in config/scrapers.json merge over these;
// API keys come from BOT_API_KEY_<SOURCE> only.
type SourceConfig struct {
	Enabled     bool              `json:"enabled"`
	Method      string            `json:"method"`
	URLTemplate string            `json:"url_template"`
	QueryParams map[string]string `json:"query_params"`
	Headers     map[string]string `json:"headers"`
	AuthStyle   AuthStyle         `json:"auth_style"`
	AuthHeader  string            `json:"auth_header"` // for api_key style
	RequiresKey bool              `json:"requires_key"`
	APIKey      string            `json:"api_key,omitempty"` // env only; file values are rejected

	RateLimit float64 `json:"rate_limit"` // requests per second
	Burst     int     `json:"burst"`

	IntervalSecs   int `json:"interval_seconds"` // rerun cadence in forever mode
	MaxConcurrent  int `json:"max_concurrent"`   // internal fan-out bound
	MaxPages       int `json:"max_pages"`
	ItemsPerPage   int `json:"items_per_page"`
	EmptyPageLimit int `json:"empty_page_limit"`
	CacheTTLSecs   int `json:"cache_ttl_seconds"`

	// Unit conversion knobs surfaced from hard-coded constants in the
	// per-site integrations.
	CoinRate  float64 `json:"coin_rate,omitempty"`  // coins -> USD
	BonusRate float64 `json:"bonus_rate,omitempty"` // displayed price inflation, percent

	DeepLinkBase string `json:"deep_link_base"`
}

// Interval returns the forever-mode rerun cadence.
func (s *SourceConfig) Interval() time.Duration {
	if s.IntervalSecs <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.IntervalSecs) * time.Second
}

// CacheTTL returns the response cache TTL for this source.
func (s *SourceConfig) CacheTTL() time.Duration {
	if s.CacheTTLSecs <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.CacheTTLSecs) * time.Second
}

// merge overlays non-zero fields of o onto s.
func (s *SourceConfig) merge(o *SourceConfig) {
	if o == nil {
		return
	}
	if o.Method != "" {
		s.Method = o.Method
	}
	if o.URLTemplate != "" {
		s.URLTemplate = o.URLTemplate
	}
	if len(o.QueryParams) > 0 {
		s.QueryParams = o.QueryParams
	}
	if len(o.Headers) > 0 {
		if s.Headers == nil {
			s.Headers = map[string]string{}
		}
		for k, v := range o.Headers {
			s.Headers[k] = v
		}
	}
	if o.AuthStyle != "" {
		s.AuthStyle = o.AuthStyle
	}
	if o.AuthHeader != "" {
		s.AuthHeader = o.AuthHeader
	}
	if o.RateLimit > 0 {
		s.RateLimit = o.RateLimit
	}
	if o.Burst > 0 {
		s.Burst = o.Burst
	}
	if o.IntervalSecs > 0 {
		s.IntervalSecs = o.IntervalSecs
	}
	if o.MaxConcurrent > 0 {
		s.MaxConcurrent = o.MaxConcurrent
	}
	if o.MaxPages > 0 {
		s.MaxPages = o.MaxPages
	}
	if o.ItemsPerPage > 0 {
		s.ItemsPerPage = o.ItemsPerPage
	}
	if o.EmptyPageLimit > 0 {
		s.EmptyPageLimit = o.EmptyPageLimit
	}
	if o.CacheTTLSecs > 0 {
		s.CacheTTLSecs = o.CacheTTLSecs
	}
	if o.CoinRate > 0 {
		s.CoinRate = o.CoinRate
	}
	if o.BonusRate > 0 {
		s.BonusRate = o.BonusRate
	}
	if o.DeepLinkBase != "" {
		s.DeepLinkBase = o.DeepLinkBase
	}
	// Enabled is a plain bool; an explicit file entry always wins.
	s.Enabled = o.Enabled
}

// defaultSources returns the built-in per-source records. Deep-link bases
// follow each marketplace's item search URL shape.
func defaultSources() map[string]*SourceConfig {
	single := func(url, deepLink string) *SourceConfig {
		return &SourceConfig{
			Enabled:      true,
			Method:       "GET",
			URLTemplate:  url,
			AuthStyle:    AuthNone,
			RateLimit:    2,
			Burst:        2,
			IntervalSecs: 300,
			MaxConcurrent: 1,
			DeepLinkBase: deepLink,
		}
	}

	sources := map[string]*SourceConfig{
		"skinport": single(
			"https://api.skinport.com/v1/items?app_id=730&currency=USD",
			"https://skinport.com/market/730?search=",
		),
		"waxpeer": single(
			"https://api.waxpeer.com/v1/prices?game=csgo&minified=0&single=0",
			"https://waxpeer.com/item/cs-go/",
		),
		"csdeals": single(
			"https://cs.deals/API/IPricing/GetLowestPrices/v1?appid=730",
			"https://cs.deals/market/",
		),
		"marketcsgo": single(
			"https://market.csgo.com/api/v2/prices/USD.json",
			"https://market.csgo.com/?search=",
		),
		"cstrade": single(
			"https://cdn.cs.trade:2096/api/prices_CSGO",
			"https://cs.trade/csgo-skins?search=",
		),
		"lisskins": single(
			"https://lis-skins.com/market_export_json/api_csgo_full.json",
			"https://lis-skins.com/market_730.html?search_item=",
		),
		"white": single(
			"https://api.white.market/export/v1/prices/730.json",
			"https://white.market/search?game[]=CS2&query=",
		),
		"bitskins": single(
			"https://api.bitskins.com/market/insell/730",
			"https://bitskins.com/market/730/search?market_hash_name=",
		),
		"shadowpay": {
			Enabled:      true,
			Method:       "GET",
			URLTemplate:  "https://api.shadowpay.com/api/v2/user/items/prices",
			AuthStyle:    AuthBearer,
			RequiresKey:  true,
			RateLimit:    1.5,
			Burst:        2,
			IntervalSecs: 300,
			MaxConcurrent: 1,
			DeepLinkBase: "https://shadowpay.com/csgo?search=",
		},
		"skindeck": {
			Enabled:      true,
			Method:       "GET",
			URLTemplate:  "https://api.skindeck.com/client/market",
			AuthStyle:    AuthBearer,
			RequiresKey:  true,
			RateLimit:    1,
			Burst:        2,
			IntervalSecs: 300,
			MaxPages:     10,
			ItemsPerPage: 100000,
			MaxConcurrent: 1,
			DeepLinkBase: "https://skindeck.com/listings?query=",
		},
		"empire": {
			Enabled:      true,
			Method:       "GET",
			URLTemplate:  "https://csgoempire.com/api/v2/trading/items",
			AuthStyle:    AuthBearer,
			RequiresKey:  true,
			RateLimit:    1,
			Burst:        2,
			IntervalSecs: 300,
			MaxPages:     100,
			ItemsPerPage: 2500,
			MaxConcurrent: 3,
			CoinRate:     0.6154,
			DeepLinkBase: "https://csgoempire.com/shop/",
		},
		"tradeit": {
			Enabled:        true,
			Method:         "GET",
			URLTemplate:    "https://tradeit.gg/api/v2/inventory/data",
			AuthStyle:      AuthNone,
			RateLimit:      1,
			Burst:          2,
			IntervalSecs:   300,
			ItemsPerPage:   1000,
			EmptyPageLimit: 3,
			MaxConcurrent:  3,
			DeepLinkBase:   "https://tradeit.gg/csgo/trade?search=",
		},
		"skinout": {
			Enabled:        true,
			Method:         "GET",
			URLTemplate:    "https://skinout.gg/api/market/items",
			AuthStyle:      AuthNone,
			RateLimit:      1,
			Burst:          2,
			IntervalSecs:   300,
			MaxPages:       100,
			EmptyPageLimit: 3,
			MaxConcurrent:  3,
			DeepLinkBase:   "https://skinout.gg/market/cs2?item=",
		},
		"manncostore": {
			Enabled:        true,
			Method:         "GET",
			URLTemplate:    "https://mannco.store/items/get?price=DESC&page=1&i=0&game=730&skip=%d",
			AuthStyle:      AuthNone,
			RateLimit:      1.5,
			Burst:          2,
			IntervalSecs:   300,
			ItemsPerPage:   50,
			EmptyPageLimit: 3,
			MaxConcurrent:  3,
			DeepLinkBase:   "https://mannco.store/item/730/",
		},
		"rapidskins": {
			Enabled:      true,
			IntervalSecs: 600,
			DeepLinkBase: "https://rapidskins.com/item/",
		},
		"steammarket": {
			Enabled:       true,
			Method:        "GET",
			URLTemplate:   "https://steamcommunity.com/market/itemordershistogram?country=PK&language=english&currency=1&item_nameid=%s&two_factor=0&norender=1",
			AuthStyle:     AuthNone,
			RateLimit:     10,
			Burst:         10,
			IntervalSecs:  900,
			MaxConcurrent: 100,
			CacheTTLSecs:  300,
			DeepLinkBase:  "https://steamcommunity.com/market/listings/730/",
		},
		"steamlisting": {
			Enabled:       true,
			Method:        "GET",
			URLTemplate:   "https://steamcommunity.com/market/search/render/?query=&start=%d&count=%d&search_descriptions=0&sort_column=name&sort_dir=asc&appid=730&norender=1",
			AuthStyle:     AuthNone,
			RateLimit:     5,
			Burst:         5,
			IntervalSecs:  900,
			MaxConcurrent: 5,
			ItemsPerPage:  10,
			MaxPages:      1000,
			CacheTTLSecs:  300,
			DeepLinkBase:  "https://steamcommunity.com/market/listings/730/",
		},
		"steamnameids": {
			Enabled:       true,
			Method:        "GET",
			URLTemplate:   "https://steamcommunity.com/market/listings/730/%s",
			AuthStyle:     AuthNone,
			RateLimit:     2,
			Burst:         2,
			IntervalSecs:  3600,
			MaxConcurrent: 5,
			DeepLinkBase:  "https://steamcommunity.com/market/listings/730/",
		},
	}

	return sources
}
