// Package trends fetches trending topics per category and country, enriched
// with up to two related news snippets each. Results are cached per
// (category, country); on upstream failure the provider serves the stale
// cache first and a static per-category list last. It never fails upward.
package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sethvargo/go-retry"

	"github.com/pulseworks/vita-backend/internal/config"
)

// Trend is one trending topic with optional related news snippets.
type Trend struct {
	Query string   `json:"query"`
	News  []string `json:"news,omitempty"`
}

const maxNewsPerTrend = 2

// cached is the cache entry: data plus when it was written. Reads decide
// freshness themselves, so an expired entry is still available as the stale
// fallback.
type cached struct {
	Trends    []Trend
	UpdatedAt time.Time
}

// Provider fetches trending topics over HTTP with a read-through cache.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	cache      *lru.Cache[string, cached]
	ttl        time.Duration
	log        *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewProvider creates a trends provider from config.
func NewProvider(cfg config.TrendsConfig, logger *slog.Logger) (*Provider, error) {
	cache, err := lru.New[string, cached](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("trends: create cache: %w", err)
	}

	return &Provider{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache,
		ttl:        cfg.CacheTTL,
		log:        logger.With("adapter", "trends"),
		now:        time.Now,
	}, nil
}

// staticTrends is the last-resort fallback per category.
var staticTrends = map[string][]Trend{
	"lifestyle": {
		{Query: "morning routines"},
		{Query: "minimalist living"},
		{Query: "weekend city trips"},
	},
	"fashion": {
		{Query: "capsule wardrobe"},
		{Query: "vintage streetwear"},
		{Query: "sustainable fashion"},
	},
	"food": {
		{Query: "neighborhood cafes"},
		{Query: "home baking"},
		{Query: "seasonal recipes"},
	},
}

var defaultTrends = []Trend{
	{Query: "local events"},
	{Query: "new music releases"},
	{Query: "photography spots"},
}

// Top returns trending topics for a category and country.
// Resolution order: fresh cache → live fetch → stale cache → static list.
func (p *Provider) Top(ctx context.Context, category, countryCode string) []Trend {
	key := category + "|" + countryCode

	if entry, ok := p.cache.Get(key); ok && p.now().Sub(entry.UpdatedAt) <= p.ttl {
		return entry.Trends
	}

	trends, err := p.fetch(ctx, category, countryCode)
	if err == nil {
		p.cache.Add(key, cached{Trends: trends, UpdatedAt: p.now()})
		return trends
	}

	p.log.WarnContext(ctx, "trends fetch failed",
		slog.String("category", category),
		slog.String("country", countryCode),
		slog.String("error", err.Error()),
	)

	// Stale beats static.
	if entry, ok := p.cache.Get(key); ok {
		return entry.Trends
	}

	if static, ok := staticTrends[category]; ok {
		return static
	}
	return defaultTrends
}

type apiTrend struct {
	Query    string `json:"query"`
	Articles []struct {
		Title string `json:"title"`
	} `json:"articles"`
}

type apiResponse struct {
	Trends []apiTrend `json:"trends"`
}

func (p *Provider) fetch(ctx context.Context, category, countryCode string) ([]Trend, error) {
	reqURL := fmt.Sprintf("%s/daily?category=%s&geo=%s",
		p.baseURL, url.QueryEscape(category), url.QueryEscape(countryCode))

	var body []byte
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("trends: status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("trends: unexpected status %d", resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}

	var payload apiResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("trends: decode json: %w", err)
	}

	trends := make([]Trend, 0, len(payload.Trends))
	for _, t := range payload.Trends {
		trend := Trend{Query: t.Query}
		for _, a := range t.Articles {
			if len(trend.News) == maxNewsPerTrend {
				break
			}
			if a.Title != "" {
				trend.News = append(trend.News, a.Title)
			}
		}
		trends = append(trends, trend)
	}

	if len(trends) == 0 {
		return nil, fmt.Errorf("trends: empty result")
	}

	return trends, nil
}
