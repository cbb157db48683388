package bookmarks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	FetchTimeout = 5 * time.Second

	DefaultJSONBaseURL = "http://feeds.delicious.com/v2/json"
	DefaultRSSBaseURL  = "http://feeds.delicious.com/v2/rss"

	maxBodySize = 4 << 20
)

// Cache is the store the loader reads and writes. Implementations own
// expiry and eviction.
type Cache interface {
	Get(ctx context.Context, key string) ([]Bookmark, bool, error)
	Set(ctx context.Context, key string, value []Bookmark, ttl time.Duration) error
}

// LoaderConfig configures a Loader. Timeout bounds each upstream fetch and
// defaults to FetchTimeout.
type LoaderConfig struct {
	BaseURL    string
	Format     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Loader struct {
	baseURL    string
	decoder    Decoder
	httpClient *http.Client
	timeout    time.Duration
	cache      Cache
	logger     *slog.Logger
}

func NewLoader(config LoaderConfig, cache Cache) (*Loader, error) {
	if cache == nil {
		return nil, fmt.Errorf("loader: cache is required")
	}

	decoder, err := NewDecoder(config.Format)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}

	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL(decoder.Format())
	}
	if config.Timeout <= 0 {
		config.Timeout = FetchTimeout
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: config.Timeout}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Loader{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		decoder:    decoder,
		httpClient: config.HTTPClient,
		timeout:    config.Timeout,
		cache:      cache,
		logger:     config.Logger,
	}, nil
}

func DefaultBaseURL(format string) string {
	if format == FormatRSS {
		return DefaultRSSBaseURL
	}
	return DefaultJSONBaseURL
}

// Load returns the bookmarks for params, from the cache when a fresh entry
// exists and from the upstream feed otherwise. Errors are *LoadError.
func (l *Loader) Load(ctx context.Context, params Params) ([]Bookmark, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	key := params.CacheKey()
	cached, found, err := l.cache.Get(ctx, key)
	if err != nil {
		l.logger.Warn("Bookmark cache read failed, fetching instead", "key", key, "error", err)
	} else if found {
		l.logger.Debug("Bookmark cache hit", "account", params.Account, "key", key, "count", len(cached))
		return cached, nil
	}

	feedURL := l.FeedURL(params)
	l.logger.Debug("Bookmark cache miss, fetching feed", "account", params.Account, "url", feedURL)

	body, err := l.fetch(ctx, feedURL)
	if err != nil {
		l.logger.Error("Bookmark feed fetch failed", "url", feedURL, "error", err)
		return nil, NewLoadError(ErrUpstreamUnavailable, feedURL, err)
	}

	records, err := l.decoder.Decode(body)
	if err != nil {
		l.logger.Error("Bookmark feed response malformed", "url", feedURL, "format", l.decoder.Format(), "error", err)
		return nil, NewLoadError(ErrUpstreamMalformed, feedURL, err)
	}

	if err := l.cache.Set(ctx, key, records, params.TTL()); err != nil {
		l.logger.Warn("Bookmark cache write failed", "key", key, "error", err)
	}

	l.logger.Info("Bookmark feed loaded", "account", params.Account, "tags", params.Tags, "count", len(records))
	return records, nil
}

// FeedURL builds {base}/{account}[/{tags}]?count={count}. Tags are
// form-encoded so spaces become '+'.
func (l *Loader) FeedURL(params Params) string {
	var b strings.Builder
	b.WriteString(l.baseURL)
	b.WriteString("/")
	b.WriteString(url.PathEscape(params.Account))
	if params.Tags != "" {
		b.WriteString("/")
		b.WriteString(url.QueryEscape(params.Tags))
	}
	b.WriteString("?count=")
	fmt.Fprintf(&b, "%d", params.Count)
	return b.String()
}

func (l *Loader) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/rss+xml;q=0.9, */*;q=0.5")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("response exceeds %d bytes", maxBodySize)
	}

	return body, nil
}
