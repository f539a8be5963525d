package pricing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/lalithlochan/solebox/internal/apperr"
	"github.com/lalithlochan/solebox/internal/circuitbreaker"
	"github.com/lalithlochan/solebox/internal/metrics"
)

const (
	// DefaultFetchTimeout bounds a single retailer page fetch.
	DefaultFetchTimeout = 10 * time.Second

	// DefaultUserAgent is sent because most retailers serve bot-detection
	// pages to unknown clients.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	maxBodyBytes = 5 << 20
)

// FetcherConfig tunes page downloads. Zero values take defaults.
type FetcherConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// Fetcher downloads retailer product pages. Each retailer gets its own
// circuit breaker so a retailer that keeps failing is skipped without a
// network call until it recovers.
type Fetcher struct {
	client   *http.Client
	config   FetcherConfig
	breakers *circuitbreaker.Registry
	logger   *zap.Logger
}

// NewFetcher creates a fetcher. A nil registry gets a private one.
func NewFetcher(cfg FetcherConfig, breakers *circuitbreaker.Registry, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFetchTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if breakers == nil {
		breakers = circuitbreaker.NewRegistry(nil, logger)
	}

	return &Fetcher{
		client:   &http.Client{Timeout: cfg.Timeout},
		config:   cfg,
		breakers: breakers,
		logger:   logger,
	}
}

// Fetch downloads and parses productURL. Every failure is returned as an
// *apperr.TransientFetchError.
func (f *Fetcher) Fetch(ctx context.Context, rule *Rule, productURL string) (*goquery.Document, error) {
	retailer := rule.Key()
	breaker := f.breakers.Get(retailer)

	start := time.Now()
	var doc *goquery.Document

	err := breaker.Execute(func() error {
		d, err := f.get(ctx, retailer, productURL)
		doc = d
		return err
	}, func(err error) bool {
		// The caller hanging up says nothing about the retailer.
		return ctx.Err() == nil
	})

	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		f.logger.Warn("retailer circuit open, skipping fetch", zap.String("retailer", retailer))
		return nil, &apperr.TransientFetchError{Host: retailer, Err: err}
	}

	metrics.RecordPriceFetch(retailer, time.Since(start))

	if err != nil {
		f.logger.Warn("retailer fetch failed",
			zap.String("retailer", retailer),
			zap.String("url", productURL),
			zap.Error(err),
		)
		return nil, err
	}

	return doc, nil
}

func (f *Fetcher) get(ctx context.Context, host, productURL string) (*goquery.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, productURL, nil)
	if err != nil {
		return nil, &apperr.TransientFetchError{Host: host, Err: err}
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &apperr.TransientFetchError{Host: host, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &apperr.TransientFetchError{Host: host, Status: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &apperr.TransientFetchError{Host: host, Err: err}
	}

	return doc, nil
}
