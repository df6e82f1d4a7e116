// Package osm talks to the public OpenStreetMap services: Nominatim for
// geocoding and free-text place search, Overpass for nearby amenities.
package osm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/go-map-assistant/app/observability/metrics"
	"github.com/FACorreiaa/go-map-assistant/internal/api/cache"
)

// ErrUpstream wraps every transport or non-2xx failure from a provider.
var ErrUpstream = errors.New("osm: upstream request failed")

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	DefaultOverpassURL  = "https://overpass-api.de/api/interpreter"

	providerNominatim = "nominatim"
	providerOverpass  = "overpass"

	maxResponseBytes = 16 << 20
)

type Config struct {
	NominatimURL string
	OverpassURL  string
	UserAgent    string
	Timeout      time.Duration
	CacheTTL     time.Duration
}

// Client implements the geocoding, POI-search and place-search collaborators.
type Client struct {
	cfg        Config
	httpClient *http.Client
	cache      cache.Store
	group      singleflight.Group
	logger     *slog.Logger
}

// NewClient wires a traced HTTP client. store may be nil to disable caching.
func NewClient(cfg Config, store cache.Store, logger *slog.Logger) *Client {
	if cfg.NominatimURL == "" {
		cfg.NominatimURL = DefaultNominatimURL
	}
	if cfg.OverpassURL == "" {
		cfg.OverpassURL = DefaultOverpassURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(transport),
			Timeout:   cfg.Timeout,
		},
		cache:  store,
		logger: logger,
	}
}

type requestFunc func(ctx context.Context) (*http.Request, error)

// fetch returns the provider body for key, from cache when possible.
// Concurrent identical requests share one upstream call. The shared call is
// detached from any single caller's cancellation and bounded by the HTTP
// client timeout; each caller still stops waiting when its own ctx is done.
func (c *Client) fetch(ctx context.Context, provider, key string, newRequest requestFunc) ([]byte, error) {
	// Serve from cache first
	if body, ok := c.cached(ctx, key); ok {
		return body, nil
	}

	shareCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		body, err := c.do(shareCtx, provider, newRequest)
		if err != nil {
			return nil, err
		}
		c.store(shareCtx, key, body)
		return body, nil
	})

	select {
	case <-ctx.Done():
		// Caller went away; the shared request keeps running for the others
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.DebugContext(ctx, "Shared in-flight provider request", slog.String("provider", provider))
		}
		return res.Val.([]byte), nil
	}
}

func (c *Client) do(ctx context.Context, provider string, newRequest requestFunc) ([]byte, error) {
	ctx, span := otel.Tracer("OSMClient").Start(ctx, provider+".request", trace.WithAttributes(
		attribute.String("provider", provider),
	))
	defer span.End()

	m := metrics.Get()
	providerAttr := metric.WithAttributes(attribute.String("provider", provider))
	start := time.Now()
	defer func() {
		m.UpstreamDurationSecond.Record(ctx, time.Since(start).Seconds(), providerAttr)
	}()

	fail := func(err error) ([]byte, error) {
		m.UpstreamErrorsTotal.Add(ctx, 1, providerAttr)
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider request failed")
		c.logger.ErrorContext(ctx, "Provider request failed", slog.String("provider", provider), slog.Any("error", err))
		return nil, err
	}

	// Build the provider request and stamp the headers both services expect
	req, err := newRequest(ctx)
	if err != nil {
		return fail(fmt.Errorf("%w: build %s request: %v", ErrUpstream, provider, err))
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	req.Header.Set("Accept-Language", "en")

	// Execute the request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("%w: %s: %v", ErrUpstream, provider, err))
	}
	defer resp.Body.Close()

	// Any non-2xx status is an upstream failure; no retry
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(fmt.Errorf("%w: %s returned status %d", ErrUpstream, provider, resp.StatusCode))
	}

	// Read the body, capped at maxResponseBytes
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fail(fmt.Errorf("%w: read %s response: %v", ErrUpstream, provider, err))
	}

	span.SetAttributes(attribute.Int("response.bytes", len(body)))
	span.SetStatus(codes.Ok, "provider request succeeded")
	return body, nil
}

func (c *Client) cached(ctx context.Context, key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	m := metrics.Get()
	body, found, err := c.cache.Get(ctx, key)
	if err != nil {
		// A broken cache is treated as a miss
		c.logger.WarnContext(ctx, "Cache read failed, bypassing", slog.String("key", key), slog.Any("error", err))
		return nil, false
	}
	if !found {
		m.CacheMissesTotal.Add(ctx, 1)
		return nil, false
	}
	m.CacheHitsTotal.Add(ctx, 1)
	return body, true
}

func (c *Client) store(ctx context.Context, key string, body []byte) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, body, c.cfg.CacheTTL); err != nil {
		c.logger.WarnContext(ctx, "Cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}
