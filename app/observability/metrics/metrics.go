package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	TurnsTotal             metric.Int64Counter
	TurnDurationSeconds    metric.Float64Histogram
	UpstreamDurationSecond metric.Float64Histogram
	UpstreamErrorsTotal    metric.Int64Counter
	CacheHitsTotal         metric.Int64Counter
	CacheMissesTotal       metric.Int64Counter
	ResultPOIs             metric.Int64Histogram
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments once, against the global
// MeterProvider. Call it after the provider is installed.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("MapAssistant")
		var err error
		m := &AppMetrics{}

		m.TurnsTotal, err = meter.Int64Counter(
			"chat_turns_total",
			metric.WithDescription("Total number of chat turns processed, by outcome"),
			metric.WithUnit("{turn}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create chat_turns_total: %v", err)
		}

		m.TurnDurationSeconds, err = meter.Float64Histogram(
			"chat_turn_duration_seconds",
			metric.WithDescription("Time spent resolving a turn before the model call"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create chat_turn_duration_seconds: %v", err)
		}

		m.UpstreamDurationSecond, err = meter.Float64Histogram(
			"upstream_request_duration_seconds",
			metric.WithDescription("Duration of geocoding and POI provider requests"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create upstream_request_duration_seconds: %v", err)
		}

		m.UpstreamErrorsTotal, err = meter.Int64Counter(
			"upstream_request_errors_total",
			metric.WithDescription("Total number of failed provider requests"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create upstream_request_errors_total: %v", err)
		}

		m.CacheHitsTotal, err = meter.Int64Counter(
			"provider_cache_hits_total",
			metric.WithDescription("Provider responses served from cache"),
			metric.WithUnit("{hit}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create provider_cache_hits_total: %v", err)
		}

		m.CacheMissesTotal, err = meter.Int64Counter(
			"provider_cache_misses_total",
			metric.WithDescription("Provider responses not found in cache"),
			metric.WithUnit("{miss}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create provider_cache_misses_total: %v", err)
		}

		m.ResultPOIs, err = meter.Int64Histogram(
			"chat_result_pois",
			metric.WithDescription("Number of POIs published per turn"),
			metric.WithUnit("{poi}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create chat_result_pois: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the instruments, creating them against whatever MeterProvider
// is installed if InitAppMetrics was never called (tests use the no-op one).
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
