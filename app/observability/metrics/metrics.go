package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	RegistrationsTotal  metric.Int64Counter
	LoginsTotal         metric.Int64Counter
	StreamStartsTotal   metric.Int64Counter
	StreamEndsTotal     metric.Int64Counter
	KeyRotationsTotal   metric.Int64Counter
	IngestResolvesTotal metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// Get returns the process-wide metric instruments, creating them from the
// global MeterProvider on first use. Before the provider is configured in
// main this yields no-op instruments, which keeps tests quiet.
func Get() *AppMetrics {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("streamlive")
		m := &AppMetrics{}

		var err error
		mustCounter := func(name, desc string) metric.Int64Counter {
			c, cErr := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit("{event}"))
			if cErr != nil && err == nil {
				err = cErr
			}
			return c
		}

		m.RegistrationsTotal = mustCounter("registrations_total", "Total number of completed registrations")
		m.LoginsTotal = mustCounter("logins_total", "Total number of successful logins")
		m.StreamStartsTotal = mustCounter("stream_starts_total", "Total number of streams started")
		m.StreamEndsTotal = mustCounter("stream_ends_total", "Total number of streams ended")
		m.KeyRotationsTotal = mustCounter("stream_key_rotations_total", "Total number of stream key rotations")
		m.IngestResolvesTotal = mustCounter("ingest_key_resolves_total", "Total number of ingest key resolution attempts")

		if err != nil {
			log.Fatalf("Metrics: failed to create instruments: %v", err)
		}
		appMetrics = m
	})
	return appMetrics
}
