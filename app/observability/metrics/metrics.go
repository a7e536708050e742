package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the planner's metric instruments.
type AppMetrics struct {
	PlansStartedTotal         metric.Int64Counter
	PlansResumedTotal         metric.Int64Counter
	StageDurationSeconds      metric.Float64Histogram
	StageFailuresTotal        metric.Int64Counter
	VerificationOutcomesTotal metric.Int64Counter
	GeocoderLookupsTotal      metric.Int64Counter
	ActiveSessions            metric.Int64UpDownCounter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments exactly once.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("go-itinerary-planner")
		var err error
		m := &AppMetrics{}

		m.PlansStartedTotal, err = meter.Int64Counter(
			"plans_started_total",
			metric.WithDescription("Total number of planning sessions started"),
			metric.WithUnit("{plan}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create plans_started_total: %v", err)
		}

		m.PlansResumedTotal, err = meter.Int64Counter(
			"plans_resumed_total",
			metric.WithDescription("Total number of session resumes"),
			metric.WithUnit("{plan}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create plans_resumed_total: %v", err)
		}

		m.StageDurationSeconds, err = meter.Float64Histogram(
			"stage_duration_seconds",
			metric.WithDescription("Duration of pipeline stages in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create stage_duration_seconds: %v", err)
		}

		m.StageFailuresTotal, err = meter.Int64Counter(
			"stage_failures_total",
			metric.WithDescription("Total number of failed pipeline stages"),
			metric.WithUnit("{failure}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create stage_failures_total: %v", err)
		}

		m.VerificationOutcomesTotal, err = meter.Int64Counter(
			"verification_outcomes_total",
			metric.WithDescription("Keyword verification outcomes by result"),
			metric.WithUnit("{keyword}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create verification_outcomes_total: %v", err)
		}

		m.GeocoderLookupsTotal, err = meter.Int64Counter(
			"geocoder_lookups_total",
			metric.WithDescription("Total number of geocoder lookups issued"),
			metric.WithUnit("{lookup}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create geocoder_lookups_total: %v", err)
		}

		m.ActiveSessions, err = meter.Int64UpDownCounter(
			"active_sessions",
			metric.WithDescription("Planning sessions currently awaiting feedback or in flight"),
			metric.WithUnit("{session}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create active_sessions: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the global metrics instance. InitAppMetrics must run first.
func Get() *AppMetrics {
	return appMetrics
}
