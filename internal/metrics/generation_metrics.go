package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("generation-metrics")

// GenerationMetrics provides metrics collection for prompt-to-code
// generations.
type GenerationMetrics struct {
	startedCounter     metric.Int64Counter
	completedCounter   metric.Int64Counter
	failedCounter      metric.Int64Counter
	cacheHitCounter    metric.Int64Counter
	retryCounter       metric.Int64Counter
	durationHistogram  metric.Float64Histogram
	activeGauge        metric.Int64UpDownCounter
}

// NewGenerationMetrics creates a new generation metrics collector.
func NewGenerationMetrics() (*GenerationMetrics, error) {
	startedCounter, err := meter.Int64Counter(
		"irc.generations.started",
		metric.WithDescription("Total number of generations started"),
		metric.WithUnit("{generation}"),
	)
	if err != nil {
		return nil, err
	}

	completedCounter, err := meter.Int64Counter(
		"irc.generations.completed",
		metric.WithDescription("Total number of generations completed successfully"),
		metric.WithUnit("{generation}"),
	)
	if err != nil {
		return nil, err
	}

	failedCounter, err := meter.Int64Counter(
		"irc.generations.failed",
		metric.WithDescription("Total number of generations that failed"),
		metric.WithUnit("{generation}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHitCounter, err := meter.Int64Counter(
		"irc.generations.cache_hits",
		metric.WithDescription("Total number of requests served from the artifact cache"),
		metric.WithUnit("{generation}"),
	)
	if err != nil {
		return nil, err
	}

	retryCounter, err := meter.Int64Counter(
		"irc.generations.retries",
		metric.WithDescription("Total number of generation retry attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	durationHistogram, err := meter.Float64Histogram(
		"irc.generation.duration",
		metric.WithDescription("Duration of generation execution in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	activeGauge, err := meter.Int64UpDownCounter(
		"irc.generations.active",
		metric.WithDescription("Number of currently active generations"),
		metric.WithUnit("{generation}"),
	)
	if err != nil {
		return nil, err
	}

	return &GenerationMetrics{
		startedCounter:    startedCounter,
		completedCounter:  completedCounter,
		failedCounter:     failedCounter,
		cacheHitCounter:   cacheHitCounter,
		retryCounter:      retryCounter,
		durationHistogram: durationHistogram,
		activeGauge:       activeGauge,
	}, nil
}

// RecordStarted records a new generation starting.
func (gm *GenerationMetrics) RecordStarted(ctx context.Context, element, filename string) {
	gm.startedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("element", element),
			attribute.String("filename", filename),
		),
	)
	gm.activeGauge.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("element", element),
		),
	)
}

// RecordCompleted records a successful generation.
func (gm *GenerationMetrics) RecordCompleted(ctx context.Context, element, filename string, attempts int, duration time.Duration) {
	gm.completedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("element", element),
			attribute.String("filename", filename),
			attribute.Int("attempts", attempts),
		),
	)
	gm.durationHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("element", element),
			attribute.String("status", "completed"),
		),
	)
	gm.activeGauge.Add(ctx, -1,
		metric.WithAttributes(
			attribute.String("element", element),
		),
	)
}

// RecordFailed records a failed generation.
func (gm *GenerationMetrics) RecordFailed(ctx context.Context, element, filename, errorType string, duration time.Duration) {
	gm.failedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("element", element),
			attribute.String("filename", filename),
			attribute.String("error.type", errorType),
		),
	)
	gm.durationHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("element", element),
			attribute.String("status", "failed"),
		),
	)
	gm.activeGauge.Add(ctx, -1,
		metric.WithAttributes(
			attribute.String("element", element),
		),
	)
}

// RecordCacheHit records a request short-circuited by an existing
// artifact.
func (gm *GenerationMetrics) RecordCacheHit(ctx context.Context, element, filename string) {
	gm.cacheHitCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("element", element),
			attribute.String("filename", filename),
		),
	)
}

// RecordRetry records one retry attempt.
func (gm *GenerationMetrics) RecordRetry(ctx context.Context, element string, attempt int) {
	gm.retryCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("element", element),
			attribute.Int("attempt", attempt),
		),
	)
}
