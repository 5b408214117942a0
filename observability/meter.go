package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMeter builds an OTLP meter provider and installs it globally.
// The caller shuts it down on exit.
func InitMeter(ctx context.Context, cfg Config, svc Service) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(svc)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.interval()))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Auth operations.
const (
	OpRegister = "register"
	OpLogin    = "login"
	OpRefresh  = "refresh"
	OpLogout   = "logout"
)

// Outcomes recorded on auth counters.
const (
	OutcomeSuccess      = "success"
	OutcomeRejected     = "rejected"
	OutcomeUnauthorized = "unauthorized"
	OutcomeConflict     = "conflict"
	OutcomeError        = "error"
)

// AuthMetrics counts auth operations as auth.<op> with an outcome attribute
// and records their latency.
type AuthMetrics struct {
	counters map[string]metric.Int64Counter
	duration metric.Float64Histogram
}

// NewAuthMetrics creates the auth instruments on meter.
func NewAuthMetrics(meter metric.Meter) (*AuthMetrics, error) {
	m := &AuthMetrics{counters: make(map[string]metric.Int64Counter, 4)}
	for _, op := range []string{OpRegister, OpLogin, OpRefresh, OpLogout} {
		c, err := meter.Int64Counter("auth."+op,
			metric.WithDescription("Auth "+op+" attempts by outcome"),
		)
		if err != nil {
			return nil, fmt.Errorf("creating auth.%s counter: %w", op, err)
		}
		m.counters[op] = c
	}

	d, err := meter.Float64Histogram("auth.duration",
		metric.WithDescription("Duration of auth operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating auth.duration histogram: %w", err)
	}
	m.duration = d
	return m, nil
}

// Record counts one op with outcome. A nil receiver is a no-op.
func (m *AuthMetrics) Record(ctx context.Context, op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if c, ok := m.counters[op]; ok {
		c.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrOutcome, outcome)))
	}
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String(AttrOperation, op),
		attribute.String(AttrOutcome, outcome),
	))
}
