package observability

import (
	"fmt"
	"time"
)

// Config configures telemetry export.
type Config struct {
	// Enabled turns on OTLP export for traces and metrics.
	Enabled bool `mapstructure:"enabled"`

	// Endpoint is the OTLP HTTP endpoint host:port (default: "localhost:4318").
	Endpoint string `mapstructure:"endpoint"`

	// Insecure disables TLS to the collector.
	Insecure bool `mapstructure:"insecure"`

	// SampleRate is the trace sampling ratio between 0 and 1 (default: 1).
	SampleRate float64 `mapstructure:"sample_rate"`

	// MetricInterval is the metric export period (default: "15s").
	MetricInterval string `mapstructure:"metric_interval"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.MetricInterval == "" {
		c.MetricInterval = "15s"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("telemetry: sample_rate must be between 0 and 1 (got %v)", c.SampleRate)
	}
	if _, err := time.ParseDuration(c.MetricInterval); err != nil {
		return fmt.Errorf("telemetry: invalid metric_interval %q: %w", c.MetricInterval, err)
	}
	return nil
}

func (c *Config) interval() time.Duration {
	d, _ := time.ParseDuration(c.MetricInterval)
	return d
}
