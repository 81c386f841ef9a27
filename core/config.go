// Package core provides the ambient stack shared by every package in this
// module: the structured Logger contract, the sentinel-error/FrameworkError
// vocabulary, and a three-layer configuration loader (defaults -> environment
// -> functional options) used for process-wide settings that are not
// request-scoped (logging, telemetry sink, HTTP demo server).
//
// Request-scoped retrieval configuration (lane timeouts, top-K, budgets,
// fusion weights) lives in package retrieval, whose own Config follows the
// same defaults -> environment -> options layering and takes the ambient
// logger as a plain core.Logger field.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds process-wide ambient configuration: logging, telemetry
// export, and the demo HTTP server. It follows the same three-layer
// priority as the orchestrator's lane configuration: defaults, then
// environment variables, then functional options.
type Config struct {
	ServiceName string `json:"service_name" env:"RETRIEVAL_SERVICE_NAME" default:"retrieval-orchestrator"`
	Port        int    `json:"port" env:"RETRIEVAL_HTTP_PORT" default:"8080"`

	Logging   LoggingConfig     `json:"logging"`
	Telemetry TelemetryConfig   `json:"telemetry"`
	Dev       DevelopmentConfig `json:"development"`

	logger Logger `json:"-"`
}

// LoggingConfig controls the structured logger. Supports JSON (for log
// aggregation) and text (for local development) formats.
type LoggingConfig struct {
	Level  string `json:"level" env:"RETRIEVAL_LOG_LEVEL" default:"info"`
	Format string `json:"format" env:"RETRIEVAL_LOG_FORMAT" default:"json"`
	Output string `json:"output" env:"RETRIEVAL_LOG_OUTPUT" default:"stdout"`
}

// TelemetryConfig controls the OpenTelemetry exporter used by package
// telemetry. Enabled=false falls back to the stdout exporter so local runs
// never fail for lack of a collector.
type TelemetryConfig struct {
	Enabled        bool    `json:"enabled" env:"RETRIEVAL_TELEMETRY_ENABLED" default:"false"`
	OTLPEndpoint   string  `json:"otlp_endpoint" env:"RETRIEVAL_OTLP_ENDPOINT"`
	MetricsEnabled bool    `json:"metrics_enabled" env:"RETRIEVAL_METRICS_ENABLED" default:"true"`
	TracingEnabled bool    `json:"tracing_enabled" env:"RETRIEVAL_TRACING_ENABLED" default:"true"`
	SamplingRate   float64 `json:"sampling_rate" env:"RETRIEVAL_TRACE_SAMPLING_RATE" default:"1.0"`
}

// DevelopmentConfig loosens defaults for local iteration.
type DevelopmentConfig struct {
	Enabled      bool `json:"enabled" env:"RETRIEVAL_DEV_MODE" default:"false"`
	DebugLogging bool `json:"debug_logging" env:"RETRIEVAL_DEBUG" default:"false"`
}

// Option is a functional option applied after environment loading.
type Option func(*Config) error

// DefaultConfig returns sane defaults for a local run.
func DefaultConfig() *Config {
	return &Config{
		ServiceName: "retrieval-orchestrator",
		Port:        8080,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Telemetry: TelemetryConfig{
			Enabled:        false,
			MetricsEnabled: true,
			TracingEnabled: true,
			SamplingRate:   1.0,
		},
	}
}

// LoadFromEnv overlays environment variables onto the current config.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("RETRIEVAL_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("RETRIEVAL_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("RETRIEVAL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("RETRIEVAL_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("RETRIEVAL_LOG_OUTPUT"); v != "" {
		c.Logging.Output = v
	}
	if v := os.Getenv("RETRIEVAL_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
	if v := os.Getenv("RETRIEVAL_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.OTLPEndpoint = v
	}
	if v := os.Getenv("RETRIEVAL_METRICS_ENABLED"); v != "" {
		c.Telemetry.MetricsEnabled = parseBool(v)
	}
	if v := os.Getenv("RETRIEVAL_TRACING_ENABLED"); v != "" {
		c.Telemetry.TracingEnabled = parseBool(v)
	}
	if v := os.Getenv("RETRIEVAL_TRACE_SAMPLING_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Telemetry.SamplingRate = f
		}
	}
	if v := os.Getenv("RETRIEVAL_DEV_MODE"); v != "" {
		c.Dev.Enabled = parseBool(v)
	}
	if v := os.Getenv("RETRIEVAL_DEBUG"); v != "" {
		c.Dev.DebugLogging = parseBool(v)
	}
	return nil
}

// Validate checks invariants that must hold before the config is used.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("invalid port: %d", c.Port),
			Err:     ErrInvalidConfiguration,
		}
	}
	if c.ServiceName == "" {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "service name is required",
			Err:     ErrMissingConfiguration,
		}
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "otlp endpoint is required when telemetry is enabled",
			Err:     ErrMissingConfiguration,
		}
	}
	return nil
}

// WithServiceName overrides the service name used in logs and traces.
func WithServiceName(name string) Option {
	return func(c *Config) error {
		c.ServiceName = name
		return nil
	}
}

// WithPort overrides the demo HTTP server port.
func WithPort(port int) Option {
	return func(c *Config) error {
		if port < 1 || port > 65535 {
			return &FrameworkError{Op: "WithPort", Kind: "config", Message: fmt.Sprintf("invalid port: %d", port), Err: ErrInvalidConfiguration}
		}
		c.Port = port
		return nil
	}
}

// WithTelemetry enables OTLP export to the given endpoint.
func WithTelemetry(enabled bool, endpoint string) Option {
	return func(c *Config) error {
		c.Telemetry.Enabled = enabled
		c.Telemetry.OTLPEndpoint = endpoint
		return nil
	}
}

// WithLogLevel overrides the logging level.
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = level
		return nil
	}
}

// WithLogger installs a pre-built logger, bypassing ProductionLogger
// construction. Used by tests to inject a recording logger.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.logger = logger
		return nil
	}
}

// NewConfig builds a Config from defaults, environment, then options, and
// attaches a ProductionLogger unless one was supplied via WithLogger.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if cfg.logger == nil {
		cfg.logger = NewProductionLogger(cfg.Logging, cfg.Dev, cfg.ServiceName)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Logger returns the configured logger.
func (c *Config) Logger() Logger { return c.logger }

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// ============================================================================
// ProductionLogger: structured JSON/text logging, no telemetry coupling.
//
// Per spec.md §9's redesign note ("cyclic telemetry objects... replaced by
// one-way emission to a telemetry sink"), this logger does not reach back
// into package telemetry. Request telemetry is recorded independently by
// telemetry.Recorder; logs and metrics are two separate one-way outputs
// from the same request, not a shared mutable object.
// ============================================================================

// ProductionLogger writes structured log lines to an io.Writer.
type ProductionLogger struct {
	level       string
	debug       bool
	serviceName string
	component   string
	format      string
	output      io.Writer
}

// NewProductionLogger creates a logger from LoggingConfig.
func NewProductionLogger(logging LoggingConfig, dev DevelopmentConfig, serviceName string) Logger {
	var output io.Writer = os.Stdout
	if logging.Output == "stderr" {
		output = os.Stderr
	}
	return &ProductionLogger{
		level:       strings.ToLower(logging.Level),
		debug:       dev.DebugLogging || logging.Level == "debug",
		serviceName: serviceName,
		format:      logging.Format,
		output:      output,
	}
}

func (p *ProductionLogger) WithComponent(component string) Logger {
	clone := *p
	clone.component = component
	return &clone
}

func (p *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	p.logEvent("INFO", msg, fields, nil)
}
func (p *ProductionLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent("INFO", msg, fields, ctx)
}
func (p *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	p.logEvent("ERROR", msg, fields, nil)
}
func (p *ProductionLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent("ERROR", msg, fields, ctx)
}
func (p *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	p.logEvent("WARN", msg, fields, nil)
}
func (p *ProductionLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent("WARN", msg, fields, ctx)
}
func (p *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	if p.debug {
		p.logEvent("DEBUG", msg, fields, nil)
	}
}
func (p *ProductionLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	if p.debug {
		p.logEvent("DEBUG", msg, fields, ctx)
	}
}

func (p *ProductionLogger) logEvent(level, msg string, fields map[string]interface{}, ctx context.Context) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	traceID := ""
	if ctx != nil {
		if v := ctx.Value(traceIDContextKey{}); v != nil {
			traceID, _ = v.(string)
		}
	}

	if p.format == "json" {
		entry := map[string]interface{}{
			"timestamp": timestamp,
			"level":     level,
			"service":   p.serviceName,
			"message":   msg,
		}
		if p.component != "" {
			entry["component"] = p.component
		}
		if traceID != "" {
			entry["trace_id"] = traceID
		}
		for k, v := range fields {
			entry[k] = v
		}
		if data, err := json.Marshal(entry); err == nil {
			fmt.Fprintln(p.output, string(data))
		}
		return
	}

	var fieldStr strings.Builder
	for k, v := range fields {
		fmt.Fprintf(&fieldStr, " %s=%v", k, v)
	}
	traceInfo := ""
	if traceID != "" {
		traceInfo = fmt.Sprintf("[trace=%s] ", traceID)
	}
	fmt.Fprintf(p.output, "%s [%s] [%s] %s%s%s\n", timestamp, level, p.serviceName, traceInfo, msg, fieldStr.String())
}

// traceIDContextKey is the context key ProductionLogger looks up to
// correlate log lines with the request trace ID without importing the
// telemetry/trace SDK into core.
type traceIDContextKey struct{}

// WithTraceID attaches a trace ID to ctx so subsequent *WithContext log
// calls include it automatically.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDContextKey{}, traceID)
}
