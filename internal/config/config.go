package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Radarr  RadarrConfig
	Server  ServerConfig
	Observe ObserveConfig
}

type ServerConfig struct {
	Addr                   string `env:"SERVER_ADDR, default=0.0.0.0"`
	Port                   int    `env:"SERVER_PORT, default=8080"`
	ShutdownTimeoutSeconds int    `env:"SERVER_SHUTDOWN_TIMEOUT_SECS, default=25"`

	OutgoingHTTPMaxIdleConns    int `env:"SERVER_OUTGOING_MAX_IDLE_CONNS, default=100"`
	OutgoingHTTPMaxConnsPerHost int `env:"SERVER_OUTGOING_MAX_CONNS_PER_HOST, default=20"`

	// ProxyToken is the shared secret callers must present in the
	// X-Proxy-Token header. It is distinct from the Radarr API key: callers
	// never see the latter.
	ProxyToken string `env:"PROXY_TOKEN, required"`

	LogLevel string `env:"LOG_LEVEL, default=info"`
}

// RadarrConfig locates and authenticates the upstream Radarr instance. The
// API key is attached to upstream requests only: it must never appear in a
// response, a log line or a cached artifact.
type RadarrConfig struct {
	URL    string `env:"RADARR_URL, required"`
	APIKey string `env:"RADARR_API_KEY, required"`
}

type ObserveConfig struct {
	SDKLogLevel               string `env:"OBSERVE_OTEL_LOG_LEVEL, default=info"`
	Enabled                   bool   `env:"OBSERVE_ENABLED, default=false"`
	MetricsEnabled            bool   `env:"OBSERVE_METRICS_ENABLED, default=true"`
	ServiceName               string `env:"OBSERVE_SERVICE_NAME, default=reelgate"`
	TraceBatchTimeoutSeconds  int    `env:"OBSERVE_TRACE_BATCH_TIMEOUT_SECS, default=20"`
	MetricReadIntervalSeconds int    `env:"OBSERVE_METRIC_READ_INTERVAL_SECS, default=60"`
	HTTPTransportEnabled      bool   `env:"OBSERVE_HTTP_TRANSPORT_ENABLED, default=true"`
}

func Load(ctx context.Context) (Config, error) {
	return load(ctx, nil) // load from OS environment
}

func load(ctx context.Context, lookup envconfig.Lookuper) (Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookup, // nil defaults to OS environment
	})
	if err != nil {
		return cfg, err
	}

	err = cfg.Radarr.Validate()
	if err != nil {
		return cfg, fmt.Errorf("invalid radarr configuration: %w", err)
	}

	// trailing slashes make upstream path joins ambiguous
	cfg.Radarr.URL = strings.TrimRight(cfg.Radarr.URL, "/")

	return cfg, nil
}

// Validate checks the upstream configuration beyond simple presence.
func (c *RadarrConfig) Validate() error {
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("RADARR_URL must be an http(s) URL, got %q", c.URL)
	}
	return nil
}
