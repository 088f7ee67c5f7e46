package config

import (
	"github.com/Lawliet-Chan/offchain-storage/pkg/metrics"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// Gateway collects operation metrics (never nil, noop if disabled)
	Gateway metrics.GatewayMetrics

	// HTTP collects adapter request metrics (never nil, noop if disabled)
	HTTP metrics.HTTPMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations (zero overhead)
//
// Must run before CreateContentStore so content backends are instrumented.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{
			Gateway: metrics.NewNoopGatewayMetrics(),
			HTTP:    metrics.NewNoopHTTPMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Server.Metrics.Port,
	})

	return &MetricsResult{
		Server:  server,
		Gateway: metrics.NewGatewayMetrics(),
		HTTP:    metrics.NewHTTPMetrics(),
	}
}
