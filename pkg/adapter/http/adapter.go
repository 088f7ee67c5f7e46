// Package http exposes the gateway over a small REST API.
//
// Routes (identifiers are hex-encoded in the path):
//
//	GET    /v1/records/{id}            read the payload
//	PUT    /v1/records/{id}            write the payload
//	DELETE /v1/records/{id}            delete the record and payload
//	POST   /v1/records/{id}/provision  create the record (?access=avoid|read|write)
//	PATCH  /v1/records/{id}/access     change the access level (author only)
//	GET    /v1/records/{id}/meta       record as JSON
//	GET    /healthz                    backend healthcheck
//
// The caller identity is taken from the X-Caller-Identity header, which must
// be set by a trusted upstream proxy.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Lawliet-Chan/offchain-storage/internal/logger"
	"github.com/Lawliet-Chan/offchain-storage/internal/ratelimiter"
	"github.com/Lawliet-Chan/offchain-storage/pkg/gateway"
	"github.com/Lawliet-Chan/offchain-storage/pkg/metrics"
)

// IdentityHeader carries the authenticated caller identity.
const IdentityHeader = "X-Caller-Identity"

// RequestIDHeader is echoed on every response.
const RequestIDHeader = "X-Request-Id"

// HTTPConfig configures the HTTP adapter.
type HTTPConfig struct {
	// Enabled controls whether the HTTP adapter is active.
	Enabled bool `mapstructure:"enabled"`

	// Port is the TCP port to listen on. 0 defaults to 8080.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// ReadTimeout bounds reading a complete request including the body.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds writing the response.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`

	// IdleTimeout closes keep-alive connections idle for this long.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"min=0"`

	// ShutdownTimeout is the maximum time to wait for in-flight requests.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`

	// MaxBodySize limits PUT bodies in bytes. 0 defaults to 64MiB.
	MaxBodySize int64 `mapstructure:"max_body_size" validate:"min=0"`

	// RateLimit limits requests per caller identity
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig configures the per-caller token bucket.
// RequestsPerSecond = 0 disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond uint `mapstructure:"requests_per_second"`
	Burst             uint `mapstructure:"burst"`
}

func (c *HTTPConfig) applyDefaults() {
	if c.Port <= 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.MaxBodySize == 0 {
		c.MaxBodySize = 64 << 20
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = c.RateLimit.RequestsPerSecond
	}
}

func (c *HTTPConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		return fmt.Errorf("invalid timeouts: must be >= 0")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("invalid MaxBodySize %d: must be >= 0", c.MaxBodySize)
	}
	return nil
}

// HTTPAdapter implements adapter.Adapter over net/http.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. http.Server.Shutdown stops accepting and waits for in-flight requests
//  3. After ShutdownTimeout the remaining connections are closed
//
// Thread safety:
// All methods are safe for concurrent use. Shutdown runs at most once.
type HTTPAdapter struct {
	config  HTTPConfig
	gateway *gateway.Gateway
	metrics metrics.HTTPMetrics
	limiter *ratelimiter.KeyedLimiter

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener

	shutdownOnce sync.Once
	shutdown     chan struct{}
	port         atomic.Int32
}

// New creates an HTTPAdapter. Zero config values are replaced with defaults.
//
// Parameters:
//   - config: Listener, timeout and rate limit settings
//   - httpMetrics: Optional metrics collector (nil for no metrics)
//
// Panics if config validation fails.
func New(config HTTPConfig, httpMetrics metrics.HTTPMetrics) *HTTPAdapter {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid HTTP config: %v", err))
	}

	if httpMetrics == nil {
		httpMetrics = metrics.NewNoopHTTPMetrics()
	}

	a := &HTTPAdapter{
		config:   config,
		metrics:  httpMetrics,
		limiter:  ratelimiter.NewKeyed(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst, 0),
		shutdown: make(chan struct{}),
	}
	a.port.Store(int32(config.Port))
	return a
}

// SetGateway injects the shared gateway. Called by the server before Serve.
func (a *HTTPAdapter) SetGateway(gw *gateway.Gateway) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gateway = gw
}

// Handler returns the adapter's routes. Exposed for tests and embedding.
func (a *HTTPAdapter) Handler() http.Handler {
	return a.routes()
}

// Serve listens on the configured port and blocks until ctx is cancelled or
// Stop is called.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the listener fails or the gateway was never set
func (a *HTTPAdapter) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", a.config.Port))
	if err != nil {
		return fmt.Errorf("failed to create HTTP listener on port %d: %w", a.config.Port, err)
	}
	return a.serveListener(ctx, listener)
}

func (a *HTTPAdapter) serveListener(ctx context.Context, listener net.Listener) error {
	a.mu.Lock()
	if a.gateway == nil {
		a.mu.Unlock()
		_ = listener.Close()
		return errors.New("HTTP adapter: gateway not set")
	}
	a.listener = listener
	a.server = &http.Server{
		Handler:      a.routes(),
		ReadTimeout:  a.config.ReadTimeout,
		WriteTimeout: a.config.WriteTimeout,
		IdleTimeout:  a.config.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	srv := a.server
	a.mu.Unlock()

	if tcp, ok := listener.Addr().(*net.TCPAddr); ok {
		a.port.Store(int32(tcp.Port))
	}

	logger.Info("HTTP server listening on %s", listener.Addr())
	logger.Debug("HTTP config: read_timeout=%v write_timeout=%v idle_timeout=%v rate_limit=%d/s burst=%d",
		a.config.ReadTimeout, a.config.WriteTimeout, a.config.IdleTimeout,
		a.config.RateLimit.RequestsPerSecond, a.config.RateLimit.Burst)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	if a.limiter.Enabled() {
		go a.limiter.Run(sweepCtx, time.Minute)
	}

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("HTTP shutdown signal received: %v", ctx.Err())
			a.initiateShutdown()
		case <-a.shutdown:
		}
	}()

	err := srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		<-a.shutdown
		return nil
	}
	return err
}

// initiateShutdown gracefully stops the http.Server once.
func (a *HTTPAdapter) initiateShutdown() {
	a.shutdownOnce.Do(func() {
		logger.Debug("HTTP shutdown initiated")

		a.mu.Lock()
		srv := a.server
		a.mu.Unlock()

		if srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("HTTP graceful shutdown incomplete, closing connections: %v", err)
				_ = srv.Close()
			}
		}
		close(a.shutdown)
	})
}

// Stop initiates graceful shutdown and waits for it within ctx.
func (a *HTTPAdapter) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.initiateShutdown()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("HTTP graceful shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Port returns the listening port (the bound port once serving).
func (a *HTTPAdapter) Port() int {
	return int(a.port.Load())
}

// Protocol returns "HTTP".
func (a *HTTPAdapter) Protocol() string {
	return "HTTP"
}
