package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Lawliet-Chan/offchain-storage/internal/logger"
)

const (
	defaultMetricsPort = 9090
	healthTimeout      = 2 * time.Second
	stopTimeout        = 5 * time.Second
)

// HealthFunc reports whether the process can serve requests.
type HealthFunc func(ctx context.Context) error

// ServerConfig configures the operations listener.
type ServerConfig struct {
	// Port to listen on (default: 9090)
	Port int

	// Registry to expose (default: the global registry)
	Registry *prometheus.Registry
}

// Server is the operations listener, separate from the data plane:
//
//	GET /metrics  Prometheus exposition of the registry
//	GET /healthz  200 when the health check passes, 503 otherwise
//
// /healthz answers 503 until SetHealthCheck is called, so an orchestrator
// does not route traffic before the gateway exists.
type Server struct {
	port    atomic.Int32
	server  *http.Server
	health  atomic.Pointer[HealthFunc]
	stopped sync.Once
}

// NewServer builds the listener without binding it.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Port <= 0 {
		cfg.Port = defaultMetricsPort
	}
	reg := cfg.Registry
	if reg == nil {
		reg = GetRegistry()
	}

	s := &Server{}
	s.port.Store(int32(cfg.Port))

	mux := http.NewServeMux()
	if reg != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	} else {
		mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics collection is disabled", http.StatusServiceUnavailable)
		})
	}
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// SetHealthCheck installs the function /healthz evaluates.
func (s *Server) SetHealthCheck(fn HealthFunc) {
	s.health.Store(&fn)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	fn := s.health.Load()
	if fn == nil || *fn == nil {
		http.Error(w, "starting", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := (*fn)(ctx); err != nil {
		logger.Warn("Health check failed: %v", err)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// Start binds the configured port and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.Port()))
	if err != nil {
		return fmt.Errorf("metrics server: %w", err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		s.port.Store(int32(addr.Port))
	}
	logger.Info("Metrics server listening on port %d", s.Port())

	errCh := make(chan error, 1)
	go func() { errCh <- s.server.Serve(ln) }()

	select {
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		defer cancel()
		return s.Stop(stopCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}

// Stop shuts the listener down. Only the first call has an effect.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopped.Do(func() {
		if err = s.server.Shutdown(ctx); err != nil {
			err = fmt.Errorf("metrics server shutdown: %w", err)
		}
	})
	return err
}

// Port returns the bound port once serving, else the configured one.
func (s *Server) Port() int {
	return int(s.port.Load())
}

// Handler returns the mux, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
