// Package server exposes the decision compiler over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapdecide/internal/state"
	"github.com/leapstack-labs/leapdecide/pkg/decide"
	"github.com/leapstack-labs/leapdecide/pkg/lint"
)

// Defaults fill request fields the caller leaves empty.
type Defaults struct {
	Dialect    string
	EntryPoint string
	WindowDays int
}

// Config holds configuration for the compile server.
type Config struct {
	Compiler     *decide.Compiler
	Canonical    *decide.Compiler // serves requests with canonicalize set; nil disables them
	Store        state.Store      // nil disables history
	RecordAll    bool
	Linter       *lint.Analyzer // nil runs every lint rule
	Defaults     Defaults
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *slog.Logger
	Registry     *prometheus.Registry
}

// Server is the HTTP compile service.
type Server struct {
	compiler     *decide.Compiler
	canonical    *decide.Compiler
	store        state.Store
	recordAll    bool
	linter       *lint.Analyzer
	defaults     Defaults
	addr         string
	readTimeout  time.Duration
	writeTimeout time.Duration
	logger       *slog.Logger
	registry     *prometheus.Registry
	metrics      *Metrics
	router       chi.Router
}

// New creates a server. A nil Compiler uses decide.NewCompiler().
func New(cfg Config) *Server {
	s := &Server{
		compiler:     cfg.Compiler,
		canonical:    cfg.Canonical,
		store:        cfg.Store,
		recordAll:    cfg.RecordAll,
		linter:       cfg.Linter,
		defaults:     cfg.Defaults,
		addr:         cfg.Addr,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		logger:       cfg.Logger,
		registry:     cfg.Registry,
	}
	if s.compiler == nil {
		s.compiler = decide.NewCompiler()
	}
	if s.linter == nil {
		s.linter = lint.NewAnalyzer(nil)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	if s.defaults.Dialect == "" {
		s.defaults.Dialect = "postgresql"
	}
	if s.defaults.EntryPoint == "" {
		s.defaults.EntryPoint = decide.EntryPointDecisionSpace
	}
	if s.defaults.WindowDays == 0 {
		s.defaults.WindowDays = decide.DefaultWindowDays
	}
	if s.readTimeout == 0 {
		s.readTimeout = 10 * time.Second
	}
	s.metrics = NewMetrics(s.registry)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.requestLogger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/compile", s.handleCompile)
		r.Post("/lint", s.handleLint)
		r.Get("/dialects", s.handleDialects)
		r.Get("/compilations", s.handleListCompilations)
		r.Get("/compilations/{id}", s.handleGetCompilation)
	})
	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestLogger logs each request through the server's slog logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// Serve listens on the configured address and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting compile server", "addr", ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.router,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: s.readTimeout,
		ReadTimeout:       s.readTimeout,
		WriteTimeout:      s.writeTimeout,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down compile server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
