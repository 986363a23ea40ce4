package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	mdwlog "github.com/msto63/mExpr/foundation/core/log"
	"github.com/msto63/mExpr/foundation/expr"
	"github.com/msto63/mExpr/internal/history/store"
	"github.com/msto63/mExpr/internal/repl"
	"github.com/msto63/mExpr/pkg/core/cache"
	coregrpc "github.com/msto63/mExpr/pkg/core/grpc"
	"github.com/msto63/mExpr/pkg/core/health"
	"github.com/msto63/mExpr/pkg/core/logging"
	"github.com/msto63/mExpr/pkg/core/version"
)

// selfTestExpression is validated by the parser health check
const selfTestExpression = "a = -(1 + 2) * 3 / b"

// Server is the expression service. It answers websocket sessions over
// HTTP and, when a gRPC port is configured, unary calls over gRPC.
type Server struct {
	httpServer *http.Server
	grpcServer *coregrpc.Server
	engine     *expr.Engine
	history    store.Store
	cache      *cache.ParseCache
	health     *health.Registry
	logger     *mdwlog.Logger
	config     Config

	sessions atomic.Int64
	connMu   sync.Mutex
	conns    map[*websocket.Conn]struct{}
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration // websocket read deadline, extended by pongs
	MaxSessions  int           // 0 means unlimited
	Version      string

	// gRPC listener on Host; 0 disables it
	GRPCPort int

	// Syntax trees shared by all connections; size 0 disables the cache
	ParseCacheSize int
	ParseCacheTTL  time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Host:         "127.0.0.1",
		Port:         9480,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		MaxSessions:  64,
		Version:      version.Server,
		GRPCPort:     0,

		ParseCacheSize: 1024,
		ParseCacheTTL:  10 * time.Minute,
	}
}

// Options holds the collaborators of a Server
type Options struct {
	Engine  *expr.Engine // default grammar when nil
	History store.Store  // optional; every processed message is recorded
	Logger  *mdwlog.Logger
}

// New creates a new server
func New(cfg Config, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	logger := opts.Logger.WithField("component", "server")

	if opts.Engine == nil {
		engine, err := expr.New(expr.Options{Logger: opts.Logger})
		if err != nil {
			return nil, err
		}
		opts.Engine = engine
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultConfig().IdleTimeout
	}
	if cfg.Version == "" {
		cfg.Version = version.Server
	}

	s := &Server{
		engine:  opts.Engine,
		history: opts.History,
		logger:  logger,
		config:  cfg,
		conns:   make(map[*websocket.Conn]struct{}),
	}

	if cfg.ParseCacheSize > 0 {
		s.cache = cache.NewParseCache(cache.Config{
			MaxItems: cfg.ParseCacheSize,
			TTL:      cfg.ParseCacheTTL,
		})
	}

	// Create health registry
	s.health = health.NewRegistry("mexpr", cfg.Version)
	s.health.Register(health.ErrorCheck("parser", false, func(ctx context.Context) error {
		return s.engine.Validate(selfTestExpression)
	}))
	s.health.RegisterFunc("sessions", func(ctx context.Context) health.CheckResult {
		active := s.sessions.Load()
		result := health.CheckResult{
			Name:    "sessions",
			Status:  health.StatusHealthy,
			Message: fmt.Sprintf("%d active sessions", active),
			Details: map[string]interface{}{"active": active, "max": cfg.MaxSessions},
		}
		if cfg.MaxSessions > 0 && active >= int64(cfg.MaxSessions) {
			result.Status = health.StatusDegraded
		}
		return result
	})
	if s.cache != nil {
		s.health.RegisterFunc("parse_cache", func(ctx context.Context) health.CheckResult {
			stats := s.cache.Stats()
			return health.CheckResult{
				Name:    "parse_cache",
				Status:  health.StatusHealthy,
				Message: fmt.Sprintf("%d trees, %.1f%% hit rate", stats.Size, stats.HitRate),
				Details: map[string]interface{}{
					"size":      stats.Size,
					"hits":      stats.Hits,
					"misses":    stats.Misses,
					"evictions": stats.Evictions,
				},
			}
		})
	}
	if s.history != nil {
		s.health.Register(health.ErrorCheck("history", true, func(ctx context.Context) error {
			_, err := s.history.Stats(ctx)
			return err
		}))
	}

	grpcConfig := coregrpc.DefaultServerConfig()
	grpcConfig.Host = cfg.Host
	grpcConfig.Port = cfg.GRPCPort
	s.grpcServer = coregrpc.NewServer(grpcConfig, opts.Logger)
	s.grpcServer.GRPCServer().RegisterService(&ExprServiceDesc, &exprService{server: s})
	coregrpc.RegisterHealth(s.grpcServer, s.health)

	s.httpServer = &http.Server{
		Addr:         s.Address(),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler returns the HTTP handler with all routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/healthz", health.Handler(s.health, 5*time.Second))
	mux.Handle("/ws", &WebSocketHandler{server: s})
	return loggingMiddleware(s.logger, mux)
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *mdwlog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		logger.Debug("HTTP request", logging.ToFields(
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.statusCode,
			"duration", time.Since(start).String(),
		))
	})
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWrapper) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection
func (w *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.statusCode = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// Serve listens on the configured addresses until ctx is cancelled, then
// shuts down gracefully
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	var grpcListener net.Listener
	if s.config.GRPCPort > 0 {
		grpcListener, err = s.grpcServer.Listen()
		if err != nil {
			listener.Close()
			return err
		}
	}
	return s.ServeListeners(ctx, listener, grpcListener)
}

// ServeListener serves websocket sessions on an existing listener until ctx
// is cancelled
func (s *Server) ServeListener(ctx context.Context, listener net.Listener) error {
	return s.ServeListeners(ctx, listener, nil)
}

// ServeListeners serves HTTP on listener and gRPC on grpcListener until ctx
// is cancelled or one of them fails. grpcListener may be nil.
func (s *Server) ServeListeners(ctx context.Context, listener, grpcListener net.Listener) error {
	s.logger.Info("Starting expression service", mdwlog.Fields{
		"address": listener.Addr().String(),
		"grammar": s.engine.Registry().Name(),
	})

	// Each listener reports once; nil means it was stopped
	errCh := make(chan error, 2)
	go func() {
		err := s.httpServer.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()
	if grpcListener != nil {
		go func() {
			if err := s.grpcServer.Serve(grpcListener); err != nil {
				errCh <- fmt.Errorf("gRPC server: %w", err)
				return
			}
			errCh <- nil
		}()
	}

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(shutdownCtx); serveErr == nil {
		serveErr = err
	}
	return serveErr
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping expression service")
	err := s.httpServer.Shutdown(ctx)
	s.grpcServer.StopWithTimeout(ctx)

	// Hijacked websocket connections are not tracked by http.Server
	s.connMu.Lock()
	for conn := range s.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
	}
	s.connMu.Unlock()

	if s.cache != nil {
		stats := s.cache.Stats()
		s.logger.Info("parse cache statistics", logging.ToFields(
			"size", stats.Size, "hits", stats.Hits, "misses", stats.Misses, "hitRate", stats.HitRate))
		s.cache.Close()
	}

	return err
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// GRPCAddress returns the gRPC address, or "" when gRPC is disabled
func (s *Server) GRPCAddress() string {
	if s.config.GRPCPort <= 0 {
		return ""
	}
	return s.grpcServer.Address()
}

// GRPC returns the gRPC server with the expression and health services
// registered
func (s *Server) GRPC() *coregrpc.Server {
	return s.grpcServer
}

// recorder returns the history store as a REPL recorder, or nil
func (s *Server) recorder() repl.Recorder {
	if s.history == nil {
		return nil
	}
	return s.history
}

func (s *Server) track(conn *websocket.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	delete(s.conns, conn)
}

// HealthRegistry returns the health check registry
func (s *Server) HealthRegistry() *health.Registry {
	return s.health
}

// ActiveSessions returns the number of open websocket sessions
func (s *Server) ActiveSessions() int64 {
	return s.sessions.Load()
}
