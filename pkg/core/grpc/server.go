package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	mdwlog "github.com/msto63/mExpr/foundation/core/log"
)

// ServerConfig holds gRPC server configuration
type ServerConfig struct {
	Host              string
	Port              int
	MaxRecvMsgSize    int
	MaxSendMsgSize    int
	EnableReflection  bool
	KeepaliveInterval time.Duration
	KeepaliveTimeout  time.Duration
}

// DefaultServerConfig returns a default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              9481,
		MaxRecvMsgSize:    1024 * 1024, // expressions are short
		MaxSendMsgSize:    4 * 1024 * 1024,
		EnableReflection:  true,
		KeepaliveInterval: 30 * time.Second,
		KeepaliveTimeout:  10 * time.Second,
	}
}

// Server wraps a gRPC server with the interceptor chain of the service
type Server struct {
	server *grpc.Server
	config ServerConfig
	logger *mdwlog.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a new gRPC server. A nil logger uses the default logger.
func NewServer(cfg ServerConfig, logger *mdwlog.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = mdwlog.GetDefault()
	}
	logger = logger.WithField("component", "grpc")

	defaults := DefaultServerConfig()
	if cfg.MaxRecvMsgSize <= 0 {
		cfg.MaxRecvMsgSize = defaults.MaxRecvMsgSize
	}
	if cfg.MaxSendMsgSize <= 0 {
		cfg.MaxSendMsgSize = defaults.MaxSendMsgSize
	}
	if cfg.KeepaliveInterval <= 0 {
		cfg.KeepaliveInterval = defaults.KeepaliveInterval
	}
	if cfg.KeepaliveTimeout <= 0 {
		cfg.KeepaliveTimeout = defaults.KeepaliveTimeout
	}

	serverOpts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(cfg.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(cfg.MaxSendMsgSize),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    cfg.KeepaliveInterval,
			Timeout: cfg.KeepaliveTimeout,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		// RequestID runs first so recovery and logging see the id
		grpc.ChainUnaryInterceptor(
			RequestIDInterceptor(),
			RecoveryInterceptor(logger),
			LoggingInterceptor(logger),
		),
		grpc.ChainStreamInterceptor(
			StreamRecoveryInterceptor(logger),
			StreamLoggingInterceptor(logger),
		),
	}
	serverOpts = append(serverOpts, opts...)

	server := grpc.NewServer(serverOpts...)
	if cfg.EnableReflection {
		reflection.Register(server)
	}

	return &Server{
		server: server,
		config: cfg,
		logger: logger,
	}
}

// GRPCServer returns the underlying gRPC server for service registration
func (s *Server) GRPCServer() *grpc.Server {
	return s.server
}

// Listen opens the configured TCP address
func (s *Server) Listen() (net.Listener, error) {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return listener, nil
}

// Serve accepts connections on listener until Stop is called. It returns nil
// after a graceful stop.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("Starting gRPC service", mdwlog.Fields{"address": listener.Addr().String()})
	if err := s.server.Serve(listener); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

// Stop gracefully stops the gRPC server
func (s *Server) Stop() {
	s.server.GracefulStop()
}

// StopWithTimeout stops gracefully, or forcibly once ctx is done
func (s *Server) StopWithTimeout(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("gRPC graceful stop timed out, closing connections")
		s.server.Stop()
	}
}

// Address returns the listening address, or the configured one before Serve
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
