package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/retools/internal/logging"
)

// DefaultShutdownTimeout bounds graceful shutdown when the caller's context
// has no deadline
const DefaultShutdownTimeout = 5 * time.Second

// Config holds the API server configuration
type Config struct {
	Addr     string // host:port to listen on
	CertPath string // TLS certificate (optional)
	KeyPath  string // TLS private key (required with CertPath)
}

// Server serves the control API
type Server struct {
	config    Config
	http      *http.Server
	tlsConfig *tls.Config

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a server for handler
func NewServer(config Config, handler http.Handler) (*Server, error) {
	s := &Server{
		config: config,
		http: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	if config.CertPath != "" || config.KeyPath != "" {
		if config.CertPath == "" || config.KeyPath == "" {
			return nil, errors.New("TLS needs both a certificate and a key")
		}
		tlsConfig, err := NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, err
		}
		s.tlsConfig = tlsConfig
	}
	return s, nil
}

// Addr returns the listening address, or the configured one before Run
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// Listen binds the listening socket. Run calls it when needed.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}

	var (
		listener net.Listener
		err      error
	)
	if s.tlsConfig != nil {
		listener, err = tls.Listen("tcp", s.config.Addr, s.tlsConfig)
	} else {
		listener, err = net.Listen("tcp", s.config.Addr)
	}
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = listener
	return nil
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	logging.Info("API server listening",
		zap.String("addr", s.Addr()),
		zap.Bool("tls", s.tlsConfig != nil),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.http.Serve(s.listener)
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down API server...")

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultShutdownTimeout)
		defer cancel()
	}

	if err := s.http.Shutdown(ctx); err != nil {
		logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
		_ = s.http.Close()
		return fmt.Errorf("API server shutdown: %w", err)
	}
	return nil
}
