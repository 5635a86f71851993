package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lixenwraith/tilt-alarm/service"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server exposes the manager's registry at /metrics as a Service
type Server struct {
	mu     sync.Mutex
	addr   string
	srv    *http.Server
	ln     net.Listener
	done   chan struct{}
	m      *Manager
	logger zerolog.Logger
}

// NewServer creates a stopped server for addr, e.g. "127.0.0.1:9464"
func NewServer(m *Manager, addr string, logger zerolog.Logger) *Server {
	return &Server{m: m, addr: addr, logger: logger}
}

// Name implements Service
func (s *Server) Name() string {
	return "metrics"
}

// Dependencies implements Service
func (s *Server) Dependencies() []string {
	return nil
}

// Init implements Service
func (s *Server) Init(service.Env) error {
	if s.m == nil {
		return errors.New("metrics server: nil manager")
	}
	return nil
}

// Start binds the listener so address errors surface here, then serves in the background
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("metrics listen %s: %w", s.addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.m.Handler())

	s.ln = ln
	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	s.done = make(chan struct{})
	srv, done := s.srv, s.done
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("metrics server started")
	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop() error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv, s.ln = nil, nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(ctx)
	<-done
	return err
}

// Addr returns the bound address while running
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}
