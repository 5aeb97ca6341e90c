package localserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/keyvault-go/internal/telemetry/logger"
)

// MaxLineLen bounds one command line.
const MaxLineLen = 4 * 1024

// Server represents the local management server.
type Server struct {
	path    string
	handler *Handler
	logger  logger.Logger
	idle    time.Duration

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	running  atomic.Bool
	wg       sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIdleTimeout closes connections that send nothing for d.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) { s.idle = d }
}

// New creates a new local server bound to socketPath.
func New(socketPath string, admin Admin, opts ...Option) *Server {
	s := &Server{
		path:    socketPath,
		handler: NewHandler(admin),
		logger:  logger.Nop(),
		idle:    5 * time.Minute,
		conns:   make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the socket path.
func (s *Server) Path() string { return s.path }

// Start binds the socket and serves in the background.
// A stale socket file left by a previous run is removed first.
func (s *Server) Start(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", s.path, err)
	}
	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listen unix %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod socket %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.running.Store(true)
	s.logger.Info("local server listening", "path", s.path)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ctx, ln); err != nil {
			s.logger.Error("local accept loop failed", "error", err)
		}
	}()
	return nil
}

// ListenAndServe binds the socket and blocks until Shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	s.wg.Wait()
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

// Shutdown gracefully shuts down the server.
//
// It stops accepting, closes idle connections, waits for in-flight commands
// (bounded by ctx) and removes the socket file.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var closeErr error
	s.mu.Lock()
	if s.listener != nil {
		closeErr = s.listener.Close()
	}
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) && closeErr == nil {
			closeErr = err
		}
		if errors.Is(closeErr, net.ErrClosed) {
			closeErr = nil
		}
		return closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 512), MaxLineLen)
	bw := bufio.NewWriter(conn)

	for {
		if s.idle > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.idle))
		}
		if !sc.Scan() {
			if err := sc.Err(); err != nil && s.running.Load() && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("local connection closed", "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if strings.EqualFold(fields[0], "quit") {
			return
		}

		start := time.Now()
		if err := s.handler.Execute(bw, fields[0], fields[1:]); err != nil {
			return
		}
		if err := bw.Flush(); err != nil {
			return
		}
		s.logger.Debug("local command", "command", fields[0], "elapsed", time.Since(start).String())
	}
}
