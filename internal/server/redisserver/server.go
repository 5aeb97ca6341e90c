package redisserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/keyvault-go/internal/telemetry/logger"
)

// Config holds the Redis server configuration.
type Config struct {
	// Address is the TCP listen address; empty disables TCP.
	Address string
	// Socket is the Unix socket path; empty disables the socket.
	Socket string
	// ReadTimeout is the timeout for reading a command once its first byte
	// arrived (default: 30s).
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing a response (default: 30s).
	WriteTimeout time.Duration
	// IdleTimeout is the timeout for idle connections (default: 5m).
	IdleTimeout time.Duration
	// RateLimit is the maximum number of commands per second per client
	// host (default: 1000). Set to 0 to disable rate limiting.
	RateLimit int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:      "127.0.0.1:6399",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  5 * time.Minute,
		RateLimit:    1000,
	}
}

// ConnObserver receives connection lifecycle events.
type ConnObserver interface {
	ConnOpened()
	ConnClosed()
	AuthFailed()
}

type nopConnObserver struct{}

func (nopConnObserver) ConnOpened() {}
func (nopConnObserver) ConnClosed() {}
func (nopConnObserver) AuthFailed() {}

// Server represents the Redis protocol server.
type Server struct {
	cfg      *Config
	handler  *CommandHandler
	device   Device
	observer ConnObserver
	logger   logger.Logger

	mu        sync.Mutex
	listeners []net.Listener
	running   atomic.Bool
	wg        sync.WaitGroup
}

// ConnState holds the state of a client connection.
type ConnState struct {
	Authenticated bool
	Principal     string
	User          int
	SessionID     string
}

// Conn represents a single Redis client connection.
type Conn struct {
	netConn net.Conn
	br      *bufio.Reader
	bw      *bufio.Writer

	stateMu sync.RWMutex
	state   ConnState

	closed atomic.Bool
}

func newConn(c net.Conn) *Conn {
	return &Conn{
		netConn: c,
		br:      bufio.NewReader(c),
		bw:      bufio.NewWriter(c),
	}
}

func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

func (c *Conn) remote() string {
	return clientKey(c.RemoteAddr())
}

func (c *Conn) GetState() ConnState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

func (c *Conn) SetState(st ConnState) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.state = st
}

// Option configures a Server.
type Option func(*Server)

// WithConnObserver sets the connection observer.
func WithConnObserver(o ConnObserver) Option {
	return func(s *Server) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a new Redis protocol server.
func New(cfg *Config, device Device, resolver Resolver, opts ...Option) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		cfg:      cfg,
		device:   device,
		observer: nopConnObserver{},
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = NewCommandHandler(device, resolver, cfg.RateLimit, s.observer)
	return s
}

// Start binds the configured listeners and serves them in the background.
// A bind failure closes any listener already opened.
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.Address == "" && s.cfg.Socket == "" {
		s.logger.Info("redis server disabled (no address or socket)")
		return nil
	}

	var lns []net.Listener
	if s.cfg.Address != "" {
		ln, err := net.Listen("tcp", s.cfg.Address)
		if err != nil {
			return fmt.Errorf("listen tcp %s: %w", s.cfg.Address, err)
		}
		lns = append(lns, ln)
	}
	if s.cfg.Socket != "" {
		ln, err := listenUnix(s.cfg.Socket)
		if err != nil {
			for _, l := range lns {
				_ = l.Close()
			}
			return err
		}
		lns = append(lns, ln)
	}

	s.running.Store(true)
	for _, ln := range lns {
		s.Serve(ctx, ln)
	}
	return nil
}

// listenUnix removes a stale socket file and listens on path.
func listenUnix(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen unix %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("chmod socket %s: %w", path, err)
	}
	return ln, nil
}

// Serve accepts connections from ln in the background until Shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) {
	s.running.Store(true)
	s.mu.Lock()
	s.listeners = append(s.listeners, ln)
	s.mu.Unlock()

	s.logger.Info("redis server listening", "network", ln.Addr().Network(), "address", ln.Addr().String())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ctx, ln); err != nil && s.running.Load() {
			s.logger.Error("redis accept loop failed", "address", ln.Addr().String(), "error", err)
		}
	}()
}

// Addrs returns the bound listener addresses.
func (s *Server) Addrs() []net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]net.Addr, len(s.listeners))
	for i, ln := range s.listeners {
		out[i] = ln.Addr()
	}
	return out
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var firstErr error

	// Close listeners to break accept loops.
	s.mu.Lock()
	for _, ln := range s.listeners {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) && firstErr == nil {
			firstErr = err
		}
	}
	s.listeners = nil
	s.mu.Unlock()

	// Wait for goroutines to finish
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return firstErr
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if !s.running.Load() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ServeConn(ctx, c)
		}()
	}
}

// ServeConn runs the command loop on one connection until it closes.
// The connection's device session is released on return.
func (s *Server) ServeConn(ctx context.Context, nc net.Conn) {
	c := newConn(nc)
	ctx = logger.WithRemote(logger.WithLogger(ctx, s.logger), c.remote())
	s.observer.ConnOpened()
	defer func() {
		if id := c.GetState().SessionID; id != "" {
			s.device.Close(id)
		}
		_ = c.Close()
		s.observer.ConnClosed()
	}()

	readTimeout := durationOr(s.cfg.ReadTimeout, 30*time.Second)
	writeTimeout := durationOr(s.cfg.WriteTimeout, 30*time.Second)
	idleTimeout := durationOr(s.cfg.IdleTimeout, 5*time.Minute)

	for {
		if ctx.Err() != nil {
			return
		}

		// First byte: allow idle timeout (connection can stay idle between commands).
		if err := c.netConn.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
			return
		}
		if _, err := c.br.Peek(1); err != nil {
			s.logReadError(c, err)
			return
		}

		// After first byte: tighten to per-command read timeout (slowloris protection).
		if err := c.netConn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return
		}

		args, err := ReadCommand(c.br)
		if err != nil {
			if errors.Is(err, ErrLimitExceeded) {
				s.logger.Warn("protocol limit exceeded", "remote", c.remote(), "error", err)
				s.replyAndClose(c, writeTimeout, "ERR protocol limit exceeded")
				return
			}
			if errors.Is(err, ErrProtocol) {
				s.replyAndClose(c, writeTimeout, "ERR protocol error: "+err.Error())
				return
			}
			s.logReadError(c, err)
			return
		}

		if len(args) == 0 {
			_ = c.netConn.SetWriteDeadline(time.Now().Add(writeTimeout))
			_ = WriteError(c.bw, "ERR no command")
			_ = c.bw.Flush()
			continue
		}

		s.handler.Handle(ctx, c, args)
		if c.closed.Load() {
			return
		}

		// Set write deadline before flushing response
		if err := c.netConn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return
		}
		if err := c.bw.Flush(); err != nil {
			return
		}
	}
}

func (s *Server) replyAndClose(c *Conn, writeTimeout time.Duration, msg string) {
	_ = c.netConn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = WriteError(c.bw, msg)
	_ = c.bw.Flush()
}

func (s *Server) logReadError(c *Conn, err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		s.logger.Debug("connection timed out", "remote", c.remote())
		return
	}
	s.logger.Debug("connection read error", "remote", c.remote(), "error", err)
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
