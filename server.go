package oatmeal

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"
)

// PortHandler is called once per accepted connection with a Port already
// wired to that connection's TCPTransport. The handler owns the Port's
// lifetime: it should run until ctx is canceled or the connection drops.
type PortHandler func(ctx context.Context, p *Port) error

// Server listens for incoming TCP connections and hands each one to a
// PortHandler as an Oatmeal Port, the way the teacher's Server handed raw
// *net.TCPConn values to a Handler — except here the framing is already
// done, so handlers work in frames, not bytes.
type Server struct {
	listener        *net.TCPListener
	logger          Logger
	shutdownTimeout time.Duration
	portOpts        []Option

	mu          sync.Mutex
	shutdown    bool
	shutdownNow chan struct{}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// ServerLoggerOption sets the logger for the server and, by default, the
// Ports it constructs.
func ServerLoggerOption(logger Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// ServerShutdownTimeoutOption sets the graceful shutdown timeout. When
// the context is canceled, the server waits up to this duration before
// closing the listener, giving in-flight handlers time to finish.
// Default is 0 (immediate shutdown).
func ServerShutdownTimeoutOption(timeout time.Duration) ServerOption {
	return func(s *Server) { s.shutdownTimeout = timeout }
}

// ServerPortOptions sets the Options applied to every Port the server
// constructs for an accepted connection (e.g. WithProfile, WithMaxMsgLen).
func ServerPortOptions(opts ...Option) ServerOption {
	return func(s *Server) { s.portOpts = opts }
}

// NewServer creates a new TCP server bound to addr.
func NewServer(addr *net.TCPAddr, opts ...ServerOption) (*Server, error) {
	listener, err := net.ListenTCP(addr.Network(), addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		listener:    listener,
		logger:      defaultLogger(),
		shutdownNow: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Serve accepts connections until ctx is canceled, wrapping each one in a
// TCPTransport-backed Port and dispatching it to handle. It blocks until
// every accepted connection's handler has returned.
func (s *Server) Serve(ctx context.Context, handle PortHandler) error {
	s.logger.Info("server started", "addr", s.listener.Addr())

	go func() {
		<-ctx.Done()
		if s.shutdownTimeout > 0 {
			s.logger.Info("graceful shutdown initiated", "timeout", s.shutdownTimeout)
			select {
			case <-time.After(s.shutdownTimeout):
			case <-s.shutdownNow:
				s.logger.Debug("shutdown timeout bypassed via Close()")
			}
		}
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		_ = s.listener.SetDeadline(time.Now())
	}()

	var wg sync.WaitGroup
	for {
		conn, err := s.listener.AcceptTCP()
		if err != nil {
			s.mu.Lock()
			isShutdown := s.shutdown
			s.mu.Unlock()

			if isShutdown {
				s.logger.Info("server stopped", "addr", s.listener.Addr())
				wg.Wait()
				return ctx.Err()
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Error("accept error", "error", err)
			wg.Wait()
			return err
		}

		s.logger.Debug("accepted connection", "remote_addr", conn.RemoteAddr())
		_ = conn.SetNoDelay(true)

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(ctx, conn, handle)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn *net.TCPConn, handle PortHandler) {
	transport := NewTCPTransport(conn, WithTCPLogger(s.logger))
	opts := append([]Option{WithLogger(s.logger)}, s.portOpts...)
	p := NewPort(transport, opts...)

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- transport.Run(connCtx) }()

	if err := handle(connCtx, p); err != nil {
		s.logger.Info("port handler returned", "addr", transport.Addr(), "error", err)
	}
	cancel()
	<-errCh
}

// Close stops the server by closing the underlying listener. If a
// shutdown timeout is configured, Close bypasses the remaining timeout.
func (s *Server) Close() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	select {
	case s.shutdownNow <- struct{}{}:
	default:
	}

	return s.listener.Close()
}

// Addr returns the listener's network address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
