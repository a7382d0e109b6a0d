package oatmeal

import (
	"bufio"
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// TCPTransport adapts a *net.TCPConn into the Transport contract a Port
// drives, the way the teacher's Conn wrapped one for its own read/write
// loops. A device that speaks Oatmeal over a network socket instead of a
// serial line uses this instead of serialio.Port; Port itself does the
// framing, so there is no Codec/Message layer here, just bytes.
type TCPTransport struct {
	conn        *net.TCPConn
	reader      *bufio.Reader
	logger      Logger
	idleTimeout time.Duration

	closed atomic.Bool
	cancel context.CancelFunc

	*ChanTransport
	chunks chan []byte
}

// TCPOption configures a TCPTransport.
type TCPOption func(*TCPTransport)

// WithTCPLogger sets the logger a TCPTransport uses for connection
// lifecycle events. Defaults to slog.Default().
func WithTCPLogger(logger Logger) TCPOption {
	return func(t *TCPTransport) { t.logger = logger }
}

// WithTCPIdleTimeout sets the read/write deadline refreshed before every
// read and every write. Defaults to 30s, the same default the teacher's Conn
// used for its idle timeout.
func WithTCPIdleTimeout(d time.Duration) TCPOption {
	return func(t *TCPTransport) { t.idleTimeout = d }
}

// NewTCPTransport wraps conn. Call Run in its own goroutine before
// handing the transport to a Port; Run pumps incoming bytes until ctx is
// canceled or the connection errors out.
func NewTCPTransport(conn *net.TCPConn, opts ...TCPOption) *TCPTransport {
	chunks := make(chan []byte, 64)
	t := &TCPTransport{
		conn:        conn,
		reader:      bufio.NewReader(conn),
		logger:      defaultLogger(),
		idleTimeout: 30 * time.Second,
		chunks:      chunks,
	}
	t.ChanTransport = NewChanTransport(chunks, t.writeConn)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run starts the background read pump. It blocks until ctx is canceled
// or the connection errors, mirroring the teacher's Conn.Run shape
// minus the write loop (ChanTransport.Write already calls writeConn
// directly, so there is no separate send queue to drain).
func (t *TCPTransport) Run(ctx context.Context) error {
	ctx, t.cancel = context.WithCancel(ctx)
	group, child := errgroup.WithContext(ctx)
	group.Go(func() error { return t.readLoop(child) })
	group.Go(func() error {
		// Closing the connection wakes a read that would otherwise stay
		// blocked until the idle deadline after ctx is canceled.
		<-child.Done()
		t.closeConn()
		return nil
	})
	err := group.Wait()
	t.closeConn()
	if err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil) {
		return nil
	}
	return err
}

// readLoop copies bytes off the wire into the channel ChanTransport
// drains from. The read deadline is refreshed before every read, so a
// blocked read wakes at least once per idle timeout to recheck ctx; a
// timeout is not treated as an error, so a silent peer does not close
// the connection.
func (t *TCPTransport) readLoop(ctx context.Context) error {
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_ = t.conn.SetReadDeadline(time.Now().Add(t.idleTimeout))
		n, err := t.reader.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case t.chunks <- chunk:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			t.logger.Debug("tcp transport read error", "addr", t.Addr(), "error", err)
			return err
		}
	}
}

// writeConn is ChanTransport's writeFn: it refreshes the write deadline
// and writes src in full, wrapping any failure for Port.LastSendErr.
func (t *TCPTransport) writeConn(src []byte) error {
	if t.closed.Load() {
		return ErrConnectionClosed
	}
	_ = t.conn.SetWriteDeadline(time.Now().Add(t.idleTimeout))
	if _, err := t.conn.Write(src); err != nil {
		return errors.Wrap(err, "tcp transport write")
	}
	return nil
}

// Addr returns the remote address of the wrapped connection.
func (t *TCPTransport) Addr() net.Addr { return t.conn.RemoteAddr() }

// Close stops the read pump and closes the underlying connection. Safe
// to call more than once.
func (t *TCPTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	if t.cancel != nil {
		t.cancel()
	}
	return t.conn.Close()
}

func (t *TCPTransport) closeConn() {
	t.closed.Store(true)
	_ = t.conn.Close()
}
