package oatmeal

import (
	"bytes"
	"sync"
)

// Transport is the narrow byte-source/byte-sink contract a Port drives
// (§6). Available and Read must never block; Write may block iff the
// underlying output buffer is full — that's the transport's problem to
// solve, not the protocol core's (§5).
type Transport interface {
	// Available returns the number of bytes immediately readable without
	// blocking.
	Available() int
	// Read copies up to len(dst) bytes (and at most Available()) into
	// dst, returning the number copied. Non-blocking.
	Read(dst []byte) int
	// Write writes all of src, blocking only if the output buffer is
	// full.
	Write(src []byte) error
}

// BufferTransport is a bytes.Buffer-backed Transport for deterministic,
// single-goroutine tests: feed bytes with Feed, then drive a Port against
// it directly.
type BufferTransport struct {
	in  bytes.Buffer
	out bytes.Buffer
}

// NewBufferTransport returns an empty BufferTransport.
func NewBufferTransport() *BufferTransport { return &BufferTransport{} }

// Feed appends bytes to the transport's simulated inbound stream.
func (t *BufferTransport) Feed(b []byte) { t.in.Write(b) }

// Available implements Transport.
func (t *BufferTransport) Available() int { return t.in.Len() }

// Read implements Transport.
func (t *BufferTransport) Read(dst []byte) int {
	n, _ := t.in.Read(dst)
	return n
}

// Write implements Transport.
func (t *BufferTransport) Write(src []byte) error {
	_, err := t.out.Write(src)
	return err
}

// Written returns every byte written so far via Write.
func (t *BufferTransport) Written() []byte { return t.out.Bytes() }

// ChanTransport bridges a channel-fed byte source (e.g. a goroutine
// reading a net.Conn, as the teacher's Conn.readLoop does) into a Port's
// single-threaded Recv loop. Grounded on the teacher's channel-backed
// write queue in conn.go: here a channel of byte chunks plays the same
// decoupling role on the read side.
type ChanTransport struct {
	chunks chan []byte
	write  func([]byte) error

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewChanTransport returns a ChanTransport whose Read side drains chunks
// and whose Write side calls writeFn (e.g. a net.Conn.Write).
func NewChanTransport(chunks chan []byte, writeFn func([]byte) error) *ChanTransport {
	return &ChanTransport{chunks: chunks, write: writeFn}
}

// drain pulls every chunk currently queued on the channel into buf
// without blocking.
func (t *ChanTransport) drain() {
	for {
		select {
		case c, ok := <-t.chunks:
			if !ok {
				return
			}
			t.buf.Write(c)
		default:
			return
		}
	}
}

// Available implements Transport.
func (t *ChanTransport) Available() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.drain()
	return t.buf.Len()
}

// Read implements Transport.
func (t *ChanTransport) Read(dst []byte) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.drain()
	n, _ := t.buf.Read(dst)
	return n
}

// Write implements Transport.
func (t *ChanTransport) Write(src []byte) error {
	return t.write(src)
}
