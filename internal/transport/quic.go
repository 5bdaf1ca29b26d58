package transport

import (
	"bufio"
	"context"
	"crypto/tls"

	"github.com/quic-go/quic-go"
)

// QUICConn adapts a single quic.Stream (opened over one quic.Connection) to
// rsp.ByteConn, for operators who want the framing-over-any-reliable-stream
// property RSP already assumes to ride over QUIC instead of raw TCP —
// useful on lossy links where QUIC's connection migration avoids a full
// gdbserver reconnect.
type QUICConn struct {
	stream quic.Stream
	r      *bufio.Reader
}

// NewQUICConn wraps an accepted QUIC stream for use as an rsp.ByteConn.
func NewQUICConn(stream quic.Stream) *QUICConn {
	return &QUICConn{stream: stream, r: bufio.NewReaderSize(stream, 4096)}
}

// OnSessionStart is a no-op for QUIC: there is no Nagle's algorithm to
// disable, and quic-go already disables stream-level coalescing delays.
func (c *QUICConn) OnSessionStart() error { return nil }

func (c *QUICConn) Read() (byte, error) { return c.r.ReadByte() }

func (c *QUICConn) Peek() (byte, bool, error) {
	if c.r.Buffered() == 0 {
		return 0, false, nil
	}

	b, err := c.r.Peek(1)
	if err != nil {
		return 0, false, err
	}

	return b[0], true, nil
}

func (c *QUICConn) Write(b byte) error {
	_, err := c.stream.Write([]byte{b})
	return err
}

func (c *QUICConn) WriteAll(buf []byte) error {
	_, err := c.stream.Write(buf)
	return err
}

func (c *QUICConn) Flush() error { return nil }

// Close closes the underlying stream.
func (c *QUICConn) Close() error { return c.stream.Close() }

// ListenQUIC starts a QUIC listener on addr using tlsConf, returning the raw
// *quic.Listener; callers Accept() connections and wrap each connection's
// first stream with NewQUICConn.
func ListenQUIC(ctx context.Context, addr string, tlsConf *tls.Config) (*quic.Listener, error) {
	return quic.ListenAddr(addr, tlsConf, &quic.Config{})
}
