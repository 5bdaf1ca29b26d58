// Package transport provides the ByteConn implementations cmd/rspstubd
// wires into an rsp.ProtocolCore: a plain TCP listener (gdbserver's classic
// transport) and a QUIC-backed one for lossy links, plus a file watcher
// (reload.go) and a semver client-version check (version.go).
package transport

import (
	"bufio"
	"net"

	"golang.org/x/sys/unix"
)

// TCPConn adapts a *net.TCPConn to rsp.ByteConn, buffering reads/writes the
// way the teacher's own connection-handling code does, and disabling
// Nagle's algorithm on session start so single-byte acks are not batched.
type TCPConn struct {
	conn *net.TCPConn
	r    *bufio.Reader
	w    *bufio.Writer
}

// NewTCPConn wraps conn for use as an rsp.ByteConn.
func NewTCPConn(conn *net.TCPConn) *TCPConn {
	return &TCPConn{
		conn: conn,
		r:    bufio.NewReaderSize(conn, 4096),
		w:    bufio.NewWriterSize(conn, 4096),
	}
}

// OnSessionStart disables Nagle's algorithm via TCP_NODELAY so the
// byte-at-a-time ack/nak handshake is not delayed by the kernel's batching.
func (c *TCPConn) OnSessionStart() error {
	raw, err := c.conn.SyscallConn()
	if err != nil {
		return err
	}

	var sockErr error

	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	})
	if err != nil {
		return err
	}

	return sockErr
}

func (c *TCPConn) Read() (byte, error) { return c.r.ReadByte() }

func (c *TCPConn) Peek() (byte, bool, error) {
	if c.r.Buffered() == 0 {
		return 0, false, nil
	}

	b, err := c.r.Peek(1)
	if err != nil {
		return 0, false, err
	}

	return b[0], true, nil
}

func (c *TCPConn) Write(b byte) error { return c.w.WriteByte(b) }

func (c *TCPConn) WriteAll(buf []byte) error {
	_, err := c.w.Write(buf)
	return err
}

func (c *TCPConn) Flush() error { return c.w.Flush() }

// Close closes the underlying socket.
func (c *TCPConn) Close() error { return c.conn.Close() }
