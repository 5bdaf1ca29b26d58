package rsp_test

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/nervctl/rspstub"
	"github.com/nervctl/rspstub/internal/demotarget"
)

// pipeConn adapts one end of a net.Pipe() to rsp.ByteConn, the same way
// internal/transport's TCPConn adapts a real socket.
type pipeConn struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
}

func newPipeConn(conn net.Conn) *pipeConn {
	return &pipeConn{conn: conn, r: bufio.NewReaderSize(conn, 256), w: bufio.NewWriterSize(conn, 256)}
}

func (c *pipeConn) OnSessionStart() error { return nil }
func (c *pipeConn) Read() (byte, error)   { return c.r.ReadByte() }

func (c *pipeConn) Peek() (byte, bool, error) {
	if c.r.Buffered() == 0 {
		return 0, false, nil
	}

	b, err := c.r.Peek(1)
	if err != nil {
		return 0, false, err
	}

	return b[0], true, nil
}

func (c *pipeConn) Write(b byte) error       { return c.w.WriteByte(b) }
func (c *pipeConn) WriteAll(buf []byte) error { _, err := c.w.Write(buf); return err }
func (c *pipeConn) Flush() error              { return c.w.Flush() }
func (c *pipeConn) Close() error              { return c.conn.Close() }

// clientSide drives the "GDB" end of a pipe: send one packet (acking the
// framing), read back the reply, ack it, and return the reply body.
func clientSide(t *testing.T, conn net.Conn, r *bufio.Reader, w *bufio.Writer, body string) string {
	t.Helper()

	sum := byte(0)
	for i := 0; i < len(body); i++ {
		sum += body[i]
	}

	framed := "$" + body + "#" + hexByte(sum)
	if _, err := w.WriteString(framed); err != nil {
		t.Fatalf("write packet: %v", err)
	}

	if err := w.Flush(); err != nil {
		t.Fatalf("flush packet: %v", err)
	}

	// Server acks our packet first.
	ack, err := r.ReadByte()
	if err != nil {
		t.Fatalf("read ack: %v", err)
	}

	if ack != '+' {
		t.Fatalf("expected server ack '+', got %q", ack)
	}

	reply := readPacket(t, r)

	if _, err := w.WriteString("+"); err != nil {
		t.Fatalf("write reply ack: %v", err)
	}

	if err := w.Flush(); err != nil {
		t.Fatalf("flush reply ack: %v", err)
	}

	return reply
}

func readPacket(t *testing.T, r *bufio.Reader) string {
	t.Helper()

	b, err := r.ReadByte()
	if err != nil {
		t.Fatalf("read packet start: %v", err)
	}

	if b != '$' {
		t.Fatalf("expected '$', got %q", b)
	}

	var body []byte

	for {
		b, err := r.ReadByte()
		if err != nil {
			t.Fatalf("read packet body: %v", err)
		}

		if b == '#' {
			break
		}

		body = append(body, b)
	}

	// consume the two checksum hex digits
	if _, err := r.ReadByte(); err != nil {
		t.Fatalf("read checksum: %v", err)
	}

	if _, err := r.ReadByte(); err != nil {
		t.Fatalf("read checksum: %v", err)
	}

	return string(body)
}

func hexByte(b byte) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[b>>4], digits[b&0x0f]})
}

func TestProtocolCoreQueryStopReason(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	target := demotarget.NewTarget(1024, demotarget.ProgramDebugInfo{})
	core := rsp.NewProtocolCore(newPipeConn(serverConn), target, 256, nil)

	stopCh := make(chan rsp.StopReason)
	done := make(chan error, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_, err := core.Run(ctx, stopCh)
		done <- err
	}()

	r := bufio.NewReaderSize(clientConn, 256)
	w := bufio.NewWriterSize(clientConn, 256)

	reply := clientSide(t, clientConn, r, w, "?")

	// Idle, single-threaded target: "?" reports already-stopped on
	// SIGTRAP for thread 1.
	if want := "T05thread:1;"; reply != want {
		t.Errorf("got reply %q, want %q", reply, want)
	}

	// Disconnect cleanly so core.Run returns instead of blocking forever
	// on the next Read.
	disconnectReply := clientSide(t, clientConn, r, w, "D")
	if disconnectReply != "OK" {
		t.Errorf("got disconnect reply %q, want %q", disconnectReply, "OK")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("core.Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("core.Run did not return after disconnect")
	}
}

func TestProtocolCoreNoAckModeSkipsHandshake(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	target := demotarget.NewTarget(1024, demotarget.ProgramDebugInfo{})
	core := rsp.NewProtocolCore(newPipeConn(serverConn), target, 256, nil)

	stopCh := make(chan rsp.StopReason)
	done := make(chan error, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_, err := core.Run(ctx, stopCh)
		done <- err
	}()

	r := bufio.NewReaderSize(clientConn, 256)
	w := bufio.NewWriterSize(clientConn, 256)

	reply := clientSide(t, clientConn, r, w, "QStartNoAckMode")
	if reply != "OK" {
		t.Fatalf("got %q, want OK", reply)
	}

	// From here on neither side acks. Send "?" raw and read the reply
	// raw, with no leading '+' from the server and none expected back.
	body := "?"
	sum := byte(0)
	for i := 0; i < len(body); i++ {
		sum += body[i]
	}

	if _, err := w.WriteString("$" + body + "#" + hexByte(sum)); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	reply = readPacket(t, r)
	if want := "T05thread:1;"; reply != want {
		t.Errorf("got reply %q, want %q", reply, want)
	}

	if _, err := w.WriteString("$D#" + hexByte('D')); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if got := readPacket(t, r); got != "OK" {
		t.Errorf("got %q, want OK", got)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("core.Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("core.Run did not return after disconnect")
	}
}
