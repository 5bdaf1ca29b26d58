package transport

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func tcpPipe(t *testing.T) (*net.TCPConn, *net.TCPConn) {
	t.Helper()

	ln, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)

	t.Cleanup(func() { _ = ln.Close() })

	acceptedCh := make(chan *net.TCPConn, 1)

	go func() {
		conn, err := ln.AcceptTCP()
		if err == nil {
			acceptedCh <- conn
		}
	}()

	client, err := net.DialTCP("tcp", nil, ln.Addr().(*net.TCPAddr))
	require.NoError(t, err)

	server := <-acceptedCh

	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})

	return server, client
}

func TestTCPConnOnSessionStartDisablesNagle(t *testing.T) {
	server, _ := tcpPipe(t)

	conn := NewTCPConn(server)
	require.NoError(t, conn.OnSessionStart())
}

func TestTCPConnReadWriteRoundTrip(t *testing.T) {
	server, client := tcpPipe(t)

	serverConn := NewTCPConn(server)
	clientConn := NewTCPConn(client)

	require.NoError(t, clientConn.WriteAll([]byte("hello")))
	require.NoError(t, clientConn.Flush())

	for _, want := range []byte("hello") {
		got, err := serverConn.Read()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestTCPConnPeekDoesNotConsume(t *testing.T) {
	server, client := tcpPipe(t)

	serverConn := NewTCPConn(server)
	clientConn := NewTCPConn(client)

	require.NoError(t, clientConn.Write('x'))
	require.NoError(t, clientConn.Flush())

	// Block until at least one byte has arrived in the reader's buffer.
	var (
		b  byte
		ok bool
	)

	for !ok {
		var err error

		b, ok, err = serverConn.Peek()
		require.NoError(t, err)
	}

	require.Equal(t, byte('x'), b)

	got, err := serverConn.Read()
	require.NoError(t, err)
	require.Equal(t, byte('x'), got)
}

func TestTCPConnCloseUnblocksRead(t *testing.T) {
	server, _ := tcpPipe(t)

	conn := NewTCPConn(server)
	require.NoError(t, conn.Close())

	_, err := conn.Read()
	require.Error(t, err)
}
