package transport

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/stretchr/testify/require"
)

// selfSignedTLSConfig builds an in-memory cert so tests never touch disk.
func selfSignedTLSConfig(t *testing.T) *tls.Config {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "rspstub-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"localhost"},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	cert := tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"rspstub-test"},
	}
}

func TestQUICConnRoundTrip(t *testing.T) {
	serverTLS := selfSignedTLSConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ln, err := ListenQUIC(ctx, "127.0.0.1:0", serverTLS)
	require.NoError(t, err)
	defer ln.Close()

	serverDone := make(chan error, 1)
	serverConnCh := make(chan *QUICConn, 1)

	go func() {
		conn, err := ln.Accept(ctx)
		if err != nil {
			serverDone <- err
			return
		}

		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			serverDone <- err
			return
		}

		serverConnCh <- NewQUICConn(stream)
		serverDone <- nil
	}()

	clientTLS := &tls.Config{InsecureSkipVerify: true, NextProtos: []string{"rspstub-test"}}

	clientConn, err := quic.DialAddr(ctx, ln.Addr().String(), clientTLS, &quic.Config{})
	require.NoError(t, err)
	defer clientConn.CloseWithError(0, "")

	clientStream, err := clientConn.OpenStreamSync(ctx)
	require.NoError(t, err)

	client := NewQUICConn(clientStream)

	require.NoError(t, client.WriteAll([]byte("OK")))
	require.NoError(t, client.Flush())

	require.NoError(t, <-serverDone)
	server := <-serverConnCh

	for _, want := range []byte("OK") {
		got, err := server.Read()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}
