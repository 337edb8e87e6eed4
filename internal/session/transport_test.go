package session

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcrown/weerelay/internal/testutil/tlstest"
)

func TestDialStreamPlainTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_, _ = conn.Write([]byte("hello"))
		_ = conn.Close()
	}()

	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = ln.Addr().(*net.TCPAddr).Port

	conn, err := Dial(context.Background(), cfg)
	require.NoError(t, err)
	defer conn.Close()

	got, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestDialStreamTLS(t *testing.T) {
	dir := t.TempDir()
	ca := tlstest.NewAuthority(t, dir, "weerelay test ca")
	certPath, keyPath := ca.IssueServerCert(t, dir, "relay",
		nil, []net.IP{net.ParseIP("127.0.0.1")})

	serverCert, err := tls.LoadX509KeyPair(certPath, keyPath)
	require.NoError(t, err)
	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{serverCert},
	})
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_, _ = conn.Write([]byte("secure"))
		_ = conn.Close()
	}()

	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = ln.Addr().(*net.TCPAddr).Port
	cfg.TLS = TLSConfig{Enabled: true, CAFile: ca.CAFile()}

	conn, err := Dial(context.Background(), cfg)
	require.NoError(t, err)
	defer conn.Close()

	got, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "secure", string(got))
}

func TestDialStreamTLSUntrustedServer(t *testing.T) {
	dir := t.TempDir()
	serverCA := tlstest.NewAuthority(t, dir, "server ca")
	clientCA := tlstest.NewAuthority(t, dir, "client trusted ca")
	certPath, keyPath := serverCA.IssueServerCert(t, dir, "relay",
		nil, []net.IP{net.ParseIP("127.0.0.1")})

	serverCert, err := tls.LoadX509KeyPair(certPath, keyPath)
	require.NoError(t, err)
	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{serverCert},
	})
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = ln.Addr().(*net.TCPAddr).Port
	// trust a different authority than the one the server presents
	cfg.TLS = TLSConfig{Enabled: true, CAFile: clientCA.CAFile()}

	_, err = Dial(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestBuildTLSConfigClientKeypair(t *testing.T) {
	dir := t.TempDir()
	ca := tlstest.NewAuthority(t, dir, "weerelay test ca")
	certPath, keyPath := ca.IssueClientCert(t, dir, "client")

	cfg := DefaultConfig()
	cfg.Host = "relay.example.net"
	cfg.TLS = TLSConfig{
		Enabled:  true,
		CAFile:   ca.CAFile(),
		CertFile: certPath,
		KeyFile:  keyPath,
	}

	tlsCfg, err := buildTLSConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "relay.example.net", tlsCfg.ServerName)
	assert.Len(t, tlsCfg.Certificates, 1)
	assert.NotNil(t, tlsCfg.RootCAs)
}

func TestBuildTLSConfigMissingCAFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "relay.example.net"
	cfg.TLS = TLSConfig{Enabled: true, CAFile: "/nonexistent/ca.pem"}
	_, err := buildTLSConfig(cfg)
	assert.Error(t, err)
}
