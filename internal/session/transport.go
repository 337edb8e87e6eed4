package session

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strconv"

	"github.com/gorilla/websocket"
)

// Transport is the byte-stream boundary to the relay. The codec is
// transport-agnostic: it only appends received bytes and writes command
// lines.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a transport for one connection attempt.
type Dialer func(ctx context.Context, cfg Config) (Transport, error)

// Dial is the default dialer: plain TCP, TLS-wrapped TCP, or the relay's
// WebSocket endpoint, per config.
func Dial(ctx context.Context, cfg Config) (Transport, error) {
	if cfg.WebSocket {
		return dialWebSocket(ctx, cfg)
	}
	return dialStream(ctx, cfg)
}

func dialStream(ctx context.Context, cfg Config) (Transport, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	d := net.Dialer{Timeout: cfg.ConnectTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrConnectionClosed, addr, err)
	}
	if !cfg.TLS.Enabled {
		return conn, nil
	}

	tlsCfg, err := buildTLSConfig(cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	tlsConn := tls.Client(conn, tlsCfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: tls handshake: %v", ErrConnectionClosed, err)
	}
	return tlsConn, nil
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	out := &tls.Config{
		ServerName:         cfg.TLS.ServerName,
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
	}
	if out.ServerName == "" {
		out.ServerName = cfg.Host
	}
	if cfg.TLS.CAFile != "" {
		pem, err := os.ReadFile(cfg.TLS.CAFile)
		if err != nil {
			return nil, fmt.Errorf("session: read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("session: no certificates in %s", cfg.TLS.CAFile)
		}
		out.RootCAs = pool
	}
	if cfg.TLS.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("session: load client keypair: %w", err)
		}
		out.Certificates = []tls.Certificate{cert}
	}
	return out, nil
}

func dialWebSocket(ctx context.Context, cfg Config) (Transport, error) {
	scheme := "ws"
	dialer := websocket.Dialer{HandshakeTimeout: cfg.ConnectTimeout}
	if cfg.TLS.Enabled {
		scheme = "wss"
		tlsCfg, err := buildTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		dialer.TLSClientConfig = tlsCfg
	}
	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   cfg.WebSocketPath,
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrConnectionClosed, u.String(), err)
	}
	return &wsTransport{conn: conn}, nil
}

// wsTransport adapts a WebSocket connection to the byte-stream contract.
// The relay sends binary frames; their payloads are consumed as a stream.
type wsTransport struct {
	conn   *websocket.Conn
	reader io.Reader
}

func (t *wsTransport) Read(p []byte) (int, error) {
	for {
		if t.reader == nil {
			_, r, err := t.conn.NextReader()
			if err != nil {
				return 0, err
			}
			t.reader = r
		}
		n, err := t.reader.Read(p)
		if err == io.EOF {
			t.reader = nil
			if n == 0 {
				continue
			}
			return n, nil
		}
		return n, err
	}
}

func (t *wsTransport) Write(p []byte) (int, error) {
	if err := t.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
