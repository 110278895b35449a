package client

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/psql-wire/client/errors"
)

// sslSupported and sslUnsupported are the single-byte replies a backend
// sends to an SSLRequest, before any message framing is in play.
const (
	sslSupported   byte = 'S'
	sslUnsupported byte = 'N'
)

// upgradeTLS performs the client side of a PostgreSQL TLS upgrade: the
// SSLRequest/'S' exchange itself is driven by the connection state machine;
// this only wraps the already-confirmed-SSL-capable net.Conn in a TLS
// client connection and completes its handshake, deriving ServerName from
// host unless host already parses as an IP literal.
func upgradeTLS(ctx context.Context, conn net.Conn, host string, config *tls.Config) (net.Conn, error) {
	cfg := config
	if cfg == nil {
		cfg = &tls.Config{}
	} else {
		cfg = cfg.Clone()
	}

	if cfg.ServerName == "" && net.ParseIP(host) == nil {
		cfg.ServerName = host
	}

	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, errors.New(errors.KindFailedToAddSSLHandler, err)
	}

	return tlsConn, nil
}
