// Package transport provides the duplex byte channel the client dials and
// drives connections over. It deliberately knows nothing about HTTP; the
// codec and connection layers own framing.
package transport

import (
	"context"
	"crypto/x509"
	"errors"
	"time"
)

var (
	// ErrConnClosed is returned by Read/Write once the connection has been
	// closed locally. A close by the peer surfaces as io.EOF from Read.
	ErrConnClosed = errors.New("transport: connection is closed")
)

// Conn is a duplex byte channel to a single remote authority. Reads are
// demand-driven: nothing is read off the wire until Read is called, so a
// slow consumer naturally backpressures the peer.
type Conn interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error

	LocalAddr() Addr
	RemoteAddr() Addr

	SetReadDeadLine(t time.Time)
	SetWriteDeadLine(t time.Time)
}

// Addr identifies one endpoint of a Conn.
type Addr interface {
	Network() string
	String() string
}

// Dialer opens new Conns to an Addr. Scheme determines whether a TLS
// session is layered on top of the raw TCP stream.
type Dialer interface {
	Dial(ctx context.Context, addr Addr, opts DialOptions) (Conn, error)
}

// DialOptions mirrors spec.md §6's "Transport factory" interface.
type DialOptions struct {
	TCPNoDelay bool
	SendBuf    *int
	RecvBuf    *int

	// TLS, when non-nil, is layered on the dialed TCP connection.
	TLS *TLSOptions
}

// TLSOptions configures the TLS session provider collaborator.
type TLSOptions struct {
	ServerName         string
	InsecureSkipVerify bool
	RootCAs            *x509.CertPool
}
