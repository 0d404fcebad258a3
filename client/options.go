package client

import (
	"time"

	"asynchttp/transfer"
	"asynchttp/transport"
)

// Options is spec.md §6's configuration surface: one Options binds a Client
// to a single authority (host:port/scheme), grounded on teacher's
// actor/client/options.go, reshaped from teacher's per-address map-of-pools
// knobs (MaxOpenConnsPerHost, pipelining) to this module's single-authority,
// no-pipelining pool.
type Options struct {
	Scheme string // "http" or "https"
	Host   string
	Port   uint16
	TLS    *transport.TLSOptions

	// MaxConnections bounds live connections to this authority. Zero means
	// DefaultOptions' default (20), not "unbounded".
	MaxConnections uint
	// MaxWaiters bounds the FIFO queue of acquire calls once MaxConnections
	// is saturated; exceeding it fails with ErrTooManyWaiters.
	MaxWaiters uint

	Conn    ConnOptions
	Send    SendOptions
	Receive ReceiveOptions
	Timeout TimeoutOptions

	ExtraTransferCoders []transfer.Coder

	// DebugLogger is spec.md §6's "debug" logger-name knob. Nothing in this
	// module reads it: all logging goes to the *slog.Logger passed to New
	// (slog.Default() when that is nil), and no wire-level tracing is
	// emitted.
	DebugLogger string
}

type ConnOptions struct {
	TCPNoDelay bool
	SendBuf    *int
	RecvBuf    *int
}

type SendOptions struct{}

type ReceiveOptions struct {
	// UseReceivedReasonPhrase keeps the server's reason phrase verbatim.
	// If false, it's replaced by the canonical phrase for the status code —
	// reference: https://datatracker.ietf.org/doc/html/rfc9112#section-4-9
	UseReceivedReasonPhrase bool
}

type TimeoutOptions struct {
	IdleTimeout time.Duration
}

// DefaultOptions mirrors the defaults spec.md §6 calls out.
func DefaultOptions() Options {
	return Options{
		Scheme:         "http",
		MaxConnections: 20,
		MaxWaiters:     100,
		Conn:           ConnOptions{TCPNoDelay: true},
	}
}
