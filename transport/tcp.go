package transport

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// TCPDialer is the default Dialer, backed by net.Dialer and, when
// DialOptions.TLS is set, crypto/tls. It plays the role spec.md §6 calls
// the "transport factory" collaborator.
type TCPDialer struct{}

var _ Dialer = TCPDialer{}

func (TCPDialer) Dial(ctx context.Context, addr Addr, opts DialOptions) (Conn, error) {
	tcpAddr, ok := addr.(TCPAddr)
	if !ok {
		return nil, errors.Errorf("transport: unsupported addr type %T", addr)
	}

	dialer := &net.Dialer{}
	raw, err := dialer.DialContext(ctx, "tcp", tcpAddr.String())
	if err != nil {
		return nil, errors.Wrap(err, "dialing tcp")
	}

	if tc, ok := raw.(*net.TCPConn); ok {
		if err := tc.SetNoDelay(opts.TCPNoDelay); err != nil {
			tc.Close()
			return nil, errors.Wrap(err, "setting tcp_nodelay")
		}
		if opts.SendBuf != nil {
			if err := tc.SetWriteBuffer(*opts.SendBuf); err != nil {
				tc.Close()
				return nil, errors.Wrap(err, "setting send buffer")
			}
		}
		if opts.RecvBuf != nil {
			if err := tc.SetReadBuffer(*opts.RecvBuf); err != nil {
				tc.Close()
				return nil, errors.Wrap(err, "setting recv buffer")
			}
		}
	}

	netConn := net.Conn(raw)

	if opts.TLS != nil {
		cfg := &tls.Config{
			ServerName:         opts.TLS.ServerName,
			InsecureSkipVerify: opts.TLS.InsecureSkipVerify,
			RootCAs:            opts.TLS.RootCAs,
		}
		if cfg.ServerName == "" {
			cfg.ServerName = tcpAddr.Host
		}

		tlsConn := tls.Client(netConn, cfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			netConn.Close()
			return nil, errors.Wrap(err, "tls handshake")
		}
		netConn = tlsConn
	}

	return &netConnWrapper{conn: netConn, addr: tcpAddr}, nil
}

// netConnWrapper adapts net.Conn to this package's Conn interface. Read is
// forwarded directly: callers control backpressure by controlling how often
// they call Read, exactly as spec.md's "auto-read is off" collaborator
// contract requires.
type netConnWrapper struct {
	conn net.Conn
	addr TCPAddr

	mu     sync.Mutex
	closed bool
}

var _ Conn = (*netConnWrapper)(nil)

func (w *netConnWrapper) Read(p []byte) (int, error) {
	n, err := w.conn.Read(p)
	if err != nil {
		return n, translateCloseErr(err)
	}
	return n, nil
}

func (w *netConnWrapper) Write(p []byte) (int, error) {
	n, err := w.conn.Write(p)
	if err != nil {
		return n, translateCloseErr(err)
	}
	return n, nil
}

func (w *netConnWrapper) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.conn.Close()
}

func (w *netConnWrapper) LocalAddr() Addr  { return w.addr }
func (w *netConnWrapper) RemoteAddr() Addr { return w.addr }

func (w *netConnWrapper) SetReadDeadLine(t time.Time)  { w.conn.SetReadDeadline(t) }
func (w *netConnWrapper) SetWriteDeadLine(t time.Time) { w.conn.SetWriteDeadline(t) }

func translateCloseErr(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return ErrConnClosed
	}
	return err
}
