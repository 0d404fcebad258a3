package client

import (
	"context"
	"io"
	"net"
	"time"

	"asynchttp/transport"

	"github.com/pkg/errors"
)

// pipeConn adapts an in-memory net.Conn (from net.Pipe) to transport.Conn,
// mirroring transport.TCPDialer's netConnWrapper so client tests exercise
// the same Conn contract without touching a real socket.
type pipeConn struct {
	net.Conn
}

var _ transport.Conn = pipeConn{}

func (c pipeConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	return n, translatePipeErr(err)
}

func (c pipeConn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	return n, translatePipeErr(err)
}

func (c pipeConn) LocalAddr() transport.Addr  { return pipeAddr{c.Conn.LocalAddr().String()} }
func (c pipeConn) RemoteAddr() transport.Addr { return pipeAddr{c.Conn.RemoteAddr().String()} }

func (c pipeConn) SetReadDeadLine(t time.Time)  { _ = c.Conn.SetReadDeadline(t) }
func (c pipeConn) SetWriteDeadLine(t time.Time) { _ = c.Conn.SetWriteDeadline(t) }

func translatePipeErr(err error) error {
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return transport.ErrConnClosed
	}
	return err
}

type pipeAddr struct{ s string }

func (a pipeAddr) Network() string { return "pipe" }
func (a pipeAddr) String() string  { return a.s }

// fakeDialer hands out net.Pipe pairs: the client side is wrapped and
// returned from Dial, the server side is pushed onto Servers for the test
// to drive by hand.
type fakeDialer struct {
	Servers chan net.Conn

	// DialErr, when set, is returned instead of dialing.
	DialErr error
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{Servers: make(chan net.Conn, 64)}
}

func (d *fakeDialer) Dial(ctx context.Context, addr transport.Addr, opts transport.DialOptions) (transport.Conn, error) {
	if d.DialErr != nil {
		return nil, d.DialErr
	}
	clientSide, serverSide := net.Pipe()
	d.Servers <- serverSide
	return pipeConn{clientSide}, nil
}
