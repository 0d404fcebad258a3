// Package client is the public surface spec.md §2 describes: a Client bound
// to one authority, backed by a bounded Pool of per-connection state
// machines. Grounded on teacher's application/http/actor/client package.
package client

import (
	"context"
	"io"
	"log/slog"

	"asynchttp/message"
	"asynchttp/transfer"
	"asynchttp/transport"

	"github.com/benbjohnson/clock"
)

// maxRedirects bounds automatic redirect-following — an Open Question
// spec.md left unresolved; see DESIGN.md.
const maxRedirects = 10

// Client is spec.md §2's facade: one Client binds one Pool to one
// authority and exposes request/response operations over it.
type Client struct {
	pool   *Pool
	opts   Options
	logger *slog.Logger
}

// New builds a Client for opts.Host:opts.Port. A nil dialer defaults to
// transport.TCPDialer{}; a nil logger to slog.Default(); a nil clock to the
// real wall clock.
func New(opts Options, dialer transport.Dialer, logger *slog.Logger, clk clock.Clock) *Client {
	defaults := DefaultOptions()
	if opts.MaxConnections == 0 {
		opts.MaxConnections = defaults.MaxConnections
	}
	if opts.MaxWaiters == 0 {
		opts.MaxWaiters = defaults.MaxWaiters
	}
	if opts.Scheme == "" {
		opts.Scheme = defaults.Scheme
	}
	if dialer == nil {
		dialer = transport.TCPDialer{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.New()
	}

	addr := transport.TCPAddr{Host: opts.Host, Port: opts.Port}
	codecs := transfer.NewCodecs(opts.ExtraTransferCoders)

	return &Client{
		pool:   newPool(addr, dialer, codecs, logger, clk, opts),
		opts:   opts,
		logger: logger,
	}
}

// Do sends req and returns once the response head has arrived. The caller
// owns the response body: Open it, read it, and Close it (or use Run /
// RunAndStop, which do this for you) — closing is what returns the
// connection to the pool.
func (cl *Client) Do(ctx context.Context, req *message.Request) (*message.Response, error) {
	if !req.Headers.Has("Host") {
		return nil, ErrHostHeaderMissing
	}

	c, err := cl.pool.acquire(ctx)
	if err != nil {
		return nil, err
	}

	return cl.sendSafely(ctx, c, req)
}

// sendSafely recovers an invariant-violation panic raised by conn.send
// (spec.md §7) and reports it as a PanicError instead of crashing the
// caller's goroutine.
func (cl *Client) sendSafely(ctx context.Context, c *conn, req *message.Request) (resp *message.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*PanicError); ok {
				err = pe
				return
			}
			err = newPanicError(r)
		}
	}()
	return c.send(ctx, req)
}

// DoFollowingRedirects is Do plus spec.md §4.3's redirect-following: only
// GET requests are followed automatically, bounded at maxRedirects hops.
func (cl *Client) DoFollowingRedirects(ctx context.Context, req *message.Request) (*message.Response, error) {
	current := req

	for hop := 0; ; hop++ {
		resp, err := cl.Do(ctx, current)
		if err != nil {
			return nil, err
		}
		if !resp.IsRedirect() {
			return resp, nil
		}
		if current.Method != "GET" {
			drain(resp)
			return nil, ErrAutoRedirectNotSupported
		}

		location, ok := resp.Headers.Get("Location")
		if !ok {
			return resp, nil
		}
		drain(resp)

		if hop >= maxRedirects {
			return nil, ErrTooManyRedirects
		}

		current = &message.Request{
			Method:  "GET",
			Path:    location,
			Headers: current.Headers.Clone(),
			Content: message.Empty(),
		}
	}
}

// Run is spec.md §4.3's scripted entrypoint: it opens the body, runs
// script, and drains+closes it afterward regardless of script's outcome —
// script's own error is what's reported, after the drain has happened.
func (cl *Client) Run(ctx context.Context, req *message.Request, followRedirects bool, script func(*message.Response, io.Reader) error) (err error) {
	var resp *message.Response
	if followRedirects {
		resp, err = cl.DoFollowingRedirects(ctx, req)
	} else {
		resp, err = cl.Do(ctx, req)
	}
	if err != nil {
		return err
	}

	body, err := resp.Content.Open()
	if err != nil {
		return err
	}

	scriptErr := script(resp, body)

	_, drainErr := io.Copy(io.Discard, body)
	closeErr := body.Close()

	if scriptErr != nil {
		return scriptErr
	}
	if drainErr != nil {
		return drainErr
	}
	return closeErr
}

// RunAndStop is Run followed by an unconditional Stop, for one-shot callers
// that never intend to send a second request on this Client.
func (cl *Client) RunAndStop(ctx context.Context, req *message.Request, followRedirects bool, script func(*message.Response, io.Reader) error) error {
	defer cl.Stop()
	return cl.Run(ctx, req, followRedirects, script)
}

// Stop closes every connection this Client holds and fails every queued or
// future acquire with ErrClientAlreadyClosed.
func (cl *Client) Stop() {
	cl.pool.stop()
}

func drain(resp *message.Response) {
	body, err := resp.Content.Open()
	if err != nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
