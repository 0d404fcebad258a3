package client

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"asynchttp/message"
	"asynchttp/message/status"
	"asynchttp/transfer"
	"asynchttp/transport"
	"asynchttp/wire"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

var nextConnID atomic.Uint64

// chunkMsg is one item of the body_queue spec.md §4.1 step 8 describes: a
// slice of body bytes, or a terminal error (io.EOF on a clean end of
// message).
type chunkMsg struct {
	data []byte
	err  error
}

// conn is one pooled connection: the Idle/Writing/Reading-Head/
// Reading-Body/Upgraded state machine spec.md §2 and §4.1 describe.
// Grounded on teacher's actor/client/conn.go, with the pipelining machinery
// (ongoings queue, seats, maxSeats) dropped since spec.md disallows
// pipelining outright — concurrentUses is a strict 0/1 flag, not a count.
type conn struct {
	id uint64

	transportConn transport.Conn
	addr          transport.Addr

	dec    *wire.ResponseDecoder
	codecs *transfer.Codecs

	logger *slog.Logger
	clock  clock.Clock

	opts Options

	concurrentUses int32 // atomic 0/1 — spec.md §4.1's concurrent_uses invariant

	mu       sync.Mutex
	closing  bool
	upgraded bool
	idleAt   time.Time

	// onIdle hands the connection back to the pool once it becomes reusable
	// (body fully framed, no Connection: close). onDestroy removes it from
	// the pool's bookkeeping once its transport is gone for good. Both are
	// wired by the pool at dial time; conn never imports the pool type.
	onIdle    func(*conn)
	onDestroy func(*conn)
}

func newConn(transportConn transport.Conn, addr transport.Addr, codecs *transfer.Codecs, logger *slog.Logger, clk clock.Clock, opts Options, onIdle, onDestroy func(*conn)) *conn {
	return &conn{
		id:            nextConnID.Add(1),
		transportConn: transportConn,
		addr:          addr,
		dec:           wire.NewResponseDecoder(transportConn),
		codecs:        codecs,
		logger:        logger,
		clock:         clk,
		opts:          opts,
		onIdle:        onIdle,
		onDestroy:     onDestroy,
	}
}

func (c *conn) isOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closing
}

func (c *conn) markIdle() {
	c.mu.Lock()
	c.idleAt = c.clock.Now()
	c.mu.Unlock()
}

func (c *conn) idleTimeoutExceeded(timeout time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.idleAt.IsZero() {
		return false
	}
	return c.clock.Since(c.idleAt) >= timeout
}

// close is idempotent: only the first caller actually tears down the
// transport and fires onDestroy.
func (c *conn) close(cause error) {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return
	}
	c.closing = true
	c.mu.Unlock()

	if cause != nil && c.logger != nil {
		c.logger.Debug("closing connection", "conn_id", c.id, "cause", cause)
	}

	_ = c.transportConn.Close()

	if c.onDestroy != nil {
		c.onDestroy(c)
	}
}

// send is spec.md §4.1's full request/response sequence: it guards the
// concurrent_uses precondition, writes the request, blocks for the response
// head, and arms either a streaming body or an upgrade capability on the
// returned Response. It returns once the head has arrived (or failed) —
// the body is then streamed by its own goroutine, one chunk at a time as
// the caller reads it.
func (c *conn) send(ctx context.Context, req *message.Request) (*message.Response, error) {
	if !atomic.CompareAndSwapInt32(&c.concurrentUses, 0, 1) {
		// Violating the one-outstanding-request invariant is a programming
		// fault, not a protocol error — spec.md §7.
		c.close(errors.New("connection reused while a request was outstanding"))
		panic(newPanicError("conn.send called while concurrent_uses was already 1"))
	}

	resetUse := func() { atomic.StoreInt32(&c.concurrentUses, 0) }

	body, err := req.Content.Open()
	if err != nil {
		resetUse()
		return nil, err
	}

	bodyForWire, finishWrite := c.prepareRequestBody(req, body)

	version := wire.HTTP11
	wireReq := req.ToWire(version, bodyForWire)

	enc := wire.NewRequestEncoder(c.transportConn)
	if err := enc.Encode(wireReq); err != nil {
		resetUse()
		c.close(errors.Wrap(err, "writing request"))
		return nil, errors.Wrap(ErrWrite, err.Error())
	}
	if finishWrite != nil {
		if err := finishWrite(); err != nil {
			resetUse()
			c.close(errors.Wrap(err, "encoding request body"))
			return nil, errors.Wrap(ErrWrite, err.Error())
		}
	}

	wireRes, err := c.dec.Decode()
	if err != nil {
		resetUse()
		c.close(errors.Wrap(err, "reading response head"))
		if errors.Is(err, io.EOF) || errors.Is(err, transport.ErrConnClosed) {
			return nil, ErrConnectionClosed
		}
		return nil, err
	}

	headers := message.FieldsFrom(wireRes.Headers)
	reasonPhrase := wireRes.ReasonPhrase
	if !c.opts.Receive.UseReceivedReasonPhrase {
		if s, ok := status.FromCode(wireRes.StatusCode); ok {
			reasonPhrase = s.ReasonPhrase
		}
	}

	resp := &message.Response{
		Status:  status.Status{Code: wireRes.StatusCode, ReasonPhrase: reasonPhrase},
		Headers: headers,
	}
	if dateStr, ok := headers.Get("Date"); ok {
		if t, parseErr := time.Parse(time.RFC1123, dateStr); parseErr == nil {
			resp.Date = t
		}
	}

	if wireRes.StatusCode == status.SwitchingProtocols.Code {
		buffered, bufErr := c.dec.BufferedUpgradeBytes()
		if bufErr != nil {
			resetUse()
			c.close(errors.Wrap(bufErr, "draining upgrade buffer"))
			return nil, ErrConnectionClosed
		}
		c.mu.Lock()
		c.upgraded = true
		c.mu.Unlock()
		resp.Content = message.Empty()
		resp.Upgrade = c.armUpgrade(buffered)
		return resp, nil
	}

	connectionClose := headerHasToken(headers, "Connection", "close") ||
		headerHasToken(req.Headers, "Connection", "close")

	rawBody, decErr := c.selectBodyReader(req.Method, wireRes.StatusCode, headers, wireRes.Body)
	if decErr != nil {
		resetUse()
		c.close(errors.Wrap(decErr, "selecting response body framing"))
		return nil, decErr
	}

	chunks := make(chan chunkMsg)
	go c.runBodyPump(rawBody, chunks, func(pumpErr error) {
		resetUse()
		switch {
		case pumpErr != nil && pumpErr != io.EOF:
			c.close(errors.Wrap(pumpErr, "reading response body"))
		case connectionClose:
			c.close(nil)
		default:
			c.markIdle()
			if c.onIdle != nil {
				c.onIdle(c)
			}
		}
	})

	resp.Content = message.FromReader(&bodyStream{chunks: chunks}, contentHeaders(headers))

	return resp, nil
}

// prepareRequestBody wires req's Transfer-Encoding (if any) into a chunked
// writer ahead of the wire encoder's plain io.Copy, matching teacher's
// conn.go writeRequest. finishWrite is nil when no extra framing is needed.
func (c *conn) prepareRequestBody(req *message.Request, body io.ReadCloser) (io.Reader, func() error) {
	te, _ := req.Content.Headers.Get("Transfer-Encoding")
	if te == "" {
		te, _ = req.Headers.Get("Transfer-Encoding")
	}
	if te == "" {
		return body, nil
	}

	codings := parseCodings(te)
	pr, pw := io.Pipe()

	wc, err := c.codecs.Encode(pw, codings)
	if err != nil {
		return body, func() error { return err }
	}

	done := make(chan error, 1)
	go func() {
		_, copyErr := io.Copy(wc, body)
		if copyErr == nil {
			copyErr = wc.Close()
		}
		pw.CloseWithError(copyErr)
		done <- copyErr
	}()

	return pr, func() error { return <-done }
}

// selectBodyReader picks the body framing per
// https://datatracker.ietf.org/doc/html/rfc9112#section-6.3, grounded on
// teacher's conn.go readResponse.
func (c *conn) selectBodyReader(method string, statusCode int, headers message.Headers, raw io.Reader) (io.Reader, error) {
	if method == "HEAD" || statusCode == 204 || statusCode == 304 || (statusCode >= 100 && statusCode < 200) {
		return bytes.NewReader(nil), nil
	}

	if te, ok := headers.Get("Transfer-Encoding"); ok && te != "" {
		codings := parseCodings(te)
		decoded, err := c.codecs.Decode(raw, codings, nil)
		if err != nil {
			return nil, err
		}
		if len(codings) > 0 && codings[len(codings)-1] == transfer.Chunked {
			return decoded, nil
		}
		return &connClosedReader{r: decoded}, nil
	}

	if cl, ok := headers.Get("Content-Length"); ok {
		n, err := parseContentLength(cl)
		if err != nil {
			return nil, errors.Wrap(err, "parsing Content-Length")
		}
		return ioutilLimitReader(raw, n), nil
	}

	return &connClosedReader{r: raw}, nil
}

// runBodyPump drains body off the wire into chunks, one read at a time, only
// requesting the next read once the previous chunk has been accepted
// downstream — the backpressure hook spec.md §4.1 step 9 describes. finish
// is called exactly once with io.EOF on a clean end of message, or the
// read error otherwise, and before the terminal chunk is sent, so a reader
// that has seen the end of the body finds the connection already released.
func (c *conn) runBodyPump(body io.Reader, chunks chan<- chunkMsg, finish func(error)) {
	buf := make([]byte, 32*1024)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			cp := append([]byte(nil), buf[:n]...)
			chunks <- chunkMsg{data: cp}
		}
		if err != nil {
			finish(err)
			if err == io.EOF {
				chunks <- chunkMsg{err: io.EOF}
			} else {
				chunks <- chunkMsg{err: err}
			}
			return
		}
	}
}

// armUpgrade builds the Response.Upgrade capability spec.md §9 requires:
// a single-use gate over a raw-byte passthrough, seeded with whatever bytes
// the decoder had already buffered past the 101 terminator.
func (c *conn) armUpgrade(buffered []byte) message.UpgradeFunc {
	var used int32

	return func(upstream io.Reader) (io.ReadCloser, error) {
		if !atomic.CompareAndSwapInt32(&used, 0, 1) {
			return nil, message.ErrStreamAlreadyConsumed
		}

		combined := io.MultiReader(bytes.NewReader(buffered), &connClosedReader{r: c.transportConn})

		chunks := make(chan chunkMsg)
		go c.runBodyPump(combined, chunks, func(error) {
			c.close(nil) // upgraded connections are never returned to the pool
		})

		go func() {
			if _, err := io.Copy(c.transportConn, upstream); err != nil {
				c.close(errors.Wrap(err, "writing upgrade upstream"))
			}
		}()

		return &bodyStream{chunks: chunks}, nil
	}
}

// bodyStream is the reader half of a response's Content: a sequential
// consumer of chunks, with Close forcing a drain to the release edge
// (spec.md §4.1 step 7c) regardless of how much the caller actually read —
// this is what lets an abandoned body still free the connection for reuse.
type bodyStream struct {
	chunks <-chan chunkMsg

	mu       sync.Mutex
	leftover []byte
	err      error
	closed   bool
}

var _ io.ReadCloser = (*bodyStream)(nil)

func (b *bodyStream) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(b.leftover) == 0 && b.err == nil {
		msg, ok := <-b.chunks
		if !ok {
			b.err = io.ErrClosedPipe
			break
		}
		if msg.err != nil {
			b.err = msg.err
			break
		}
		b.leftover = msg.data
	}

	if len(b.leftover) > 0 {
		n := copy(p, b.leftover)
		b.leftover = b.leftover[n:]
		return n, nil
	}

	if b.err == io.EOF {
		return 0, io.EOF
	}
	return 0, b.err
}

func (b *bodyStream) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	scratch := make([]byte, 32*1024)
	for {
		if _, err := b.Read(scratch); err != nil {
			break
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil && b.err != io.EOF {
		return b.err
	}
	return nil
}

// connClosedReader surfaces transport.ErrConnClosed as io.EOF, for bodies
// delimited by the peer closing the connection rather than by framing.
type connClosedReader struct{ r io.Reader }

func (r *connClosedReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if errors.Is(err, transport.ErrConnClosed) {
		return n, io.EOF
	}
	return n, err
}
