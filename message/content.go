package message

import (
	"bytes"
	"io"
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

// ErrStreamAlreadyConsumed is returned by Content.Open on the second and
// later attempt to read a one-shot body — spec.md §3, §4.1 step 7.
var ErrStreamAlreadyConsumed = errors.New("message: content stream already consumed")

// Content is the lazy, finite, single-shot byte sequence spec.md §3
// describes, plus the fixed header set that travels with it
// (Content-Length, Transfer-Encoding, Content-Type, ...). Opening it twice
// fails with ErrStreamAlreadyConsumed. The once-guard lives behind a
// pointer so Content itself stays an ordinary copyable value — assigning
// one Content to another (e.g. Content: message.Empty()) never copies a
// lock, unlike embedding sync.Mutex directly would.
type Content struct {
	Headers Headers

	state *contentState
}

type contentState struct {
	mu     sync.Mutex
	opened bool
	reader io.ReadCloser
}

func newContent(h Headers, r io.ReadCloser) Content {
	return Content{Headers: h, state: &contentState{reader: r}}
}

// Empty builds a zero-length Content with no headers. Each call allocates
// its own once-guard, so every bodyless request or response gets an
// independent "already consumed" tracker.
func Empty() Content {
	return newContent(Headers{}, nil)
}

// FromReader builds Content whose single read yields r's bytes.
func FromReader(r io.Reader, headers Headers) Content {
	rc, ok := r.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(r)
	}
	return newContent(headers, rc)
}

// FromBytes builds Content with an in-memory body and a Content-Length
// header set to len(b).
func FromBytes(b []byte) Content {
	h := Headers{}
	h.Set("Content-Length", strconv.Itoa(len(b)))
	return newContent(h, io.NopCloser(bytes.NewReader(b)))
}

// Open returns the underlying reader exactly once. Every later call fails
// with ErrStreamAlreadyConsumed. A bare Content{} zero value (bypassing
// every constructor above) has no state and always reads as empty.
func (c *Content) Open() (io.ReadCloser, error) {
	if c.state == nil {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	c.state.mu.Lock()
	defer c.state.mu.Unlock()

	if c.state.opened {
		return nil, ErrStreamAlreadyConsumed
	}
	c.state.opened = true

	if c.state.reader == nil {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	return c.state.reader, nil
}

// IsEmpty reports whether the content carries no body reader at all (the
// Content.empty case from spec.md, e.g. Empty() or a 101 response; a
// 204/304/HEAD response still carries a reader that yields zero bytes).
func (c *Content) IsEmpty() bool {
	return c.state == nil || c.state.reader == nil
}
