package transfer

import (
	"io"

	"asynchttp/wire"

	"github.com/pkg/errors"
)

// Codecs applies a chain of transfer-codings, in the order they are listed
// on the wire. Grounded on teacher's transfer.CodingPipeliner: chunked is
// built in, callers may register more via NewCodecs(extra).
type Codecs struct {
	coders map[Coding]Coder
}

func NewCodecs(extra []Coder) *Codecs {
	c := &Codecs{coders: map[Coding]Coder{}}
	for _, coder := range extra {
		c.coders[coder.Coding()] = coder
	}
	return c
}

var ErrUnsupportedCoding = errors.New("transfer: unsupported coding")

// Decode wraps r with readers undoing codings, innermost (last on the wire)
// first, trailers written onto trailerStore if the chain ends in chunked.
func (c *Codecs) Decode(r io.Reader, codings []Coding, trailerStore *[]wire.Field) (io.Reader, error) {
	for i := len(codings) - 1; i >= 0; i-- {
		coding := codings[i]

		if coding == Chunked {
			cr := NewChunkedReader(r)
			cr.Trailers = trailerStore
			r = cr
			continue
		}

		coder, ok := c.coders[coding]
		if !ok {
			return nil, ErrUnsupportedCoding
		}
		r = coder.NewReader(r)
	}
	return r, nil
}

// Encode wraps w with writers applying codings, outermost (last on the
// wire) last, matching the order Decode must unwind them in.
func (c *Codecs) Encode(w io.Writer, codings []Coding) (io.WriteCloser, error) {
	var wc io.WriteCloser = nopCloser{w}
	for i := len(codings) - 1; i >= 0; i-- {
		coding := codings[i]

		if coding == Chunked {
			wc = NewChunkedWriter(wc)
			continue
		}

		coder, ok := c.coders[coding]
		if !ok {
			return nil, ErrUnsupportedCoding
		}
		wc = coder.NewWriter(wc)
	}
	return wc, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
