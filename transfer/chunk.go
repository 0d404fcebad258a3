// Package transfer implements HTTP/1.1 transfer-codings (spec.md §3's
// "Transfer-Encoding" content header and the Content boundary cases in
// §4.1 step 7) layered over whatever raw byte reader/writer the codec
// and connection hand it.
package transfer

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"asynchttp/wire"

	"github.com/pkg/errors"
)

const Chunked Coding = "chunked"

type Coding string

// Coder is a pluggable transfer-coding, the same shape teacher's
// transfer.Coder uses so custom codings can be registered alongside chunked.
type Coder interface {
	Coding() Coding
	NewReader(r io.Reader) io.Reader
	NewWriter(w io.Writer) io.WriteCloser
}

var crlf = []byte{'\r', '\n'}

// ChunkedReader decodes "chunked" framing into the underlying byte stream,
// stopping at the zero-size terminal chunk (and any trailer fields, which
// are discarded onto Trailers if non-nil).
type ChunkedReader struct {
	br    *bufio.Reader
	Trailers *[]wire.Field

	remaining uint64
	started   bool
	done      bool
}

var _ io.Reader = (*ChunkedReader)(nil)

func NewChunkedReader(r io.Reader) *ChunkedReader {
	return &ChunkedReader{br: bufio.NewReader(r)}
}

func (cr *ChunkedReader) Read(p []byte) (int, error) {
	if cr.done {
		return 0, io.EOF
	}

	if cr.remaining == 0 {
		if cr.started {
			if err := expectCRLF(cr.br); err != nil {
				return 0, errors.Wrap(err, "reading chunk delimiter")
			}
		}
		cr.started = true

		size, err := cr.readChunkSize()
		if err != nil {
			return 0, errors.Wrap(err, "reading chunk size")
		}
		if size == 0 {
			if err := cr.readTrailers(); err != nil {
				return 0, errors.Wrap(err, "reading trailers")
			}
			cr.done = true
			return 0, io.EOF
		}
		cr.remaining = size
	}

	if uint64(len(p)) > cr.remaining {
		p = p[:cr.remaining]
	}

	n, err := cr.br.Read(p)
	cr.remaining -= uint64(n)
	if err != nil {
		return n, errors.Wrap(err, "reading chunk data")
	}

	return n, nil
}

func (cr *ChunkedReader) readChunkSize() (uint64, error) {
	line, err := readLine(cr.br)
	if err != nil {
		return 0, err
	}
	sizeRaw, _, _ := bytes.Cut(line, []byte{';'}) // ignore chunk-extensions
	sizeRaw = bytes.TrimSpace(sizeRaw)

	size, err := strconv.ParseUint(string(sizeRaw), 16, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing chunk size %q", sizeRaw)
	}
	return size, nil
}

func (cr *ChunkedReader) readTrailers() error {
	var fields []wire.Field
	for {
		line, err := readLine(cr.br)
		if err != nil {
			return err
		}
		if len(line) == 0 {
			break
		}
		f, err := wire.ParseField(line)
		if err != nil {
			return err
		}
		fields = append(fields, f)
	}
	if cr.Trailers != nil {
		*cr.Trailers = fields
	}
	return nil
}

// ChunkedWriter encodes outbound bytes as "chunked" framing; Close writes
// the terminal zero-size chunk.
type ChunkedWriter struct {
	w io.Writer
}

var _ io.WriteCloser = (*ChunkedWriter)(nil)

func NewChunkedWriter(w io.Writer) *ChunkedWriter {
	return &ChunkedWriter{w: w}
}

func (cw *ChunkedWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if err := writeLine(cw.w, []byte(strconv.FormatUint(uint64(len(p)), 16))); err != nil {
		return 0, errors.Wrap(err, "writing chunk size")
	}
	if _, err := cw.w.Write(p); err != nil {
		return 0, errors.Wrap(err, "writing chunk data")
	}
	if _, err := cw.w.Write(crlf); err != nil {
		return 0, errors.Wrap(err, "writing chunk terminator")
	}

	return len(p), nil
}

func (cw *ChunkedWriter) Close() error {
	if err := writeLine(cw.w, []byte("0")); err != nil {
		return errors.Wrap(err, "writing last chunk")
	}
	if _, err := cw.w.Write(crlf); err != nil {
		return errors.Wrap(err, "writing trailer terminator")
	}
	return nil
}

func expectCRLF(br *bufio.Reader) error {
	var buf [2]byte
	if _, err := io.ReadFull(br, buf[:]); err != nil {
		return err
	}
	if !bytes.Equal(buf[:], crlf) {
		return errors.New("transfer: expected CRLF chunk delimiter")
	}
	return nil
}

func writeLine(w io.Writer, line []byte) error {
	if _, err := w.Write(line); err != nil {
		return err
	}
	_, err := w.Write(crlf)
	return err
}

func readLine(br *bufio.Reader) ([]byte, error) {
	line, err := br.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	line = bytes.TrimSuffix(line, []byte{'\n'})
	line = bytes.TrimSuffix(line, []byte{'\r'})
	return line, nil
}
