package wire

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// ResponseDecoder parses a response head off a transport reader and leaves
// Body positioned at the first body byte. It never interprets
// Content-Length/Transfer-Encoding itself — spec.md scopes body framing
// policy to the message layer, not the codec.
type ResponseDecoder struct {
	br *bufio.Reader
}

func NewResponseDecoder(r io.Reader) *ResponseDecoder {
	return &ResponseDecoder{br: bufio.NewReader(r)}
}

var (
	ErrMalformedStatusLine = errors.New("wire: malformed status line")
	ErrMalformedFieldLine  = errors.New("wire: malformed field line")
)

// Decode reads one response head (status line + headers) and wires Body to
// the remainder of the underlying stream.
func (d *ResponseDecoder) Decode() (Response, error) {
	var res Response

	line, err := d.readLine()
	if err != nil {
		return Response{}, errors.Wrap(err, "reading status line")
	}
	res.StatusLine, err = parseStatusLine(line)
	if err != nil {
		return Response{}, err
	}

	for {
		line, err := d.readLine()
		if err != nil {
			return Response{}, errors.Wrap(err, "reading header field")
		}
		if len(line) == 0 {
			break
		}
		field, err := ParseField(line)
		if err != nil {
			return Response{}, ErrMalformedFieldLine
		}
		res.Headers = append(res.Headers, field)
	}

	res.Body = d.br

	return res, nil
}

// BufferedUpgradeBytes drains and returns bytes already buffered by the
// decoder's reader beyond the head it just decoded — the buffer-handoff
// spec.md §9 requires so an upgrade doesn't lose bytes the codec read
// ahead of the 101 terminator.
func (d *ResponseDecoder) BufferedUpgradeBytes() ([]byte, error) {
	n := d.br.Buffered()
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	_, err := io.ReadFull(d.br, buf)
	return buf, err
}

func (d *ResponseDecoder) readLine() ([]byte, error) {
	line, err := d.br.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	line = bytes.TrimSuffix(line, []byte{'\n'})
	line = bytes.TrimSuffix(line, []byte{'\r'})
	return line, nil
}

func parseStatusLine(line []byte) (StatusLine, error) {
	parts := bytes.SplitN(line, []byte{' '}, 3)
	if len(parts) < 2 {
		return StatusLine{}, ErrMalformedStatusLine
	}

	ver, err := ParseVersion(parts[0])
	if err != nil {
		return StatusLine{}, errors.Wrap(err, "parsing version")
	}

	code, err := strconv.Atoi(string(parts[1]))
	if err != nil {
		return StatusLine{}, ErrMalformedStatusLine
	}

	reason := ""
	if len(parts) == 3 {
		reason = string(parts[2])
	}

	return StatusLine{Version: ver, StatusCode: code, ReasonPhrase: reason}, nil
}
