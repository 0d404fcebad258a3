package wire

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

var crlf = []byte{'\r', '\n'}

// RequestEncoder serializes a Request onto a transport writer: request
// line, headers, a blank line, then the body streamed through unbuffered
// once the head is flushed — grounded on teacher's encoder.go sequencing
// ("flush head before body").
type RequestEncoder struct {
	bw *bufio.Writer
}

func NewRequestEncoder(w io.Writer) *RequestEncoder {
	return &RequestEncoder{bw: bufio.NewWriter(w)}
}

func (e *RequestEncoder) Encode(req Request) error {
	if err := e.writeLine(requestLineBytes(req.RequestLine)); err != nil {
		return errors.Wrap(err, "writing request line")
	}

	for _, f := range req.Headers {
		if err := e.writeLine(f.Text()); err != nil {
			return errors.Wrap(err, "writing field")
		}
	}
	if err := e.writeLine(nil); err != nil {
		return errors.Wrap(err, "writing header terminator")
	}

	if err := e.bw.Flush(); err != nil {
		return errors.Wrap(err, "flushing request line and headers")
	}

	if req.Body != nil {
		if _, err := io.Copy(e.bw, req.Body); err != nil {
			return errors.Wrap(err, "writing request body")
		}
	}

	if err := e.bw.Flush(); err != nil {
		return errors.Wrap(err, "flushing request body")
	}

	return nil
}

func (e *RequestEncoder) writeLine(line []byte) error {
	if _, err := e.bw.Write(line); err != nil {
		return err
	}
	_, err := e.bw.Write(crlf)
	return err
}

func requestLineBytes(rl RequestLine) []byte {
	buf := bytes.NewBuffer(nil)
	buf.WriteString(rl.Method)
	buf.WriteByte(' ')
	buf.WriteString(rl.Target)
	buf.WriteByte(' ')
	buf.Write(rl.Version.Text())
	return buf.Bytes()
}
