package transfer

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/suite"
)

type CodecsTestSuite struct {
	suite.Suite
}

func TestCodecsTestSuite(t *testing.T) {
	suite.Run(t, new(CodecsTestSuite))
}

func (s *CodecsTestSuite) TestEncodeDecodeChunked() {
	codecs := NewCodecs(nil)

	var buf bytes.Buffer
	wc, err := codecs.Encode(&buf, []Coding{Chunked})
	s.Require().NoError(err)

	_, err = wc.Write([]byte("payload"))
	s.Require().NoError(err)
	s.Require().NoError(wc.Close())

	r, err := codecs.Decode(&buf, []Coding{Chunked}, nil)
	s.Require().NoError(err)

	got, err := io.ReadAll(r)
	s.Require().NoError(err)
	s.Equal("payload", string(got))
}

func (s *CodecsTestSuite) TestDecodeUnsupportedCoding() {
	codecs := NewCodecs(nil)
	_, err := codecs.Decode(bytes.NewReader(nil), []Coding{"gzip"}, nil)
	s.ErrorIs(err, ErrUnsupportedCoding)
}

type upperCoder struct{}

func (upperCoder) Coding() Coding { return "upper" }
func (upperCoder) NewReader(r io.Reader) io.Reader {
	return r // identity for this test; only exercising registration plumbing
}
func (upperCoder) NewWriter(w io.Writer) io.WriteCloser {
	return nopCloser{w}
}

func (s *CodecsTestSuite) TestExtraCoderRegistration() {
	codecs := NewCodecs([]Coder{upperCoder{}})

	var buf bytes.Buffer
	wc, err := codecs.Encode(&buf, []Coding{"upper"})
	s.Require().NoError(err)
	_, err = wc.Write([]byte("x"))
	s.Require().NoError(err)
	s.Require().NoError(wc.Close())
	s.Equal("x", buf.String())
}
