package ioutil

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type LimitReaderTestSuite struct {
	suite.Suite
}

func TestLimitReaderTestSuite(t *testing.T) {
	suite.Run(t, new(LimitReaderTestSuite))
}

func (s *LimitReaderTestSuite) TestLimitsToN() {
	r := LimitReader(strings.NewReader("hello world"), 5)
	got, err := io.ReadAll(r)
	s.Require().NoError(err)
	s.Equal("hello", string(got))
}

func (s *LimitReaderTestSuite) TestZeroLimitIsImmediateEOF() {
	r := LimitReader(strings.NewReader("hello"), 0)
	buf := make([]byte, 1)
	n, err := r.Read(buf)
	s.Zero(n)
	s.ErrorIs(err, io.EOF)
}

func (s *LimitReaderTestSuite) TestUnderlyingShorterThanLimit() {
	r := LimitReader(strings.NewReader("hi"), 100)
	got, err := io.ReadAll(r)
	s.Require().NoError(err)
	s.Equal("hi", string(got))
}
