package message

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ContentTestSuite struct {
	suite.Suite
}

func TestContentTestSuite(t *testing.T) {
	suite.Run(t, new(ContentTestSuite))
}

func (s *ContentTestSuite) TestOpenOnceThenFails() {
	c := FromReader(strings.NewReader("hello"), Headers{})

	r, err := c.Open()
	s.Require().NoError(err)

	data, err := io.ReadAll(r)
	s.Require().NoError(err)
	s.Equal("hello", string(data))

	_, err = c.Open()
	s.ErrorIs(err, ErrStreamAlreadyConsumed)
}

func (s *ContentTestSuite) TestFromBytesSetsContentLength() {
	c := FromBytes([]byte("abc"))
	v, ok := c.Headers.Get("Content-Length")
	s.True(ok)
	s.Equal("3", v)

	r, err := c.Open()
	s.Require().NoError(err)
	data, err := io.ReadAll(r)
	s.Require().NoError(err)
	s.Equal("abc", string(data))
}

func (s *ContentTestSuite) TestEmptyOpensToZeroBytes() {
	c := Empty()
	r, err := c.Open()
	s.Require().NoError(err)
	data, err := io.ReadAll(r)
	s.Require().NoError(err)
	s.Empty(data)
	s.True(c.IsEmpty())
}
