package message

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type HeadersTestSuite struct {
	suite.Suite
}

func TestHeadersTestSuite(t *testing.T) {
	suite.Run(t, new(HeadersTestSuite))
}

func (s *HeadersTestSuite) TestGetSetAdd() {
	h := Headers{}
	h.Add("content-type", "text/plain")
	h.Add("X-Custom", "one")
	h.Add("x-custom", "two")

	v, ok := h.Get("Content-Type")
	s.True(ok)
	s.Equal("text/plain", v)

	s.Equal([]string{"one", "two"}, h.Values("X-Custom"))

	h.Set("X-Custom", "only")
	s.Equal([]string{"only"}, h.Values("X-Custom"))
}

func (s *HeadersTestSuite) TestDelHas() {
	h := Headers{}
	h.Add("Accept", "*/*")
	s.True(h.Has("accept"))

	h.Del("Accept")
	s.False(h.Has("Accept"))
}

func (s *HeadersTestSuite) TestMergeRequestHeadersWinOverContentHeaders() {
	content := Headers{}
	content.Add("Content-Type", "application/octet-stream")
	content.Add("Content-Length", "10")

	request := Headers{}
	request.Add("Content-Type", "application/json")
	request.Add("Host", "example.com")

	merged := Merge(content, request)

	v, _ := merged.Get("Content-Type")
	s.Equal("application/json", v, "request headers must win on conflict")

	v, _ = merged.Get("Content-Length")
	s.Equal("10", v, "non-conflicting content headers survive")

	v, _ = merged.Get("Host")
	s.Equal("example.com", v)
}

func (s *HeadersTestSuite) TestCloneIsIndependent() {
	h := Headers{}
	h.Add("A", "1")

	clone := h.Clone()
	clone.Add("A", "2")

	s.Equal([]string{"1"}, h.Values("A"))
	s.Equal([]string{"1", "2"}, clone.Values("A"))
}
