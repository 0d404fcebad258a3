package message

import (
	"io"
	"testing"

	"asynchttp/wire"

	"github.com/stretchr/testify/suite"
)

type RequestTestSuite struct {
	suite.Suite
}

func TestRequestTestSuite(t *testing.T) {
	suite.Run(t, new(RequestTestSuite))
}

func (s *RequestTestSuite) TestTarget() {
	r := Request{Path: "/a/b"}
	s.Equal("/a/b", r.Target())

	r.Query = "x=1"
	s.Equal("/a/b?x=1", r.Target())
}

func (s *RequestTestSuite) TestToWireMergesHeaders() {
	content := FromBytes([]byte("body"))

	r := Request{
		Method:  "POST",
		Path:    "/upload",
		Headers: NewHeaders([2]string{"Host", "example.com"}),
		Content: content,
	}

	body, err := r.Content.Open()
	s.Require().NoError(err)

	wireReq := r.ToWire(wire.HTTP11, body)
	s.Equal("POST", wireReq.Method)
	s.Equal("/upload", wireReq.Target)

	var names []string
	for _, f := range wireReq.Headers {
		names = append(names, string(f.Name))
	}
	s.Contains(names, "Content-Length")
	s.Contains(names, "Host")

	read, err := io.ReadAll(wireReq.Body)
	s.Require().NoError(err)
	s.Equal("body", string(read))
}
