package message

import (
	"io"
	"strings"
	"testing"

	"asynchttp/message/status"

	"github.com/stretchr/testify/suite"
)

type ResponseTestSuite struct {
	suite.Suite
}

func TestResponseTestSuite(t *testing.T) {
	suite.Run(t, new(ResponseTestSuite))
}

func (s *ResponseTestSuite) TestDoUpgradeRefusedWithoutArmedUpgrade() {
	r := Response{Status: status.OK}
	_, err := r.DoUpgrade(strings.NewReader(""))
	s.ErrorIs(err, ErrUpgradeRefused)
}

func (s *ResponseTestSuite) TestDoUpgradeInvokesArmedFunc() {
	var seenUpstream string
	r := Response{
		Status: status.SwitchingProtocols,
		Upgrade: func(upstream io.Reader) (io.ReadCloser, error) {
			b, _ := io.ReadAll(upstream)
			seenUpstream = string(b)
			return io.NopCloser(strings.NewReader("downstream")), nil
		},
	}

	rc, err := r.DoUpgrade(strings.NewReader("upstream-bytes"))
	s.Require().NoError(err)

	got, err := io.ReadAll(rc)
	s.Require().NoError(err)
	s.Equal("downstream", string(got))
	s.Equal("upstream-bytes", seenUpstream)
}

func (s *ResponseTestSuite) TestIsRedirect() {
	r := Response{Status: status.Found}
	s.True(r.IsRedirect())

	r.Status = status.OK
	s.False(r.IsRedirect())
}
