package message

import (
	"io"
	"time"

	"asynchttp/message/status"

	"github.com/pkg/errors"
)

// ErrUpgradeRefused is returned by Response.DoUpgrade when the response
// status is not 101 — spec.md §3, §4.1 step 7.
var ErrUpgradeRefused = errors.New("message: upgrade refused: response status is not 101")

// UpgradeFunc pipes caller-supplied upstream bytes into the transport and
// returns a reader sourced from whatever the transport sends back —
// spec.md §3's "upstream_bytes → downstream_bytes" capability.
type UpgradeFunc func(upstream io.Reader) (io.ReadCloser, error)

// Response is spec.md §3's Response: status, headers, content, and an
// upgrade capability that is only meaningful when Status.Code == 101.
type Response struct {
	Status  status.Status
	Headers Headers
	Content Content
	Date    time.Time

	// Upgrade is armed only on a 101 response; nil otherwise.
	Upgrade UpgradeFunc
}

// DoUpgrade invokes Upgrade, or fails with ErrUpgradeRefused if the
// response never armed it (any status other than 101).
func (r *Response) DoUpgrade(upstream io.Reader) (io.ReadCloser, error) {
	if r.Status.Code != 101 || r.Upgrade == nil {
		return nil, ErrUpgradeRefused
	}
	return r.Upgrade(upstream)
}

// IsRedirect reports whether this response's status is one
// Client.DoFollowingRedirects follows automatically.
func (r *Response) IsRedirect() bool {
	return status.IsRedirect(r.Status.Code)
}
