package client

import (
	"fmt"

	"asynchttp/message"

	"github.com/pkg/errors"
)

// Error taxonomy — spec.md §4.4. StreamAlreadyConsumed and UpgradeRefused
// live on message.Content/message.Response since they're raised there;
// re-exported here so callers have one place to look.
var (
	ErrConnectionClosed        = errors.New("client: transport closed before response head arrived")
	ErrStreamAlreadyConsumed   = message.ErrStreamAlreadyConsumed
	ErrUpgradeRefused          = message.ErrUpgradeRefused
	ErrTooManyWaiters          = errors.New("client: too many waiters")
	ErrClientAlreadyClosed     = errors.New("client: already closed")
	ErrAutoRedirectNotSupported = errors.New("client: automatic redirect is only supported for GET requests")
	ErrHostHeaderMissing       = errors.New("client: Host header is required")
	ErrWrite                   = errors.New("client: writing request failed")
	ErrTooManyRedirects        = errors.New("client: too many redirects")
)

// PanicError wraps an internal invariant violation (spec.md §7): these are
// implementation defects, not recoverable protocol errors, and the
// connection that raised one is always destroyed rather than reused.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("client: internal invariant violated: %v", e.Value)
}

func newPanicError(v any) *PanicError { return &PanicError{Value: v} }
