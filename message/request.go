// Package message holds spec.md §3's data model: Request, Response, and
// Content, plus the ordered Headers multi-map they share. Grounded on
// teacher's application/http/semantic package, trimmed of URI/forward-proxy
// parsing which spec.md puts out of scope.
package message

import (
	"asynchttp/wire"
)

// Request is spec.md §3's Request: method, path (+ optional query),
// headers, and a Content handle carrying both headers-to-merge and the
// once-consumable body.
type Request struct {
	Method  string
	Path    string
	Query   string
	Headers Headers
	Content Content
}

// Target returns the request-target ("path?query") the wire encoder writes
// on the request line.
func (r *Request) Target() string {
	if r.Query == "" {
		return r.Path
	}
	return r.Path + "?" + r.Query
}

// mergedHeaders combines r.Content.Headers and r.Headers per spec.md §4.1
// step 4: content headers first, request headers win on conflict.
func (r *Request) mergedHeaders() Headers {
	return Merge(r.Content.Headers, r.Headers)
}

// ToWire renders the request as a codec-level Request ready for
// wire.RequestEncoder, given the body reader already obtained from
// r.Content.Open().
func (r *Request) ToWire(version wire.Version, body interface {
	Read(p []byte) (int, error)
}) wire.Request {
	return wire.Request{
		RequestLine: wire.RequestLine{
			Method:  r.Method,
			Target:  r.Target(),
			Version: version,
		},
		Headers: r.mergedHeaders().Fields(),
		Body:    body,
	}
}
