package client

import (
	"io"
	"strconv"
	"strings"

	"asynchttp/internal/ioutil"
	"asynchttp/message"
	"asynchttp/transfer"
)

// contentHeaderNames are the fields a Content handle carries alongside its
// body, as opposed to the response's full header set.
var contentHeaderNames = []string{"Content-Type", "Content-Length", "Transfer-Encoding", "Content-Encoding"}

func contentHeaders(h message.Headers) message.Headers {
	out := message.Headers{}
	for _, name := range contentHeaderNames {
		for _, v := range h.Values(name) {
			out.Add(name, v)
		}
	}
	return out
}

func parseCodings(raw string) []transfer.Coding {
	var out []transfer.Coding
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, transfer.Coding(strings.ToLower(part)))
	}
	return out
}

func parseContentLength(raw string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
}

func headerHasToken(h message.Headers, name, token string) bool {
	values := h.Values(name)
	if token == "" {
		return len(values) > 0
	}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}

func ioutilLimitReader(r io.Reader, n uint64) io.Reader {
	return ioutil.LimitReader(r, n)
}
