// Package wire implements the HTTP/1.1 request/status line and header-field
// framing spec.md treats as a fixed codec collaborator: it does not know
// about connection pooling, streaming bodies beyond what io.Reader already
// gives it, or upgrade handoff — that belongs to the client package.
package wire

import (
	"bytes"
	"strconv"

	"github.com/pkg/errors"
)

// Version is [Major, Minor], e.g. {1, 1} for HTTP/1.1.
type Version [2]uint

func (v Version) Text() []byte {
	buf := bytes.NewBuffer(nil)
	buf.WriteString("HTTP/")
	buf.WriteString(strconv.FormatUint(uint64(v[0]), 10))
	buf.WriteByte('.')
	buf.WriteString(strconv.FormatUint(uint64(v[1]), 10))
	return buf.Bytes()
}

func (v Version) String() string { return string(v.Text()) }

// ParseVersion parses text such as "HTTP/1.1".
func ParseVersion(b []byte) (Version, error) {
	const prefix = "HTTP/"
	if !bytes.HasPrefix(b, []byte(prefix)) {
		return Version{}, errors.Errorf("wire: missing %q prefix in %q", prefix, b)
	}

	major, minor, found := bytes.Cut(b[len(prefix):], []byte{'.'})
	if !found {
		return Version{}, errors.Errorf("wire: no '.' separator in version %q", b)
	}

	maj, err1 := strconv.ParseUint(string(major), 10, 8)
	min, err2 := strconv.ParseUint(string(minor), 10, 8)
	if err1 != nil || err2 != nil {
		return Version{}, errors.Errorf("wire: non-numeric version %q", b)
	}

	return Version{uint(maj), uint(min)}, nil
}

var HTTP11 = Version{1, 1}

// Field is a single wire-level header field. Name keeps the casing it was
// built with: ParseField does not change it, while message.Headers stores
// valid RFC 9110 tokens in canonical casing ("Content-Type").
type Field struct{ Name, Value []byte }

func (f Field) Text() []byte {
	buf := bytes.NewBuffer(nil)
	buf.Write(f.Name)
	buf.WriteString(": ")
	buf.Write(f.Value)
	return buf.Bytes()
}

// CanonicalFieldName mirrors net/http's canonicalization: each '-'-delimited
// word is capitalized.
func CanonicalFieldName(s string) string {
	const capitalDiff = 'a' - 'A'
	b := []byte(s)
	upper := true
	for i, c := range b {
		switch {
		case upper && 'a' <= c && c <= 'z':
			c -= capitalDiff
		case !upper && 'A' <= c && c <= 'Z':
			c += capitalDiff
		}
		b[i] = c
		upper = c == '-'
	}
	return string(b)
}

// IsValidToken reports whether s is a valid RFC 9110 §5.6.2 token.
func IsValidToken(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
			continue
		}
		switch c {
		case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
			continue
		}
		return false
	}
	return true
}

// ParseField splits a raw field line ("Name: value") into a Field.
func ParseField(line []byte) (Field, error) {
	name, value, found := bytes.Cut(line, []byte{':'})
	if !found {
		return Field{}, errors.Errorf("wire: no ':' in field line %q", line)
	}

	if len(name) > 0 && (name[len(name)-1] == ' ' || name[len(name)-1] == '\t') {
		return Field{}, errors.New("wire: field name has trailing whitespace")
	}

	value = bytes.Trim(value, " \t")

	return Field{Name: name, Value: value}, nil
}

// RequestLine is the first line of an HTTP request.
type RequestLine struct {
	Method  string
	Target  string
	Version Version
}

// Request is the codec-level view of an outbound request: a line, fields,
// and an already-framed body reader the encoder streams verbatim.
type Request struct {
	RequestLine
	Headers []Field
	Body    interface {
		Read(p []byte) (int, error)
	}
}

// StatusLine is the first line of an HTTP response.
type StatusLine struct {
	Version      Version
	StatusCode   int
	ReasonPhrase string
}

// Response is the codec-level view of an inbound response: head plus a
// reader positioned at the first byte of the body.
type Response struct {
	StatusLine
	Headers []Field
	Body    interface {
		Read(p []byte) (int, error)
	}
}
