package message

import (
	"asynchttp/wire"
)

// Headers is the ordered multi-map spec.md §3 names: case-insensitive
// names, insertion order preserved for round-tripping and for the
// "content headers first, then request headers, later wins" merge rule
// spec.md §9 calls out. Grounded on teacher's semantic/header.go, simplified
// to keep insertion order instead of a bare map.
type Headers struct {
	fields []wire.Field
}

// NewHeaders builds Headers from an ordered list of name/value pairs.
func NewHeaders(pairs ...[2]string) Headers {
	h := Headers{}
	for _, p := range pairs {
		h.Add(p[0], p[1])
	}
	return h
}

func FieldsFrom(fields []wire.Field) Headers {
	h := Headers{}
	for _, f := range fields {
		h.Add(string(f.Name), string(f.Value))
	}
	return h
}

func canonical(name string) string {
	if wire.IsValidToken(name) {
		return wire.CanonicalFieldName(name)
	}
	return name
}

// Get returns the first value stored under name, case-insensitively.
func (h *Headers) Get(name string) (string, bool) {
	name = canonical(name)
	for _, f := range h.fields {
		if string(f.Name) == name {
			return string(f.Value), true
		}
	}
	return "", false
}

// Values returns every value stored under name, in insertion order.
func (h *Headers) Values(name string) []string {
	name = canonical(name)
	var out []string
	for _, f := range h.fields {
		if string(f.Name) == name {
			out = append(out, string(f.Value))
		}
	}
	return out
}

// Set replaces every existing value under name with a single value,
// preserving the position of the first existing occurrence if any.
func (h *Headers) Set(name, value string) {
	name = canonical(name)
	replaced := false
	out := h.fields[:0]
	for _, f := range h.fields {
		if string(f.Name) == name {
			if !replaced {
				out = append(out, wire.Field{Name: []byte(name), Value: []byte(value)})
				replaced = true
			}
			continue
		}
		out = append(out, f)
	}
	h.fields = out
	if !replaced {
		h.fields = append(h.fields, wire.Field{Name: []byte(name), Value: []byte(value)})
	}
}

// Add appends a value under name without disturbing existing values.
func (h *Headers) Add(name, value string) {
	name = canonical(name)
	h.fields = append(h.fields, wire.Field{Name: []byte(name), Value: []byte(value)})
}

// Del removes every value stored under name.
func (h *Headers) Del(name string) {
	name = canonical(name)
	out := h.fields[:0]
	for _, f := range h.fields {
		if string(f.Name) != name {
			out = append(out, f)
		}
	}
	h.fields = out
}

// Has reports whether name currently holds at least one value,
// case-insensitively.
func (h *Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Fields returns the headers as an ordered list of wire fields, suitable
// for RequestEncoder.
func (h Headers) Fields() []wire.Field {
	out := make([]wire.Field, len(h.fields))
	copy(out, h.fields)
	return out
}

// Clone returns an independent copy.
func (h Headers) Clone() Headers {
	return Headers{fields: append([]wire.Field(nil), h.fields...)}
}

// Merge returns headers formed by writing base's fields first, then
// overlay's, with overlay winning on name conflicts — the ordering rule
// spec.md §4.1 step 4 and §9 specify for request-headers-over-content-headers.
func Merge(base, overlay Headers) Headers {
	merged := Headers{}
	for _, f := range base.fields {
		merged.fields = append(merged.fields, f)
	}
	for _, name := range distinctNames(overlay.fields) {
		merged.Del(name)
	}
	for _, f := range overlay.fields {
		merged.fields = append(merged.fields, f)
	}
	return merged
}

func distinctNames(fields []wire.Field) []string {
	seen := map[string]bool{}
	var names []string
	for _, f := range fields {
		n := string(f.Name)
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	return names
}
