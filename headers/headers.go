package headers

import (
	"bytes"
	"iter"
	"regexp"
	"slices"
	"strings"
)

// https://datatracker.ietf.org/doc/html/rfc9110#name-tokens
var fieldNameRegex = regexp.MustCompile(`^[a-zA-Z0-9!#$%&'*\+\-.^_\x60\|~]+$`)

// Headers represents a collection of HTTP headers.
// Keys are case-insensitive, a key may carry several values, and iteration
// follows the order in which keys were first added.
type Headers struct {
	keys   []string
	values map[string][]string
}

func isValidFieldName(key string) bool {
	return fieldNameRegex.MatchString(key)
}

func validHeaderValueByte(c byte) bool {
	switch {
	case c == 0x09: // HTAB
		return true
	case c == 0x20: // SP
		return true
	case 0x21 <= c && c <= 0x7E: // VCHAR
		return true
	case c >= 0x80: // obs-text
		return true
	}
	return false
}

func isValidFieldValue(val []byte) bool {
	for _, b := range val {
		if !validHeaderValueByte(b) {
			return false
		}
	}
	return true
}

func normalizeKey(key string) string {
	return strings.ToLower(key)
}

// Add appends a value to a header. Get joins repeated values with a comma.
func (h *Headers) Add(key, value string) {
	if !isValidFieldName(key) || !isValidFieldValue([]byte(value)) {
		// drop invalid headers to prevent response splitting
		return
	}

	key = normalizeKey(key)
	if h.values == nil {
		h.values = map[string][]string{}
	}
	if _, ok := h.values[key]; !ok {
		h.keys = append(h.keys, key)
	}
	h.values[key] = append(h.values[key], value)
}

// Set replaces all values of a header. An existing header keeps its position.
func (h *Headers) Set(key, value string) {
	if !isValidFieldName(key) || !isValidFieldValue([]byte(value)) {
		return
	}

	key = normalizeKey(key)
	if h.values == nil {
		h.values = map[string][]string{}
	}
	if _, ok := h.values[key]; !ok {
		h.keys = append(h.keys, key)
	}
	h.values[key] = []string{value}
}

// Get returns the value of a header, joining multiple values with ", ".
// Reading from a nil *Headers behaves like reading from an empty one.
func (h *Headers) Get(key string) string {
	if h == nil {
		return ""
	}
	return strings.Join(h.values[normalizeKey(key)], ", ")
}

// Values returns a copy of every value stored for a header.
func (h *Headers) Values(key string) []string {
	if h == nil {
		return nil
	}
	return slices.Clone(h.values[normalizeKey(key)])
}

// Has reports whether the header is present, even with an empty value.
func (h *Headers) Has(key string) bool {
	if h == nil {
		return false
	}
	_, ok := h.values[normalizeKey(key)]
	return ok
}

// Remove removes a header.
func (h *Headers) Remove(key string) {
	if h == nil {
		return
	}
	key = normalizeKey(key)
	if _, ok := h.values[key]; !ok {
		return
	}
	delete(h.values, key)
	h.keys = slices.DeleteFunc(h.keys, func(k string) bool { return k == key })
}

// Keys returns the normalized header names in insertion order.
func (h *Headers) Keys() []string {
	if h == nil {
		return nil
	}
	return slices.Clone(h.keys)
}

// All returns an iterator over all headers with their joined values.
func (h *Headers) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if h == nil {
			return
		}
		for _, k := range h.keys {
			if !yield(k, strings.Join(h.values[k], ", ")) {
				return
			}
		}
	}
}

// Lines returns an iterator yielding one pair per stored value, the way they
// go on the wire.
func (h *Headers) Lines() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if h == nil {
			return
		}
		for _, k := range h.keys {
			for _, v := range h.values[k] {
				if !yield(k, v) {
					return
				}
			}
		}
	}
}

// Clone returns a deep copy.
func (h *Headers) Clone() *Headers {
	c := NewHeaders()
	for k, v := range h.Lines() {
		c.Add(k, v)
	}
	return c
}

// ParseFieldLine parses a single header line and adds it to the headers.
func (h *Headers) ParseFieldLine(data []byte) (err error) {
	colonPos := bytes.IndexByte(data, ':')
	if colonPos == -1 {
		// colon not found
		return ErrMalformedHeader
	}

	// leading whitespace in header key is allowed
	hkey := bytes.TrimLeft(data[:colonPos], " \t")
	hvalue := bytes.Trim(data[colonPos+1:], " \t")

	if !bytes.Equal(hkey, bytes.TrimRight(hkey, " ")) {
		// space between key and colon, invalid
		return ErrMalformedHeader
	}

	if !fieldNameRegex.Match(hkey) || !isValidFieldValue(hvalue) {
		return ErrMalformedHeader
	}

	h.Add(string(hkey), string(hvalue))
	return nil
}

// Size returns the number of distinct headers.
func (h *Headers) Size() int {
	if h == nil {
		return 0
	}
	return len(h.keys)
}

// NewHeaders creates a new Headers object.
func NewHeaders() *Headers {
	return &Headers{
		values: map[string][]string{},
	}
}
