package router

import (
	"fmt"
	"net/url"
	"strings"
)

type segmentKind int

const (
	segLiteral segmentKind = iota
	segParam
	segWildcard
)

type segment struct {
	kind  segmentKind
	value string // decoded literal text, or the capture name
	raw   string
}

// Pattern is a parsed route pattern: literal segments, `:name` captures and
// an optional trailing `*name` wildcard.
type Pattern struct {
	raw      string
	segments []segment
}

// ParsePattern validates and parses a route pattern. A single trailing slash
// is dropped, so "/users/" and "/users" are the same pattern.
func ParsePattern(s string) (Pattern, error) {
	if !strings.HasPrefix(s, "/") {
		return Pattern{}, fmt.Errorf("%w: must start with '/'", ErrInvalidPattern)
	}

	p := Pattern{raw: s}
	trimmed := trimTrailingSlash(s[1:])
	if trimmed == "" {
		return p, nil
	}

	parts := strings.Split(trimmed, "/")
	seen := make(map[string]bool)
	for i, part := range parts {
		var seg segment
		switch {
		case part == "":
			return Pattern{}, fmt.Errorf("%w: empty segment", ErrInvalidPattern)
		case part[0] == ':':
			seg = segment{kind: segParam, value: part[1:]}
		case part[0] == '*':
			if i != len(parts)-1 {
				return Pattern{}, fmt.Errorf("%w: wildcard %q must be the last segment", ErrInvalidPattern, part)
			}
			seg = segment{kind: segWildcard, value: part[1:]}
		default:
			// request segments are matched decoded, so literals are too
			decoded, err := url.PathUnescape(part)
			if err != nil {
				return Pattern{}, fmt.Errorf("%w: bad escape in %q", ErrInvalidPattern, part)
			}
			seg = segment{kind: segLiteral, value: decoded}
		}
		seg.raw = part

		if seg.kind != segLiteral {
			if seg.value == "" {
				return Pattern{}, fmt.Errorf("%w: unnamed capture", ErrInvalidPattern)
			}
			if seen[seg.value] {
				return Pattern{}, fmt.Errorf("%w: duplicate capture %q", ErrInvalidPattern, seg.value)
			}
			seen[seg.value] = true
		}
		p.segments = append(p.segments, seg)
	}
	return p, nil
}

// String returns the normalized pattern.
func (p Pattern) String() string {
	if len(p.segments) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, seg := range p.segments {
		sb.WriteByte('/')
		sb.WriteString(seg.raw)
	}
	return sb.String()
}

// Params lists the capture names in order.
func (p Pattern) Params() []string {
	var names []string
	for _, seg := range p.segments {
		if seg.kind != segLiteral {
			names = append(names, seg.value)
		}
	}
	return names
}

// joinPath appends p to a group prefix.
func joinPath(prefix, p string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if p == "/" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	return prefix + p
}

func trimTrailingSlash(s string) string {
	return strings.TrimSuffix(s, "/")
}
