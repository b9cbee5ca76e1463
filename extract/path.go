package extract

import (
	"errors"
	"maps"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/shravanasati/mearas/request"
)

// ErrUnsafePath is the cause of a TailPath failure for a segment that could
// escape or confuse a storage root.
var ErrUnsafePath = errors.New("unsafe path segment")

// Path extracts the capture called name and parses it as T. A value that does
// not parse fails with ErrParse, which responds 404.
func Path[T any](name string) Extractor[T] {
	return Func[T](func(r *request.Request) (T, error) {
		raw, ok := r.Param(name)
		if !ok {
			var zero T
			return zero, newError(ErrMissingParam, SourcePath, name, ErrAbsent)
		}
		v, err := parseScalar[T](raw)
		if err != nil {
			return v, newError(ErrParse, SourcePath, name, err)
		}
		return v, nil
	})
}

// Params extracts every path parameter of the matched route.
func Params() Extractor[map[string]string] {
	return Func[map[string]string](func(r *request.Request) (map[string]string, error) {
		return maps.Clone(r.PathParams), nil
	})
}

// TailPath extracts the wildcard called name as a relative slash-separated
// path. The tail is percent-decoded, empty segments are dropped and a segment
// is rejected if it starts with '.' or '*', ends with ':', '<' or '>', or
// contains a backslash or NUL byte.
func TailPath(name string) Extractor[string] {
	return Func[string](func(r *request.Request) (string, error) {
		raw, ok := r.Param(name)
		if !ok {
			return "", newError(ErrMissingParam, SourcePath, name, ErrAbsent)
		}
		clean, err := sanitizeTail(raw)
		if err != nil {
			return "", newError(ErrParse, SourcePath, name, err)
		}
		return clean, nil
	})
}

func sanitizeTail(raw string) (string, error) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", err
	}
	if !utf8.ValidString(decoded) {
		return "", ErrUnsafePath
	}

	segments := make([]string, 0, strings.Count(decoded, "/")+1)
	for seg := range strings.SplitSeq(decoded, "/") {
		switch {
		case seg == "":
			continue
		case strings.HasPrefix(seg, "."), strings.HasPrefix(seg, "*"):
			return "", ErrUnsafePath
		case strings.HasSuffix(seg, ":"), strings.HasSuffix(seg, "<"), strings.HasSuffix(seg, ">"):
			return "", ErrUnsafePath
		case strings.ContainsAny(seg, "\\\x00"):
			return "", ErrUnsafePath
		}
		segments = append(segments, seg)
	}
	return strings.Join(segments, "/"), nil
}
