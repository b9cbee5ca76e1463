package extract

import "github.com/shravanasati/mearas/request"

// Header extracts a header value. Repeated headers are joined with ", ".
func Header(name string) Extractor[string] {
	return Func[string](func(r *request.Request) (string, error) {
		if !r.Headers.Has(name) {
			return "", newError(ErrMissingHeader, SourceHeader, name, ErrAbsent)
		}
		return r.Headers.Get(name), nil
	})
}

// HeaderAs extracts a header value parsed as T.
func HeaderAs[T any](name string) Extractor[T] {
	return Func[T](func(r *request.Request) (T, error) {
		raw, err := Header(name).Extract(r)
		if err != nil {
			var zero T
			return zero, err
		}
		v, err := parseScalar[T](raw)
		if err != nil {
			return v, newError(ErrParse, SourceHeader, name, err)
		}
		return v, nil
	})
}

// OptionalHeader extracts a header value, or nil when it is absent.
func OptionalHeader(name string) Extractor[*string] {
	return Optional(Header(name))
}

// HeaderValues extracts every value of a repeated header, in arrival order.
// An absent header gives an empty slice.
func HeaderValues(name string) Extractor[[]string] {
	return Func[[]string](func(r *request.Request) ([]string, error) {
		return r.Headers.Values(name), nil
	})
}
