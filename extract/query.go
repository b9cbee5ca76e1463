package extract

import (
	"net/url"

	"github.com/shravanasati/mearas/request"
	"rivaas.dev/binding"
)

// Query binds the query string into a struct of type T using `query` tags.
// Fields without a tag are left alone; a `default` tag fills absent keys.
func Query[T any](opts ...binding.Option) Extractor[T] {
	return Func[T](func(r *request.Request) (T, error) {
		var v T
		values, err := r.Query()
		if err != nil {
			return v, newError(ErrQueryParse, SourceQuery, "", err)
		}
		v, err = binding.Query[T](values, opts...)
		if err != nil {
			return v, newError(ErrQueryParse, SourceQuery, "", err)
		}
		return v, nil
	})
}

// QueryValues extracts the parsed query string.
func QueryValues() Extractor[url.Values] {
	return Func[url.Values](func(r *request.Request) (url.Values, error) {
		values, err := r.Query()
		if err != nil {
			return nil, newError(ErrQueryParse, SourceQuery, "", err)
		}
		return values, nil
	})
}

// QueryValue extracts the first value of the query parameter name parsed as T.
func QueryValue[T any](name string) Extractor[T] {
	return Func[T](func(r *request.Request) (T, error) {
		var zero T
		values, err := r.Query()
		if err != nil {
			return zero, newError(ErrQueryParse, SourceQuery, name, err)
		}
		if !values.Has(name) {
			return zero, newError(ErrQueryParse, SourceQuery, name, ErrAbsent)
		}
		v, err := parseScalar[T](values.Get(name))
		if err != nil {
			return v, newError(ErrParse, SourceQuery, name, err)
		}
		return v, nil
	})
}

// OptionalQuery is QueryValue giving nil for an absent parameter.
func OptionalQuery[T any](name string) Extractor[*T] {
	return Optional(QueryValue[T](name))
}

// RawQuery extracts the query string as received, without the '?'.
func RawQuery() Extractor[string] {
	return Func[string](func(r *request.Request) (string, error) {
		return r.RawQuery, nil
	})
}
