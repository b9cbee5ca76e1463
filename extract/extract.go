// Package extract turns parts of a request into typed handler arguments.
//
// An Extractor reads one value from a *request.Request. Extractors are
// values, built once when a route is registered and reused for every
// request, so they must be safe for concurrent use.
package extract

import (
	"context"
	"errors"

	"github.com/shravanasati/mearas/request"
)

// Extractor produces a value of type T from a request.
type Extractor[T any] interface {
	Extract(r *request.Request) (T, error)
}

// Func adapts a function to Extractor.
type Func[T any] func(r *request.Request) (T, error)

func (f Func[T]) Extract(r *request.Request) (T, error) {
	return f(r)
}

// FromRequest is implemented by types that know how to build themselves from
// a request.
type FromRequest interface {
	FromRequest(r *request.Request) error
}

// Self extracts a T by calling FromRequest on a fresh *T.
func Self[T any, PT interface {
	*T
	FromRequest
}]() Extractor[T] {
	return Func[T](func(r *request.Request) (T, error) {
		var v T
		err := PT(&v).FromRequest(r)
		return v, err
	})
}

// Optional turns an absent value into nil instead of an error. Values that
// are present but invalid still fail.
func Optional[T any](ex Extractor[T]) Extractor[*T] {
	return Func[*T](func(r *request.Request) (*T, error) {
		v, err := ex.Extract(r)
		if err != nil {
			if errors.Is(err, ErrAbsent) {
				return nil, nil
			}
			return nil, err
		}
		return &v, nil
	})
}

// Map applies fn to the value produced by ex.
func Map[A, B any](ex Extractor[A], fn func(A) (B, error)) Extractor[B] {
	return Func[B](func(r *request.Request) (B, error) {
		a, err := ex.Extract(r)
		if err != nil {
			var zero B
			return zero, err
		}
		return fn(a)
	})
}

// Request hands the request itself to the handler.
func Request() Extractor[*request.Request] {
	return Func[*request.Request](func(r *request.Request) (*request.Request, error) {
		return r, nil
	})
}

// Context extracts the request context.
func Context() Extractor[context.Context] {
	return Func[context.Context](func(r *request.Request) (context.Context, error) {
		return r.Context(), nil
	})
}

// Method extracts the request method.
func Method() Extractor[string] {
	return Func[string](func(r *request.Request) (string, error) {
		return r.Method, nil
	})
}

// RemoteAddr extracts the peer address the request came from.
func RemoteAddr() Extractor[string] {
	return Func[string](func(r *request.Request) (string, error) {
		return r.RemoteAddr, nil
	})
}

// Local extracts a value stored on the request with Set, typically by a
// middleware. A missing or mistyped value is reported as absent.
func Local[T any](key string) Extractor[T] {
	return Func[T](func(r *request.Request) (T, error) {
		v, ok := r.Get(key)
		if t, isT := v.(T); ok && isT {
			return t, nil
		}
		var zero T
		return zero, newError(ErrMissingLocal, SourceRequest, key, ErrAbsent)
	})
}
