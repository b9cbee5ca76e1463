package handler

import (
	"context"

	"github.com/shravanasati/mearas/extract"
	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
)

// Handle0 adapts a function taking no extracted arguments.
func Handle0[R response.Responder](fn func(context.Context) R) Handler {
	return func(r *request.Request) response.Response {
		return response.From(fn(r.Context()))
	}
}

// Handle1 adapts a function taking one extracted argument.
func Handle1[A any, R response.Responder](ea extract.Extractor[A], fn func(context.Context, A) R) Handler {
	return func(r *request.Request) response.Response {
		a, err := ea.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		return response.From(fn(r.Context(), a))
	}
}

// Handle2 adapts a function taking two extracted arguments.
func Handle2[A, B any, R response.Responder](ea extract.Extractor[A], eb extract.Extractor[B], fn func(context.Context, A, B) R) Handler {
	return func(r *request.Request) response.Response {
		a, err := ea.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		b, err := eb.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		return response.From(fn(r.Context(), a, b))
	}
}

// Handle3 adapts a function taking three extracted arguments.
func Handle3[A, B, C any, R response.Responder](ea extract.Extractor[A], eb extract.Extractor[B], ec extract.Extractor[C], fn func(context.Context, A, B, C) R) Handler {
	return func(r *request.Request) response.Response {
		a, err := ea.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		b, err := eb.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		c, err := ec.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		return response.From(fn(r.Context(), a, b, c))
	}
}

// Handle4 adapts a function taking four extracted arguments.
func Handle4[A, B, C, D any, R response.Responder](ea extract.Extractor[A], eb extract.Extractor[B], ec extract.Extractor[C], ed extract.Extractor[D], fn func(context.Context, A, B, C, D) R) Handler {
	return func(r *request.Request) response.Response {
		a, err := ea.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		b, err := eb.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		c, err := ec.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		d, err := ed.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		return response.From(fn(r.Context(), a, b, c, d))
	}
}

// Handle5 adapts a function taking five extracted arguments.
func Handle5[A, B, C, D, E any, R response.Responder](ea extract.Extractor[A], eb extract.Extractor[B], ec extract.Extractor[C], ed extract.Extractor[D], ee extract.Extractor[E], fn func(context.Context, A, B, C, D, E) R) Handler {
	return func(r *request.Request) response.Response {
		a, err := ea.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		b, err := eb.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		c, err := ec.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		d, err := ed.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		e, err := ee.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		return response.From(fn(r.Context(), a, b, c, d, e))
	}
}

// Handle6 adapts a function taking six extracted arguments.
func Handle6[A, B, C, D, E, F any, R response.Responder](ea extract.Extractor[A], eb extract.Extractor[B], ec extract.Extractor[C], ed extract.Extractor[D], ee extract.Extractor[E], ef extract.Extractor[F], fn func(context.Context, A, B, C, D, E, F) R) Handler {
	return func(r *request.Request) response.Response {
		a, err := ea.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		b, err := eb.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		c, err := ec.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		d, err := ed.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		e, err := ee.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		f, err := ef.Extract(r)
		if err != nil {
			return Error(r, err)
		}
		return response.From(fn(r.Context(), a, b, c, d, e, f))
	}
}
