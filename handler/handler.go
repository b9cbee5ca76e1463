// Package handler adapts typed functions into request handlers.
//
// HandleN takes N extractors and a function of a context plus N typed
// arguments. Arguments are extracted left to right; the first failure is
// rendered as an error response and the function is not called.
package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shravanasati/mearas/extract"
	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
)

// Handler turns a request into a response.
type Handler func(r *request.Request) response.Response

// Serve calls h. It exists so a Handler reads naturally at call sites.
func (h Handler) Serve(r *request.Request) response.Response {
	return h(r)
}

// ErrorHandler renders a failed extraction.
type ErrorHandler func(r *request.Request, err error) response.Response

const errorHandlerKey = "mearas.error-handler"

// SetErrorHandler makes eh render extraction failures for the rest of r's
// lifetime.
func SetErrorHandler(r *request.Request, eh ErrorHandler) {
	r.Set(errorHandlerKey, eh)
}

// Error renders err with the error handler installed on r, or ErrorResponse.
func Error(r *request.Request, err error) response.Response {
	if v, ok := r.Get(errorHandlerKey); ok {
		if eh, ok := v.(ErrorHandler); ok && eh != nil {
			return eh(r, err)
		}
	}
	return ErrorResponse(err)
}

// ErrorResponse is the default error responder. Extraction errors become a
// problem document with the status their kind maps to; anything else is an
// opaque 500.
func ErrorResponse(err error) response.Response {
	var e *extract.Error
	if !errors.As(err, &e) {
		slog.Error("handler failed", "error", err)
		return response.NewProblem(response.StatusInternalServerError, "").IntoResponse()
	}

	status := e.StatusCode()
	p := response.NewProblem(status, e.Error())
	if status.Class() == 5 {
		// programming errors: log the cause, don't leak it
		slog.Error("extraction failed", "error", err)
		p.Detail = ""
	}
	p.Errors = e.Fields()
	return p.IntoResponse()
}

// Func wraps a function of the request context only.
func Func[R response.Responder](fn func(context.Context) R) Handler {
	return Handle0(fn)
}

// Of wraps a function that already takes the request.
func Of[R response.Responder](fn func(r *request.Request) R) Handler {
	return func(r *request.Request) response.Response {
		return response.From(fn(r))
	}
}
