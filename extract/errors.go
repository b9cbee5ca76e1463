package extract

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
)

// Error kinds. Every *Error carries exactly one of them as its Kind, so
// callers can test with errors.Is.
var (
	ErrMissingParam         = errors.New("missing path parameter")
	ErrParse                = errors.New("value could not be parsed")
	ErrMissingHeader        = errors.New("missing header")
	ErrQueryParse           = errors.New("invalid query")
	ErrBodyAlreadyConsumed  = errors.New("body already consumed")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrBodyRead             = errors.New("body could not be read")
	ErrDecode               = errors.New("body could not be decoded")
	ErrValidation           = errors.New("validation failed")
	ErrMissingLocal         = errors.New("missing request local")
)

// ErrAbsent marks a failure caused by a value that is not present at all, as
// opposed to one that is present but invalid. Optional turns it into nil.
var ErrAbsent = errors.New("value not present")

// Source names the part of the request a value was read from.
type Source string

const (
	SourcePath    Source = "path"
	SourceQuery   Source = "query"
	SourceHeader  Source = "header"
	SourceBody    Source = "body"
	SourceRequest Source = "request"
)

// Error describes a failed extraction.
type Error struct {
	Kind   error
	Source Source
	// Name is the parameter, header or field involved, if any.
	Name string
	Err  error
}

func newError(kind error, src Source, name string, err error) *Error {
	return &Error{Kind: kind, Source: src, Name: name, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Name != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Name)
	}
	if e.Err != nil && !errors.Is(e.Err, ErrAbsent) {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StatusCode is the status a default error response uses for e.
func (e *Error) StatusCode() response.StatusCode {
	switch e.Kind {
	case ErrMissingParam, ErrBodyAlreadyConsumed, ErrMissingLocal:
		// the route and the handler disagree; the client can't fix it
		return response.StatusInternalServerError
	case ErrParse:
		if e.Source == SourcePath {
			return response.StatusNotFound
		}
		return response.StatusBadRequest
	case ErrUnsupportedMediaType:
		return response.StatusUnsupportedMediaType
	case ErrBodyRead:
		if errors.Is(e.Err, request.ErrBodyTooLarge) {
			return response.StatusPayloadTooLarge
		}
		return response.StatusBadRequest
	case ErrValidation:
		return response.StatusUnprocessableEntity
	default:
		return response.StatusBadRequest
	}
}

// Fields returns the failing fields of a validation error keyed by field
// name, with the failed rule as the value.
func (e *Error) Fields() map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(e.Err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[fe.Field()] = rule
	}
	return fields
}
