package router

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPattern is returned for malformed route patterns.
	ErrInvalidPattern = errors.New("invalid route pattern")
	// ErrAmbiguousRoute is returned when a route could match the same paths
	// as one registered before it with no precedence between them.
	ErrAmbiguousRoute = errors.New("ambiguous route")
	// ErrFrozen is returned when routes are added after Build.
	ErrFrozen = errors.New("router is frozen")
	// ErrInvalidMethod is returned for a method that is not an HTTP token.
	ErrInvalidMethod = errors.New("invalid method")
)

// RouteError reports a route that could not be registered.
type RouteError struct {
	Method  string
	Pattern string
	Err     error
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("router: %s %s: %v", e.Method, e.Pattern, e.Err)
}

func (e *RouteError) Unwrap() error {
	return e.Err
}
