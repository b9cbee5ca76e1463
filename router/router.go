// Package router matches requests to handlers by method and path and runs
// them through the middleware chain.
//
// Routes are registered on a Router, which is then frozen with Build into an
// immutable Mux that serves requests.
package router

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shravanasati/mearas/handler"
	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
)

// MethodAny registers a route for every method. Such routes never produce a
// 405.
const MethodAny = "*"

var methodRegex = regexp.MustCompile(`^[a-zA-Z0-9!#$%&'*+\-.^_\x60|~]+$`)

// Middleware wraps a handler. The first middleware added with Use is the
// outermost one.
type Middleware func(handler.Handler) handler.Handler

// MethodNotAllowedHandler builds the response for a path that exists under
// other methods only. allowed is already ordered for the Allow header.
type MethodNotAllowedHandler func(r *request.Request, allowed []string) response.Response

// RecoveryFunc converts a panic raised while serving r into a response.
type RecoveryFunc func(r *request.Request, recovered any) response.Response

var defaultNotFoundHandler handler.Handler = func(r *request.Request) response.Response {
	return response.Default(response.StatusNotFound)
}

var defaultMethodNotAllowedHandler MethodNotAllowedHandler = func(r *request.Request, allowed []string) response.Response {
	return response.Default(response.StatusMethodNotAllowed)
}

// RouteInfo describes a registered route.
type RouteInfo struct {
	Method  string
	Pattern string
}

// Router collects routes and middleware. It is not safe for concurrent use;
// register everything from one goroutine, then call Build.
type Router struct {
	trees            map[string]*TrieNode
	routes           []RouteInfo
	middlewares      []Middleware
	notFound         handler.Handler
	methodNotAllowed MethodNotAllowedHandler
	recovery         RecoveryFunc
	errorHandler     handler.ErrorHandler
	logger           *slog.Logger
	errs             []error
	frozen           bool
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger used by the default panic recovery.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRecovery replaces the default panic recovery.
func WithRecovery(fn RecoveryFunc) Option {
	return func(r *Router) {
		if fn != nil {
			r.recovery = fn
		}
	}
}

// WithErrorHandler renders extraction failures for every route instead of
// handler.ErrorResponse.
func WithErrorHandler(eh handler.ErrorHandler) Option {
	return func(r *Router) {
		r.errorHandler = eh
	}
}

// New creates a router.
func New(opts ...Option) *Router {
	router := &Router{
		trees:            make(map[string]*TrieNode),
		notFound:         defaultNotFoundHandler,
		methodNotAllowed: defaultMethodNotAllowedHandler,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(router)
	}
	return router
}

// Add registers h for method and pattern. The error is also kept and
// reported again by Build, so the shorthand methods may ignore it.
func (r *Router) Add(method, pattern string, h handler.Handler) error {
	if err := r.add(method, pattern, h); err != nil {
		r.errs = append(r.errs, err)
		return err
	}
	return nil
}

func (r *Router) add(method, pattern string, h handler.Handler) error {
	if method != MethodAny {
		method = strings.ToUpper(method)
	}
	fail := func(err error) error {
		return &RouteError{Method: method, Pattern: pattern, Err: err}
	}

	switch {
	case r.frozen:
		return fail(ErrFrozen)
	case method != MethodAny && !methodRegex.MatchString(method):
		return fail(ErrInvalidMethod)
	case h == nil:
		return fail(errors.New("nil handler"))
	}

	p, err := ParsePattern(pattern)
	if err != nil {
		return fail(err)
	}

	tree, ok := r.trees[method]
	if !ok {
		tree = NewTrieNode()
		r.trees[method] = tree
	}
	if err := tree.Insert(p, h); err != nil {
		return fail(err)
	}

	r.routes = append(r.routes, RouteInfo{Method: method, Pattern: p.String()})
	return nil
}

// Get registers a new GET route.
func (r *Router) Get(pattern string, h handler.Handler) {
	r.Add(request.MethodGet, pattern, h)
}

// Post registers a new POST route.
func (r *Router) Post(pattern string, h handler.Handler) {
	r.Add(request.MethodPost, pattern, h)
}

// Put registers a new PUT route.
func (r *Router) Put(pattern string, h handler.Handler) {
	r.Add(request.MethodPut, pattern, h)
}

// Patch registers a new PATCH route.
func (r *Router) Patch(pattern string, h handler.Handler) {
	r.Add(request.MethodPatch, pattern, h)
}

// Delete registers a new DELETE route.
func (r *Router) Delete(pattern string, h handler.Handler) {
	r.Add(request.MethodDelete, pattern, h)
}

// Options registers a new OPTIONS route.
func (r *Router) Options(pattern string, h handler.Handler) {
	r.Add(request.MethodOptions, pattern, h)
}

// Head registers a new HEAD route. GET routes answer HEAD on their own.
func (r *Router) Head(pattern string, h handler.Handler) {
	r.Add(request.MethodHead, pattern, h)
}

// Any registers a route for every method.
func (r *Router) Any(pattern string, h handler.Handler) {
	r.Add(MethodAny, pattern, h)
}

// NotFound sets the handler for when no route is found.
func (r *Router) NotFound(h handler.Handler) {
	if h != nil {
		r.notFound = h
	}
}

// MethodNotAllowed sets the handler for paths registered under other
// methods. The Allow header is set on whatever it returns.
func (r *Router) MethodNotAllowed(h MethodNotAllowedHandler) {
	if h != nil {
		r.methodNotAllowed = h
	}
}

// Use adds middleware to the router. Middleware runs for every request,
// including those answered with 404 or 405. Use panics after Build.
func (r *Router) Use(m ...Middleware) {
	if r.frozen {
		panic("router: Use called after Build")
	}
	r.middlewares = append(r.middlewares, m...)
}

// Group registers the routes added inside fn under prefix, wrapped in mws.
// Group middleware runs inside the router-wide middleware.
func (r *Router) Group(prefix string, fn func(g *Group), mws ...Middleware) {
	g := &Group{router: r, prefix: prefix, middlewares: mws}
	fn(g)
}

// Build freezes the router and returns the Mux serving its routes. It fails
// if any route could not be registered.
func (r *Router) Build() (*Mux, error) {
	if len(r.errs) > 0 {
		return nil, errors.Join(r.errs...)
	}
	if r.frozen {
		return nil, fmt.Errorf("router: %w", ErrFrozen)
	}
	r.frozen = true

	m := &Mux{
		trees:            r.trees,
		routes:           r.routes,
		notFound:         r.notFound,
		methodNotAllowed: r.methodNotAllowed,
		recovery:         r.recovery,
		errorHandler:     r.errorHandler,
		logger:           r.logger,
	}
	if m.recovery == nil {
		m.recovery = defaultRecovery(r.logger)
	}
	m.handler = chain(r.middlewares, m.recovered(m.route))
	return m, nil
}

func chain(middlewares []Middleware, h handler.Handler) handler.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
