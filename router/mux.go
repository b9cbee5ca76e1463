package router

import (
	"log/slog"
	"runtime/debug"
	"slices"
	"strings"

	"github.com/shravanasati/mearas/handler"
	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
)

// Mux is a frozen set of routes. It is safe for concurrent use.
type Mux struct {
	trees            map[string]*TrieNode
	routes           []RouteInfo
	handler          handler.Handler
	notFound         handler.Handler
	methodNotAllowed MethodNotAllowedHandler
	recovery         RecoveryFunc
	errorHandler     handler.ErrorHandler
	logger           *slog.Logger
}

// Dispatch serves r. It always returns a response: unknown paths get 404,
// known paths under another method get 405 and a panic anywhere in the
// middleware chain or the handler gets the recovery response. A handler
// panic is recovered inside the global middleware, which then runs its
// after-response work as usual.
func (m *Mux) Dispatch(r *request.Request) (resp response.Response) {
	defer func() {
		if rec := recover(); rec != nil {
			resp = m.recovery(r, rec)
		}
		if resp == nil {
			resp = response.Default(response.StatusInternalServerError)
		}
	}()

	if m.errorHandler != nil {
		handler.SetErrorHandler(r, m.errorHandler)
	}
	return m.handler(r)
}

// recovered turns a panic in h into the recovery response, so middleware
// wrapping the router still sees a response for it.
func (m *Mux) recovered(h handler.Handler) handler.Handler {
	return func(r *request.Request) (resp response.Response) {
		defer func() {
			if rec := recover(); rec != nil {
				resp = m.recovery(r, rec)
			}
		}()
		return h(r)
	}
}

// Handler returns Dispatch as a handler.Handler for the transport.
func (m *Mux) Handler() handler.Handler {
	return m.Dispatch
}

// Routes lists the registered routes in registration order.
func (m *Mux) Routes() []RouteInfo {
	return slices.Clone(m.routes)
}

// route runs inside the middleware chain and picks the handler.
//
// The routing logic follows this priority order:
//  1. Exact method and path match
//  2. For HEAD requests, the GET handler with the body removed
//  3. A route registered for any method
//  4. 405 Method Not Allowed if the path exists for other methods
//  5. 404 Not Found
func (m *Mux) route(r *request.Request) response.Response {
	if h := m.match(r, r.Method); h != nil {
		return h(r)
	}

	if r.Method == request.MethodHead {
		if h := m.match(r, request.MethodGet); h != nil {
			return response.From(h(r)).WithBody(nil)
		}
	}

	if h := m.match(r, MethodAny); h != nil {
		return h(r)
	}

	if allowed := m.Allowed(r.Path); len(allowed) > 0 {
		resp := response.From(m.methodNotAllowed(r, allowed))
		resp.GetHeaders().Set("allow", strings.Join(allowed, ", "))
		return resp.WithStatusCode(response.StatusMethodNotAllowed)
	}

	return m.notFound(r)
}

// match looks r up in the tree for method and, on success, stores the path
// parameters and the matched pattern on r.
func (m *Mux) match(r *request.Request, method string) handler.Handler {
	tree, ok := m.trees[method]
	if !ok {
		return nil
	}
	h, pattern, params := tree.Match(r.Path)
	if h == nil {
		return nil
	}
	r.PathParams = params
	r.Set(patternKey, pattern)
	return h
}

const patternKey = "mearas.route-pattern"

// MatchedPattern returns the normalized pattern of the route serving r, or ""
// before routing and for requests no route matched. Middleware can read it
// once the next handler has returned.
func MatchedPattern(r *request.Request) string {
	if v, ok := r.Get(patternKey); ok {
		if p, ok := v.(string); ok {
			return p
		}
	}
	return ""
}

// Allowed lists the methods path is registered under, ordered for an Allow
// header. GET implies HEAD. Routes registered with MethodAny are not listed.
func (m *Mux) Allowed(path string) []string {
	found := make(map[string]bool)
	for method, tree := range m.trees {
		if method == MethodAny {
			continue
		}
		if h, _, _ := tree.Match(path); h != nil {
			found[method] = true
		}
	}
	if found[request.MethodGet] {
		found[request.MethodHead] = true
	}

	allowed := make([]string, 0, len(found))
	for _, method := range request.StandardMethods {
		if found[method] {
			allowed = append(allowed, method)
			delete(found, method)
		}
	}
	custom := make([]string, 0, len(found))
	for method := range found {
		custom = append(custom, method)
	}
	slices.Sort(custom)
	return append(allowed, custom...)
}

func defaultRecovery(logger *slog.Logger) RecoveryFunc {
	return func(r *request.Request, recovered any) response.Response {
		logger.Error("panic while serving request",
			"method", r.Method,
			"path", r.Path,
			"panic", recovered,
			"stack", string(debug.Stack()),
		)
		return response.Default(response.StatusInternalServerError)
	}
}
