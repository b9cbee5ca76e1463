package router

import (
	"github.com/shravanasati/mearas/handler"
	"github.com/shravanasati/mearas/request"
)

// Group registers routes under a common prefix and middleware.
type Group struct {
	router      *Router
	prefix      string
	middlewares []Middleware
}

// Use adds middleware to routes registered on g after the call.
func (g *Group) Use(m ...Middleware) {
	g.middlewares = append(g.middlewares, m...)
}

// Add registers h for method and g's prefix joined with pattern.
func (g *Group) Add(method, pattern string, h handler.Handler) error {
	if h != nil {
		h = chain(g.middlewares, h)
	}
	return g.router.Add(method, joinPath(g.prefix, pattern), h)
}

func (g *Group) Get(pattern string, h handler.Handler)     { g.Add(request.MethodGet, pattern, h) }
func (g *Group) Post(pattern string, h handler.Handler)    { g.Add(request.MethodPost, pattern, h) }
func (g *Group) Put(pattern string, h handler.Handler)     { g.Add(request.MethodPut, pattern, h) }
func (g *Group) Patch(pattern string, h handler.Handler)   { g.Add(request.MethodPatch, pattern, h) }
func (g *Group) Delete(pattern string, h handler.Handler)  { g.Add(request.MethodDelete, pattern, h) }
func (g *Group) Options(pattern string, h handler.Handler) { g.Add(request.MethodOptions, pattern, h) }
func (g *Group) Head(pattern string, h handler.Handler)    { g.Add(request.MethodHead, pattern, h) }
func (g *Group) Any(pattern string, h handler.Handler)     { g.Add(MethodAny, pattern, h) }

// Group nests a group under g. The nested group inherits g's middleware.
func (g *Group) Group(prefix string, fn func(g *Group), mws ...Middleware) {
	inherited := append(append([]Middleware(nil), g.middlewares...), mws...)
	fn(&Group{
		router:      g.router,
		prefix:      joinPath(g.prefix, prefix),
		middlewares: inherited,
	})
}
