// Package request holds the per-request context handed to handlers and
// extractors: method, target, headers, path parameters, a lazily parsed query
// and a body that can be claimed only once.
package request

import (
	"context"
	"io"
	"mime"
	"net/url"
	"strings"
	"sync"

	"github.com/shravanasati/mearas/headers"
)

type queryCache struct {
	once   sync.Once
	values url.Values
	err    error
}

// Request is the per-request context. It is owned by the task serving the
// request and must not be shared across requests.
type Request struct {
	Method string
	// Target is the request target exactly as received.
	Target string
	// Path is the escaped path component of the target.
	Path       string
	RawQuery   string
	Headers    *headers.Headers
	PathParams map[string]string
	RemoteAddr string

	ctx    context.Context
	body   *bodyHandle
	query  *queryCache
	locals *locals
}

type locals struct {
	mu     sync.RWMutex
	values map[string]any
}

// Option configures a Request built with New.
type Option func(*Request)

// WithHeaders sets the request headers.
func WithHeaders(h *headers.Headers) Option {
	return func(r *Request) {
		if h != nil {
			r.Headers = h
		}
	}
}

// WithBody sets the body handle source. A ReadCloser is closed by Close.
func WithBody(body io.Reader) Option {
	return func(r *Request) {
		r.body = newBodyHandle(body)
	}
}

// WithRemoteAddr sets the peer address.
func WithRemoteAddr(addr string) Option {
	return func(r *Request) {
		r.RemoteAddr = addr
	}
}

// WithContext sets the context the request is served under.
func WithContext(ctx context.Context) Option {
	return func(r *Request) {
		r.ctx = ctx
	}
}

// New builds a Request from a method and a request target.
func New(method, target string, opts ...Option) (*Request, error) {
	path, rawQuery, err := splitTarget(target)
	if err != nil {
		return nil, err
	}

	r := &Request{
		Method:     strings.ToUpper(method),
		Target:     target,
		Path:       path,
		RawQuery:   rawQuery,
		Headers:    headers.NewHeaders(),
		PathParams: map[string]string{},
		body:       newBodyHandle(nil),
		query:      &queryCache{},
		locals:     &locals{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func splitTarget(target string) (string, string, error) {
	if target == "*" {
		return target, "", nil
	}

	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		u, err := url.Parse(target)
		if err != nil {
			return "", "", ErrInvalidTarget
		}
		path := u.EscapedPath()
		if path == "" {
			path = "/"
		}
		return path, u.RawQuery, nil
	}

	if !strings.HasPrefix(target, "/") {
		return "", "", ErrInvalidTarget
	}

	target, _, _ = strings.Cut(target, "#")
	path, rawQuery, _ := strings.Cut(target, "?")
	return path, rawQuery, nil
}

// Context returns the request context, never nil.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext returns a shallow copy of r using ctx. The copy shares the body
// handle and the query cache with r.
func (r *Request) WithContext(ctx context.Context) *Request {
	r2 := *r
	r2.ctx = ctx
	return &r2
}

// Param returns a path parameter by capture name.
func (r *Request) Param(name string) (string, bool) {
	v, ok := r.PathParams[name]
	return v, ok
}

// Query parses the raw query on first use and caches the result, including
// the parse error, for the rest of the request.
func (r *Request) Query() (url.Values, error) {
	if r.query == nil {
		r.query = &queryCache{}
	}
	r.query.once.Do(func() {
		r.query.values, r.query.err = url.ParseQuery(r.RawQuery)
	})
	return r.query.values, r.query.err
}

// TakeBody claims the body. Only the first caller succeeds; every later call
// returns ErrBodyConsumed.
func (r *Request) TakeBody() (io.ReadCloser, error) {
	if r.body == nil {
		r.body = newBodyHandle(nil)
	}
	return r.body.take()
}

// BodyConsumed reports whether the body has been claimed.
func (r *Request) BodyConsumed() bool {
	return r.body != nil && r.body.consumed.Load()
}

// WrapBody replaces the body reader with fn(body) as long as nobody has
// claimed it yet.
func (r *Request) WrapBody(fn func(io.ReadCloser) io.ReadCloser) error {
	if r.body == nil {
		r.body = newBodyHandle(nil)
	}
	return r.body.wrap(fn)
}

// OnClose registers fn to run when the request is closed, e.g. to remove
// temporary files created while reading the body.
func (r *Request) OnClose(fn func() error) {
	if r.body == nil {
		r.body = newBodyHandle(nil)
	}
	r.body.mu.Lock()
	r.body.onClose = append(r.body.onClose, fn)
	r.body.mu.Unlock()
}

// Close releases the body, discarding whatever was not read, and runs the
// functions registered with OnClose.
func (r *Request) Close() error {
	if r.body == nil {
		return nil
	}
	return r.body.close()
}

// ContentType returns the lowercased media type of the Content-Type header
// without parameters, or "" when absent or unparsable.
func (r *Request) ContentType() string {
	ct := r.Headers.Get("content-type")
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return mt
}

// Set stores a request-scoped value, e.g. a request id set by middleware.
// Copies made with WithContext see the same values.
func (r *Request) Set(key string, value any) {
	if r.locals == nil {
		r.locals = &locals{}
	}
	r.locals.mu.Lock()
	defer r.locals.mu.Unlock()
	if r.locals.values == nil {
		r.locals.values = map[string]any{}
	}
	r.locals.values[key] = value
}

// Get returns a value stored with Set.
func (r *Request) Get(key string) (any, bool) {
	if r.locals == nil {
		return nil, false
	}
	r.locals.mu.RLock()
	defer r.locals.mu.RUnlock()
	v, ok := r.locals.values[key]
	return v, ok
}
