package router

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/shravanasati/mearas/extract"
	"github.com/shravanasati/mearas/handler"
	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
	"github.com/shravanasati/mearas/routetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func text(s string) handler.Handler {
	return func(r *request.Request) response.Response {
		return response.NewTextResponse(s)
	}
}

func build(t *testing.T, r *Router) *Mux {
	t.Helper()
	m, err := r.Build()
	require.NoError(t, err)
	return m
}

type user struct {
	ID int `json:"id"`
}

func TestDispatchTypedRoute(t *testing.T) {
	r := New()
	r.Get("/users/:id", handler.Handle1(extract.Path[int]("id"), func(_ context.Context, id int) response.Payload[user] {
		return response.JSON(user{ID: id})
	}))
	m := build(t, r)

	rec := routetest.Record(m.Handler(), routetest.NewRequest("GET", "/users/42"))
	assert.Equal(t, response.StatusOK, rec.Status())
	assert.Equal(t, `{"id":42}`, rec.Body())

	rec = routetest.Record(m.Handler(), routetest.NewRequest("GET", "/users/abc"))
	assert.Equal(t, response.StatusNotFound, rec.Status())
}

func TestCaptureBeatsWildcard(t *testing.T) {
	r := New()
	r.Get("/files/:name", handler.Handle1(extract.Path[string]("name"), func(_ context.Context, name string) response.Text {
		return response.Text("name=" + name)
	}))
	r.Get("/files/*rest", handler.Handle1(extract.Path[string]("rest"), func(_ context.Context, rest string) response.Text {
		return response.Text("rest=" + rest)
	}))
	m := build(t, r)

	rec := routetest.Record(m.Handler(), routetest.NewRequest("GET", "/files/report.txt"))
	assert.Equal(t, "name=report.txt", rec.Body())

	rec = routetest.Record(m.Handler(), routetest.NewRequest("GET", "/files/2024/report.txt"))
	assert.Equal(t, "rest=2024/report.txt", rec.Body())
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	r := New()
	r.Post("/items", text("created"))
	r.Get("/things", text("things"))
	r.Add("PURGE", "/things", text("purged"))
	r.Delete("/things", text("deleted"))
	r.Any("/anything", text("any"))
	m := build(t, r)

	tests := []struct {
		name   string
		method string
		target string
		status response.StatusCode
		allow  string
	}{
		{"wrong method", "GET", "/items", response.StatusMethodNotAllowed, "POST"},
		{"unknown path", "GET", "/missing", response.StatusNotFound, ""},
		{"ordered allow with implied head and custom method", "PATCH", "/things", response.StatusMethodNotAllowed, "GET, HEAD, DELETE, PURGE"},
		{"any route never 405", "PATCH", "/anything", response.StatusOK, ""},
		{"trailing slash", "POST", "/items/", response.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := routetest.Record(m.Handler(), routetest.NewRequest(tt.method, tt.target))
			assert.Equal(t, tt.status, rec.Status())
			assert.Equal(t, tt.allow, rec.Header("allow"))
		})
	}
}

func TestCustomFallbacks(t *testing.T) {
	r := New()
	r.Post("/items", text("created"))
	r.NotFound(func(*request.Request) response.Response {
		return response.NewTextResponse("nothing here").WithStatusCode(response.StatusNotFound)
	})
	r.MethodNotAllowed(func(_ *request.Request, allowed []string) response.Response {
		return response.NewTextResponse("try " + strings.Join(allowed, " or "))
	})
	m := build(t, r)

	rec := routetest.Record(m.Handler(), routetest.NewRequest("GET", "/nope"))
	assert.Equal(t, "nothing here", rec.Body())

	rec = routetest.Record(m.Handler(), routetest.NewRequest("GET", "/items"))
	assert.Equal(t, response.StatusMethodNotAllowed, rec.Status())
	assert.Equal(t, "POST", rec.Header("allow"))
	assert.Equal(t, "try POST", rec.Body())
}

func TestHeadFallsBackToGet(t *testing.T) {
	r := New()
	r.Get("/page", text("hello"))
	m := build(t, r)

	rec := routetest.Record(m.Handler(), routetest.NewRequest("HEAD", "/page"))
	assert.Equal(t, response.StatusOK, rec.Status())
	assert.Equal(t, "5", rec.Header("content-length"))
	assert.Empty(t, rec.Body())
}

func TestMiddlewareOrder(t *testing.T) {
	var trace []string
	mw := func(name string) Middleware {
		return func(next handler.Handler) handler.Handler {
			return func(r *request.Request) response.Response {
				trace = append(trace, name+" in")
				resp := next(r)
				trace = append(trace, name+" out")
				return resp
			}
		}
	}

	r := New()
	r.Use(mw("first"), mw("second"))
	r.Get("/", func(*request.Request) response.Response {
		trace = append(trace, "handler")
		return response.NewTextResponse("ok")
	})
	m := build(t, r)

	routetest.Record(m.Handler(), routetest.NewRequest("GET", "/"))
	assert.Equal(t, []string{"first in", "second in", "handler", "second out", "first out"}, trace)

	// middleware also wraps fallbacks
	trace = nil
	rec := routetest.Record(m.Handler(), routetest.NewRequest("GET", "/missing"))
	assert.Equal(t, response.StatusNotFound, rec.Status())
	assert.Equal(t, []string{"first in", "second in", "second out", "first out"}, trace)
}

func TestShortCircuitMiddleware(t *testing.T) {
	auth := func(next handler.Handler) handler.Handler {
		return func(r *request.Request) response.Response {
			if r.Headers.Get("authorization") != "Bearer secret" {
				return response.Default(response.StatusUnauthorized)
			}
			return next(r)
		}
	}

	called := false
	r := New()
	r.Use(auth)
	r.Post("/upload", handler.Handle1(extract.Bytes(), func(_ context.Context, b []byte) response.Text {
		called = true
		return response.Text(b)
	}))
	m := build(t, r)

	rec := routetest.Record(m.Handler(), routetest.NewRequest("POST", "/upload").Text("payload"))
	assert.Equal(t, response.StatusUnauthorized, rec.Status())
	assert.False(t, called)
	assert.False(t, rec.Request.BodyConsumed())

	rec = routetest.Record(m.Handler(), routetest.NewRequest("POST", "/upload").
		Header("Authorization", "Bearer secret").
		Text("payload"))
	assert.Equal(t, response.StatusOK, rec.Status())
	assert.True(t, called)
	assert.Equal(t, "payload", rec.Body())
}

type item struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

func TestJSONRoundTrip(t *testing.T) {
	r := New()
	r.Post("/items", handler.Handle1(extract.JSON[item](), func(_ context.Context, it item) response.Payload[item] {
		return response.JSON(it).WithStatus(response.StatusCreated)
	}))
	m := build(t, r)

	in := item{Name: "lamp", Price: 30}
	rec := routetest.Record(m.Handler(), routetest.NewRequest("POST", "/items").JSON(in))
	require.Equal(t, response.StatusCreated, rec.Status())

	var out item
	rec.JSON(t, &out)
	assert.Equal(t, in, out)
}

func TestDispatchIsIdempotent(t *testing.T) {
	r := New()
	r.Get("/users/:id", handler.Handle1(extract.Path[int]("id"), func(_ context.Context, id int) response.Payload[user] {
		return response.JSON(user{ID: id})
	}))
	m := build(t, r)

	first := routetest.Record(m.Handler(), routetest.NewRequest("GET", "/users/7"))
	second := routetest.Record(m.Handler(), routetest.NewRequest("GET", "/users/7"))
	assert.Equal(t, first.Status(), second.Status())
	assert.Equal(t, first.Body(), second.Body())
	assert.Equal(t, first.Response.GetHeaders().Keys(), second.Response.GetHeaders().Keys())

	t.Run("header map", func(t *testing.T) {
		r := New()
		r.Get("/meta", func(*request.Request) response.Response {
			return response.NewTextResponse("meta").WithHeaders(map[string]string{
				"X-E": "5", "X-A": "1", "X-D": "4", "X-B": "2", "X-C": "3",
			})
		})
		m := build(t, r)

		var want []string
		for range 50 {
			rec := routetest.Record(m.Handler(), routetest.NewRequest("GET", "/meta"))
			keys := rec.Response.GetHeaders().Keys()
			if want == nil {
				want = keys
			}
			assert.Equal(t, want, keys)
		}
		assert.Equal(t, []string{"x-a", "x-b", "x-c", "x-d", "x-e"}, want[len(want)-5:])
	})
}

func TestPanicRecovery(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	r := New(WithLogger(logger))
	r.Use(func(next handler.Handler) handler.Handler {
		return func(req *request.Request) response.Response {
			if req.Path == "/mw-panic" {
				panic("middleware exploded")
			}
			return next(req)
		}
	})
	r.Get("/boom", func(*request.Request) response.Response { panic(errors.New("handler exploded")) })
	r.Get("/nil", func(*request.Request) response.Response { return nil })
	r.Get("/ok", text("ok"))
	m := build(t, r)

	for _, path := range []string{"/boom", "/mw-panic", "/nil"} {
		rec := routetest.Record(m.Handler(), routetest.NewRequest("GET", path))
		assert.Equal(t, response.StatusInternalServerError, rec.Status(), path)
	}
	assert.Contains(t, logs.String(), "handler exploded")
	assert.Contains(t, logs.String(), "middleware exploded")

	rec := routetest.Record(m.Handler(), routetest.NewRequest("GET", "/ok"))
	assert.Equal(t, response.StatusOK, rec.Status())
}

func TestHandlerPanicPassesThroughMiddleware(t *testing.T) {
	var seen []response.StatusCode
	r := New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	r.Use(func(next handler.Handler) handler.Handler {
		return func(req *request.Request) response.Response {
			resp := next(req)
			seen = append(seen, resp.GetStatusCode())
			return resp.WithHeader("X-Seen", "1")
		}
	})
	r.Get("/boom", func(*request.Request) response.Response { panic("handler exploded") })
	m := build(t, r)

	rec := routetest.Record(m.Handler(), routetest.NewRequest("GET", "/boom"))
	assert.Equal(t, response.StatusInternalServerError, rec.Status())
	assert.Equal(t, "1", rec.Header("X-Seen"))
	assert.Equal(t, []response.StatusCode{response.StatusInternalServerError}, seen)
}

func TestCustomRecoveryAndErrorHandler(t *testing.T) {
	r := New(
		WithRecovery(func(_ *request.Request, rec any) response.Response {
			return response.NewTextResponse("recovered").WithStatusCode(response.StatusServiceUnavailable)
		}),
		WithErrorHandler(func(_ *request.Request, err error) response.Response {
			return response.NewTextResponse("bad input").WithStatusCode(response.StatusImATeapot)
		}),
	)
	r.Get("/boom", func(*request.Request) response.Response { panic("x") })
	r.Get("/need", handler.Handle1(extract.Header("x-need"), func(_ context.Context, v string) response.Text {
		return response.Text(v)
	}))
	m := build(t, r)

	rec := routetest.Record(m.Handler(), routetest.NewRequest("GET", "/boom"))
	assert.Equal(t, response.StatusServiceUnavailable, rec.Status())
	assert.Equal(t, "recovered", rec.Body())

	rec = routetest.Record(m.Handler(), routetest.NewRequest("GET", "/need"))
	assert.Equal(t, response.StatusImATeapot, rec.Status())
	assert.Equal(t, "bad input", rec.Body())
}

func TestRegistrationErrors(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		pattern string
		h       handler.Handler
		want    error
	}{
		{"no leading slash", "GET", "users", text("x"), ErrInvalidPattern},
		{"empty segment", "GET", "/a//b", text("x"), ErrInvalidPattern},
		{"wildcard not last", "GET", "/a/*rest/b", text("x"), ErrInvalidPattern},
		{"duplicate", "GET", "/taken", text("x"), ErrAmbiguousRoute},
		{"conflicting capture", "GET", "/users/:name", text("x"), ErrAmbiguousRoute},
		{"bad method", "GE T", "/x", text("x"), ErrInvalidMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			require.NoError(t, r.Add("GET", "/taken", text("x")))
			require.NoError(t, r.Add("GET", "/users/:id", text("x")))

			err := r.Add(tt.method, tt.pattern, tt.h)
			require.ErrorIs(t, err, tt.want)

			var re *RouteError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.pattern, re.Pattern)

			_, err = r.Build()
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("shorthand errors surface at build", func(t *testing.T) {
		r := New()
		r.Get("/a", text("x"))
		r.Get("/a/", text("y"))
		_, err := r.Build()
		assert.ErrorIs(t, err, ErrAmbiguousRoute)
	})

	t.Run("same pattern under different methods is fine", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Add("GET", "/users/:id", text("x")))
		require.NoError(t, r.Add("DELETE", "/users/:uid", text("x")))
		require.NoError(t, r.Add(MethodAny, "/users/:id", text("x")))
	})
}

func TestFrozen(t *testing.T) {
	r := New()
	r.Get("/", text("root"))
	build(t, r)

	assert.ErrorIs(t, r.Add("GET", "/late", text("late")), ErrFrozen)
	assert.Panics(t, func() { r.Use(func(h handler.Handler) handler.Handler { return h }) })

	_, err := r.Build()
	assert.Error(t, err)
}

func TestGroups(t *testing.T) {
	tag := func(v string) Middleware {
		return func(next handler.Handler) handler.Handler {
			return func(r *request.Request) response.Response {
				return next(r).WithHeader("x-tag", v)
			}
		}
	}

	r := New()
	r.Group("/api", func(api *Group) {
		api.Get("/health", text("up"))
		api.Group("/v1", func(v1 *Group) {
			v1.Get("/users/:id", handler.Handle1(extract.Path[int]("id"), func(_ context.Context, id int) response.Payload[user] {
				return response.JSON(user{ID: id})
			}))
			v1.Get("/", text("v1 root"))
		}, tag("v1"))
	}, tag("api"))
	r.Get("/public", text("public"))
	m := build(t, r)

	rec := routetest.Record(m.Handler(), routetest.NewRequest("GET", "/api/health"))
	assert.Equal(t, "up", rec.Body())
	assert.Equal(t, []string{"api"}, rec.Response.GetHeaders().Values("x-tag"))

	rec = routetest.Record(m.Handler(), routetest.NewRequest("GET", "/api/v1/users/3"))
	assert.Equal(t, `{"id":3}`, rec.Body())
	assert.Equal(t, []string{"v1", "api"}, rec.Response.GetHeaders().Values("x-tag"))

	rec = routetest.Record(m.Handler(), routetest.NewRequest("GET", "/api/v1"))
	assert.Equal(t, "v1 root", rec.Body())

	rec = routetest.Record(m.Handler(), routetest.NewRequest("GET", "/public"))
	assert.Empty(t, rec.Header("x-tag"))

	assert.Equal(t, []RouteInfo{
		{Method: "GET", Pattern: "/api/health"},
		{Method: "GET", Pattern: "/api/v1/users/:id"},
		{Method: "GET", Pattern: "/api/v1"},
		{Method: "GET", Pattern: "/public"},
	}, m.Routes())
}

func TestConcurrentDispatch(t *testing.T) {
	r := New()
	r.Get("/users/:id", handler.Handle1(extract.Path[int]("id"), func(_ context.Context, id int) response.Payload[user] {
		return response.JSON(user{ID: id})
	}))
	m := build(t, r)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := routetest.Record(m.Handler(), routetest.NewRequest("GET", "/users/9"))
			assert.Equal(t, `{"id":9}`, rec.Body())
		}()
	}
	wg.Wait()
}

func TestMatchedPattern(t *testing.T) {
	var seen string
	r := New()
	r.Use(func(next handler.Handler) handler.Handler {
		return func(req *request.Request) response.Response {
			assert.Empty(t, MatchedPattern(req))
			resp := next(req)
			seen = MatchedPattern(req)
			return resp
		}
	})
	r.Get("/users/:id/", text("x"))
	m := build(t, r)

	routetest.Record(m.Handler(), routetest.NewRequest("GET", "/users/5"))
	assert.Equal(t, "/users/:id", seen)

	routetest.Record(m.Handler(), routetest.NewRequest("GET", "/nope"))
	assert.Empty(t, seen)
}
