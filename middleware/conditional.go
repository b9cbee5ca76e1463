package middleware

import (
	"net/http"
	"time"

	"github.com/shravanasati/mearas/handler"
	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
	"github.com/shravanasati/mearas/router"
)

// LastModifiedFunc reports when the resource addressed by r last changed.
// ok is false when the time is unknown.
type LastModifiedFunc func(r *request.Request) (t time.Time, ok bool)

// IfModifiedSince answers GET and HEAD requests carrying If-Modified-Since
// with 304 when the resource has not changed since. An unparsable date is a
// 400. Responses that reach the handler get a Last-Modified header.
func IfModifiedSince(lastModified LastModifiedFunc) router.Middleware {
	return func(next handler.Handler) handler.Handler {
		return func(r *request.Request) response.Response {
			if r.Method != request.MethodGet && r.Method != request.MethodHead {
				return next(r)
			}
			modified, ok := lastModified(r)
			if !ok {
				return next(r)
			}
			// HTTP dates carry whole seconds
			modified = modified.UTC().Truncate(time.Second)

			if v := r.Headers.Get("If-Modified-Since"); v != "" {
				since, err := http.ParseTime(v)
				if err != nil {
					return response.NewProblem(response.StatusBadRequest, "invalid If-Modified-Since header").IntoResponse()
				}
				if !modified.After(since) {
					return response.NewBaseResponse().
						WithStatusCode(response.StatusNotModified).
						WithHeader("Last-Modified", modified.Format(http.TimeFormat))
				}
			}

			resp := response.From(next(r))
			if !resp.GetHeaders().Has("Last-Modified") {
				resp.WithHeader("Last-Modified", modified.Format(http.TimeFormat))
			}
			return resp
		}
	}
}
