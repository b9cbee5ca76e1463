package middleware

import (
	"fmt"
	"io"
	"strconv"

	"github.com/shravanasati/mearas/handler"
	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
	"github.com/shravanasati/mearas/router"
)

// BodyLimit rejects bodies larger than n bytes. A declared Content-Length
// over the limit is refused with 413 before the handler runs; otherwise the
// body is wrapped so that reading past the limit fails, which body
// extractors report as 413.
func BodyLimit(n int64) router.Middleware {
	return func(next handler.Handler) handler.Handler {
		return func(r *request.Request) response.Response {
			if cl := r.Headers.Get("Content-Length"); cl != "" {
				size, err := strconv.ParseInt(cl, 10, 64)
				if err == nil && size > n {
					return response.NewProblem(
						response.StatusPayloadTooLarge,
						fmt.Sprintf("request body of %d bytes exceeds the limit of %d bytes", size, n),
					).IntoResponse()
				}
			}

			// an already claimed body is left as is
			_ = r.WrapBody(func(rc io.ReadCloser) io.ReadCloser {
				return request.LimitBody(rc, n)
			})
			return next(r)
		}
	}
}
