package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/shravanasati/mearas/handler"
	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
	"github.com/shravanasati/mearas/router"
)

// Timeout puts a deadline on the request context. Handlers and extractors
// observe it through r.Context(); a handler that returns after the deadline
// has passed gets its response replaced with 503.
func Timeout(d time.Duration) router.Middleware {
	return func(next handler.Handler) handler.Handler {
		return func(r *request.Request) response.Response {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			resp := next(r.WithContext(ctx))
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return response.NewProblem(response.StatusServiceUnavailable, "request timed out").IntoResponse()
			}
			return resp
		}
	}
}
