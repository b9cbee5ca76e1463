package middleware

import (
	"github.com/google/uuid"
	"github.com/shravanasati/mearas/handler"
	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
	"github.com/shravanasati/mearas/router"
)

// RequestIDKey is the request local holding the request ID.
const RequestIDKey = "middleware.request_id"

// RequestIDConfig configures the RequestID middleware.
type RequestIDConfig struct {
	Header    string        // default: "X-Request-ID"
	Generator func() string // default: UUID v4
	// IgnoreIncoming always generates a fresh ID instead of trusting the
	// request header.
	IgnoreIncoming bool
}

// RequestID assigns an ID to each request. The ID is taken from the request
// header when present, stored as a request local and echoed in the response
// header.
func RequestID(cfg ...RequestIDConfig) router.Middleware {
	c := RequestIDConfig{
		Header:    "X-Request-ID",
		Generator: func() string { return uuid.NewString() },
	}
	if len(cfg) > 0 {
		if cfg[0].Header != "" {
			c.Header = cfg[0].Header
		}
		if cfg[0].Generator != nil {
			c.Generator = cfg[0].Generator
		}
		c.IgnoreIncoming = cfg[0].IgnoreIncoming
	}

	return func(next handler.Handler) handler.Handler {
		return func(r *request.Request) response.Response {
			var id string
			if !c.IgnoreIncoming {
				id = r.Headers.Get(c.Header)
			}
			if id == "" {
				id = c.Generator()
			}
			r.Set(RequestIDKey, id)

			resp := response.From(next(r))
			resp.GetHeaders().Set(c.Header, id)
			return resp
		}
	}
}

// GetRequestID returns the ID assigned by RequestID, or "".
func GetRequestID(r *request.Request) string {
	if v, ok := r.Get(RequestIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
