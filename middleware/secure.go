package middleware

import (
	"strconv"
	"strings"

	"github.com/shravanasati/mearas/handler"
	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
	"github.com/shravanasati/mearas/router"
)

// SecureConfig configures the SecureHeaders middleware.
type SecureConfig struct {
	ContentTypeNosniff bool // X-Content-Type-Options: nosniff
	FrameDeny          bool // X-Frame-Options: DENY
	// HSTSMaxAge in seconds; 0 disables Strict-Transport-Security.
	HSTSMaxAge            int
	HSTSIncludeSubDomains bool
	// HSTSPreload implies includeSubDomains.
	HSTSPreload    bool
	ReferrerPolicy string
}

// DefaultSecureConfig is used by SecureHeaders when called without a config.
var DefaultSecureConfig = SecureConfig{
	ContentTypeNosniff: true,
	FrameDeny:          true,
	ReferrerPolicy:     "strict-origin-when-cross-origin",
}

// SecureHeaders sets security related response headers. Headers the handler
// already set are left alone.
func SecureHeaders(cfg ...SecureConfig) router.Middleware {
	c := DefaultSecureConfig
	if len(cfg) > 0 {
		c = cfg[0]
	}
	hsts := hstsValue(c)

	return func(next handler.Handler) handler.Handler {
		return func(r *request.Request) response.Response {
			resp := response.From(next(r))
			h := resp.GetHeaders()
			setDefault := func(k, v string) {
				if !h.Has(k) {
					h.Set(k, v)
				}
			}

			if c.ContentTypeNosniff {
				setDefault("X-Content-Type-Options", "nosniff")
			}
			if c.FrameDeny {
				setDefault("X-Frame-Options", "DENY")
			}
			if hsts != "" {
				setDefault("Strict-Transport-Security", hsts)
			}
			if c.ReferrerPolicy != "" {
				setDefault("Referrer-Policy", c.ReferrerPolicy)
			}
			return resp
		}
	}
}

func hstsValue(c SecureConfig) string {
	if c.HSTSMaxAge <= 0 {
		return ""
	}
	parts := []string{"max-age=" + strconv.Itoa(c.HSTSMaxAge)}
	if c.HSTSIncludeSubDomains || c.HSTSPreload {
		parts = append(parts, "includeSubDomains")
	}
	if c.HSTSPreload {
		parts = append(parts, "preload")
	}
	return strings.Join(parts, "; ")
}
