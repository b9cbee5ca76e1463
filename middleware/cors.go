package middleware

import (
	"slices"
	"strconv"
	"strings"

	"github.com/shravanasati/mearas/handler"
	"github.com/shravanasati/mearas/headers"
	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
	"github.com/shravanasati/mearas/router"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to make cross-origin requests.
	// "*" allows every origin. An entry may contain one wildcard, as in
	// "https://*.example.com". Empty means "*" unless AllowOriginFunc is set.
	AllowedOrigins []string

	// AllowOriginFunc, when set, replaces AllowedOrigins.
	AllowOriginFunc func(r *request.Request, origin string) bool

	// AllowedMethods defaults to GET, HEAD and POST.
	AllowedMethods []string

	// AllowedHeaders lists request headers a preflight may ask for. "*"
	// allows all of them. Origin is always allowed.
	AllowedHeaders []string

	ExposedHeaders   []string
	AllowCredentials bool

	// MaxAge is the preflight cache lifetime in seconds; 0 omits the header.
	MaxAge int

	// OptionsPassthrough hands preflight requests on to the next handler
	// instead of answering them with 204.
	OptionsPassthrough bool
}

type wildcard struct {
	prefix string
	suffix string
}

func (w wildcard) match(s string) bool {
	return len(s) >= len(w.prefix)+len(w.suffix) &&
		strings.HasPrefix(s, w.prefix) &&
		strings.HasSuffix(s, w.suffix)
}

type cors struct {
	allowedOrigins    []string
	allowedWOrigins   []wildcard
	allowOriginFunc   func(r *request.Request, origin string) bool
	allowedHeaders    []string
	allowedMethods    []string
	exposedHeaders    []string
	maxAge            int
	allowedOriginsAll bool
	allowedHeadersAll bool
	allowCredentials  bool
	passthrough       bool
}

func newCORS(cfg CORSConfig) *cors {
	c := &cors{
		allowOriginFunc:  cfg.AllowOriginFunc,
		exposedHeaders:   cfg.ExposedHeaders,
		maxAge:           cfg.MaxAge,
		allowCredentials: cfg.AllowCredentials,
		passthrough:      cfg.OptionsPassthrough,
	}

	if len(cfg.AllowedOrigins) == 0 {
		c.allowedOriginsAll = cfg.AllowOriginFunc == nil
	}
	for _, origin := range cfg.AllowedOrigins {
		origin = strings.ToLower(origin)
		if origin == "*" {
			c.allowedOriginsAll = true
			c.allowedOrigins, c.allowedWOrigins = nil, nil
			break
		}
		if before, after, ok := strings.Cut(origin, "*"); ok {
			c.allowedWOrigins = append(c.allowedWOrigins, wildcard{before, after})
		} else {
			c.allowedOrigins = append(c.allowedOrigins, origin)
		}
	}

	if len(cfg.AllowedHeaders) == 0 {
		c.allowedHeaders = []string{"origin", "accept", "content-type"}
	} else {
		for _, h := range cfg.AllowedHeaders {
			if h == "*" {
				c.allowedHeadersAll = true
				c.allowedHeaders = nil
				break
			}
			c.allowedHeaders = append(c.allowedHeaders, strings.ToLower(h))
		}
		if !c.allowedHeadersAll {
			c.allowedHeaders = append(c.allowedHeaders, "origin")
		}
	}

	if len(cfg.AllowedMethods) == 0 {
		c.allowedMethods = []string{"GET", "POST", "HEAD"}
	} else {
		for _, m := range cfg.AllowedMethods {
			c.allowedMethods = append(c.allowedMethods, strings.ToUpper(m))
		}
	}

	return c
}

// CORS returns a middleware implementing cross-origin resource sharing.
// Preflight requests are answered without reaching the route unless
// OptionsPassthrough is set. With no config every origin is allowed for
// the simple methods.
func CORS(cfg ...CORSConfig) router.Middleware {
	var conf CORSConfig
	if len(cfg) > 0 {
		conf = cfg[0]
	}
	c := newCORS(conf)

	return func(next handler.Handler) handler.Handler {
		return func(r *request.Request) response.Response {
			origin := r.Headers.Get("Origin")
			if r.Method == "OPTIONS" && origin != "" && r.Headers.Get("Access-Control-Request-Method") != "" {
				h := c.preflight(r, origin)
				var resp response.Response
				if c.passthrough {
					resp = response.From(next(r))
				} else {
					resp = response.NewBaseResponse().WithStatusCode(response.StatusNoContent)
				}
				for k, v := range h.All() {
					resp.GetHeaders().Set(k, v)
				}
				return resp
			}

			h := c.actual(r, origin)
			resp := response.From(next(r))
			for k, v := range h.All() {
				resp.GetHeaders().Set(k, v)
			}
			return resp
		}
	}
}

func (c *cors) preflight(r *request.Request, origin string) *headers.Headers {
	h := headers.NewHeaders()
	h.Add("Vary", "Origin")
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")

	if !c.isOriginAllowed(r, origin) {
		return h
	}
	reqMethod := strings.ToUpper(r.Headers.Get("Access-Control-Request-Method"))
	if !c.isMethodAllowed(reqMethod) {
		return h
	}
	reqHeaders := parseHeaderList(r.Headers.Get("Access-Control-Request-Headers"))
	if !c.areHeadersAllowed(reqHeaders) {
		return h
	}

	c.setAllowOrigin(h, origin)
	h.Set("Access-Control-Allow-Methods", reqMethod)
	if len(reqHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(reqHeaders, ", "))
	}
	if c.allowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if c.maxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(c.maxAge))
	}
	return h
}

func (c *cors) actual(r *request.Request, origin string) *headers.Headers {
	h := headers.NewHeaders()
	h.Add("Vary", "Origin")

	if origin == "" || !c.isOriginAllowed(r, origin) || !c.isMethodAllowed(r.Method) {
		return h
	}

	c.setAllowOrigin(h, origin)
	if len(c.exposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(c.exposedHeaders, ", "))
	}
	if c.allowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	return h
}

// credentials are never allowed with a literal "*"
func (c *cors) setAllowOrigin(h *headers.Headers, origin string) {
	if c.allowedOriginsAll && !c.allowCredentials {
		h.Set("Access-Control-Allow-Origin", "*")
	} else {
		h.Set("Access-Control-Allow-Origin", origin)
	}
}

func (c *cors) isOriginAllowed(r *request.Request, origin string) bool {
	if c.allowOriginFunc != nil {
		return c.allowOriginFunc(r, origin)
	}
	if c.allowedOriginsAll {
		return true
	}
	origin = strings.ToLower(origin)
	if slices.Contains(c.allowedOrigins, origin) {
		return true
	}
	for _, w := range c.allowedWOrigins {
		if w.match(origin) {
			return true
		}
	}
	return false
}

func (c *cors) isMethodAllowed(method string) bool {
	if len(c.allowedMethods) == 0 {
		return false
	}
	if method == "OPTIONS" {
		return true
	}
	return slices.Contains(c.allowedMethods, method)
}

func (c *cors) areHeadersAllowed(requested []string) bool {
	if c.allowedHeadersAll || len(requested) == 0 {
		return true
	}
	for _, h := range requested {
		if !slices.Contains(c.allowedHeaders, h) {
			return false
		}
	}
	return true
}

// parseHeaderList splits a comma separated header list into lower-cased
// names.
func parseHeaderList(list string) []string {
	var out []string
	for part := range strings.SplitSeq(list, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
