package middleware

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/shravanasati/mearas/handler"
	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
)

var defaultDenyHandler handler.Handler = func(_ *request.Request) response.Response {
	return response.NewProblem(response.StatusForbidden, "cross-origin request rejected").IntoResponse()
}

func validateOrigin(o string) error {
	u, err := url.Parse(o)
	if err != nil {
		return fmt.Errorf("invalid origin %q: %w", o, err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("invalid origin %q: scheme is required", o)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid origin %q: host is required", o)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("invalid origin %q: path, query, and fragment are not allowed", o)
	}

	return nil
}

// CORF protects against cross-origin request forgery by rejecting unsafe
// requests that browsers mark as cross-site, or whose Origin does not match
// the Host. Build one with NewCORF and install CORF.Handler.
type CORF struct {
	trustedMu      sync.RWMutex
	trustedOrigins map[string]bool
	deny           atomic.Pointer[handler.Handler] // nil means defaultDenyHandler
}

// NewCORF returns a CORF trusting the given origins, which must be bare
// scheme://host[:port] origins.
func NewCORF(trustedOrigins ...string) (*CORF, error) {
	c := &CORF{trustedOrigins: make(map[string]bool)}
	for _, or := range trustedOrigins {
		if err := validateOrigin(or); err != nil {
			return nil, err
		}
		c.trustedOrigins[or] = true
	}
	return c, nil
}

// AddTrustedOrigin adds a trusted origin. It is safe to call while serving.
func (c *CORF) AddTrustedOrigin(origin string) error {
	if err := validateOrigin(origin); err != nil {
		return err
	}
	c.trustedMu.Lock()
	c.trustedOrigins[origin] = true
	c.trustedMu.Unlock()
	return nil
}

// SetDenyHandler sets the handler for rejected requests; nil restores the
// default 403.
func (c *CORF) SetDenyHandler(h handler.Handler) {
	if h == nil {
		c.deny.Store(nil)
		return
	}
	c.deny.Store(&h)
}

func (c *CORF) effectiveDeny() handler.Handler {
	if p := c.deny.Load(); p != nil {
		return *p
	}
	return defaultDenyHandler
}

func (c *CORF) isTrusted(origin string) bool {
	c.trustedMu.RLock()
	defer c.trustedMu.RUnlock()
	return c.trustedOrigins[origin]
}

// Check reports whether r may proceed.
func (c *CORF) Check(r *request.Request) bool {
	if request.IsSafe(r.Method) {
		return true
	}

	origin := r.Headers.Get("Origin")
	if origin != "" && c.isTrusted(origin) {
		return true
	}

	if secFetchSite := strings.ToLower(r.Headers.Get("Sec-Fetch-Site")); secFetchSite != "" {
		return secFetchSite == "same-origin" || secFetchSite == "none"
	}

	if origin == "" {
		// not a browser request, or a very old browser
		return true
	}

	o, err := url.Parse(origin)
	return err == nil && o.Host != "" && o.Host == r.Headers.Get("Host")
}

// Handler is the middleware enforcing c.
func (c *CORF) Handler(next handler.Handler) handler.Handler {
	return func(r *request.Request) response.Response {
		if !c.Check(r) {
			return c.effectiveDeny()(r)
		}
		return next(r)
	}
}
