package middleware

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/shravanasati/mearas/handler"
	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
	"github.com/shravanasati/mearas/router"
)

// UserKey is the request local BasicAuth stores the authenticated user under.
const UserKey = "mearas.user"

type Account struct {
	Username string
	Password string
}

func unauthorized(realm string) response.Response {
	return response.Default(response.StatusUnauthorized).
		WithHeader("www-authenticate", `Basic realm="`+realm+`"`)
}

// BasicAuth rejects requests without valid Basic credentials for one of the
// accounts. The handler is not called and the body is left untouched.
func BasicAuth(realm string, accounts []Account) router.Middleware {
	if realm == "" {
		realm = "Restricted"
	}
	accountMap := make(map[string]string)
	for _, acc := range accounts {
		accountMap[acc.Username] = acc.Password
	}

	return func(next handler.Handler) handler.Handler {
		return func(r *request.Request) response.Response {
			auth := r.Headers.Get("Authorization")

			scheme, encoded, ok := strings.Cut(auth, " ")
			if !ok || !strings.EqualFold(scheme, "Basic") {
				return unauthorized(realm)
			}

			payload, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
			if err != nil {
				return response.NewProblem(response.StatusBadRequest, "invalid authorization header").IntoResponse()
			}

			user, pass, ok := strings.Cut(string(payload), ":")
			if !ok {
				return response.NewProblem(response.StatusBadRequest, "invalid authorization header").IntoResponse()
			}

			actualPass, ok := accountMap[user]
			if !ok || subtle.ConstantTimeCompare([]byte(actualPass), []byte(pass)) != 1 {
				return unauthorized(realm)
			}

			r.Set(UserKey, user)
			return next(r)
		}
	}
}

// RequireHeader short-circuits with 401 unless the request carries header
// name. If value is not empty the header must also equal it exactly.
func RequireHeader(name, value string) router.Middleware {
	return func(next handler.Handler) handler.Handler {
		return func(r *request.Request) response.Response {
			if !r.Headers.Has(name) {
				return response.NewProblem(response.StatusUnauthorized, "missing header "+strings.ToLower(name)).IntoResponse()
			}
			if value != "" && subtle.ConstantTimeCompare([]byte(r.Headers.Get(name)), []byte(value)) != 1 {
				return response.NewProblem(response.StatusUnauthorized, "invalid header "+strings.ToLower(name)).IntoResponse()
			}
			return next(r)
		}
	}
}
