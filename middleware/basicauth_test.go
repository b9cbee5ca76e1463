package middleware

import (
	"encoding/base64"
	"testing"

	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
	"github.com/shravanasati/mearas/routetest"
	"github.com/stretchr/testify/assert"
)

func basic(creds string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
}

func TestBasicAuth(t *testing.T) {
	mw := BasicAuth("", []Account{{Username: "user", Password: "pass"}})

	tests := []struct {
		name          string
		authorization string
		status        response.StatusCode
		challenge     bool
	}{
		{"no header", "", response.StatusUnauthorized, true},
		{"other scheme", "Bearer token", response.StatusUnauthorized, true},
		{"no colon", basic("useronly"), response.StatusBadRequest, false},
		{"invalid base64", "Basic not-base64!!", response.StatusBadRequest, false},
		{"wrong password", basic("user:wrong"), response.StatusUnauthorized, true},
		{"unknown user", basic("other:pass"), response.StatusUnauthorized, true},
		{"success", basic("user:pass"), response.StatusOK, false},
		{"lowercase scheme", "basic " + base64.StdEncoding.EncodeToString([]byte("user:pass")), response.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := mw(func(r *request.Request) response.Response {
				called = true
				user, _ := r.Get(UserKey)
				assert.Equal(t, "user", user)
				return response.NewBaseResponse()
			})

			b := routetest.NewRequest("POST", "/").Text("secret body")
			if tt.authorization != "" {
				b.Header("Authorization", tt.authorization)
			}
			rec := routetest.Record(h, b)

			assert.Equal(t, tt.status, rec.Status())
			assert.Equal(t, tt.status == response.StatusOK, called)
			assert.False(t, rec.Request.BodyConsumed())
			if tt.challenge {
				assert.Equal(t, `Basic realm="Restricted"`, rec.Header("www-authenticate"))
			}
		})
	}
}

func TestRequireHeader(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		header string
		status response.StatusCode
	}{
		{"presence only", "", "anything", response.StatusOK},
		{"exact match", "Bearer secret", "Bearer secret", response.StatusOK},
		{"mismatch", "Bearer secret", "Bearer guess", response.StatusUnauthorized},
		{"missing", "Bearer secret", "", response.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequireHeader("Authorization", tt.value)(okHandler)
			b := routetest.NewRequest("GET", "/")
			if tt.header != "" {
				b.Header("Authorization", tt.header)
			}
			assert.Equal(t, tt.status, routetest.Record(h, b).Status())
		})
	}
}
