package middleware

import (
	"sync"
	"testing"

	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
	"github.com/shravanasati/mearas/routetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = func(_ *request.Request) response.Response {
	return response.NewTextResponse("ok")
}

func TestCORFSecFetchSite(t *testing.T) {
	corf, err := NewCORF()
	require.NoError(t, err)
	h := corf.Handler(okHandler)

	tests := []struct {
		name           string
		method         string
		secFetchSite   string
		origin         string
		expectedStatus response.StatusCode
	}{
		{"same-origin allowed", "POST", "same-origin", "", response.StatusOK},
		{"none allowed", "POST", "none", "", response.StatusOK},
		{"cross-site blocked", "POST", "cross-site", "", response.StatusForbidden},
		{"same-site blocked", "POST", "same-site", "", response.StatusForbidden},

		{"no header with no origin", "POST", "", "", response.StatusOK},
		{"no header with matching origin", "POST", "", "https://example.com", response.StatusOK},
		{"no header with mismatched origin", "POST", "", "https://attacker.example", response.StatusForbidden},
		{"no header with null origin", "POST", "", "null", response.StatusForbidden},

		{"GET allowed", "GET", "cross-site", "", response.StatusOK},
		{"HEAD allowed", "HEAD", "cross-site", "", response.StatusOK},
		{"OPTIONS allowed", "OPTIONS", "cross-site", "", response.StatusOK},
		{"PUT blocked", "PUT", "cross-site", "", response.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := routetest.NewRequest(tc.method, "/").Header("Host", "example.com")
			if tc.secFetchSite != "" {
				b.Header("Sec-Fetch-Site", tc.secFetchSite)
			}
			if tc.origin != "" {
				b.Header("Origin", tc.origin)
			}

			assert.Equal(t, tc.expectedStatus, routetest.Record(h, b).Status())
		})
	}
}

func TestCORFSetDenyHandler(t *testing.T) {
	corf, err := NewCORF()
	require.NoError(t, err)
	h := corf.Handler(okHandler)
	req := func() *routetest.RequestBuilder {
		return routetest.NewRequest("POST", "/").Header("Sec-Fetch-Site", "cross-site")
	}

	rec := routetest.Record(h, req())
	assert.Equal(t, response.StatusForbidden, rec.Status())
	assert.Equal(t, "application/problem+json", rec.Header("content-type"))

	corf.SetDenyHandler(func(_ *request.Request) response.Response {
		return response.NewTextResponse("custom error").WithStatusCode(response.StatusImATeapot)
	})
	rec = routetest.Record(h, req())
	assert.Equal(t, response.StatusImATeapot, rec.Status())
	assert.Contains(t, rec.Body(), "custom error")

	corf.SetDenyHandler(nil)
	assert.Equal(t, response.StatusForbidden, routetest.Record(h, req()).Status())
}

func TestCORFTrustedOriginBypass(t *testing.T) {
	corf, err := NewCORF("https://trusted.example")
	require.NoError(t, err)
	h := corf.Handler(okHandler)

	tests := []struct {
		name           string
		origin         string
		secFetchSite   string
		expectedStatus response.StatusCode
	}{
		{"trusted origin without sec-fetch-site", "https://trusted.example", "", response.StatusOK},
		{"trusted origin with cross-site", "https://trusted.example", "cross-site", response.StatusOK},
		{"untrusted origin without sec-fetch-site", "https://attacker.example", "", response.StatusForbidden},
		{"untrusted origin with cross-site", "https://attacker.example", "cross-site", response.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := routetest.NewRequest("POST", "/").
				Header("Host", "example.com").
				Header("Origin", tc.origin)
			if tc.secFetchSite != "" {
				b.Header("Sec-Fetch-Site", tc.secFetchSite)
			}
			assert.Equal(t, tc.expectedStatus, routetest.Record(h, b).Status())
		})
	}
}

func TestCORFTrustedOriginValidation(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		wantErr bool
	}{
		{"valid origin", "https://example.com", false},
		{"valid origin with port", "https://example.com:8080", false},
		{"http origin", "http://example.com", false},
		{"missing scheme", "example.com", true},
		{"missing host", "https://", true},
		{"trailing slash", "https://example.com/", true},
		{"with path", "https://example.com/path", true},
		{"with query", "https://example.com?query=value", true},
		{"with fragment", "https://example.com#fragment", true},
		{"invalid url", "https://ex ample.com", true},
		{"empty string", "", true},
		{"null", "null", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCORF(tc.origin)
			assert.Equal(t, tc.wantErr, err != nil, "NewCORF(%q) error = %v", tc.origin, err)

			corf, err := NewCORF()
			require.NoError(t, err)
			err = corf.AddTrustedOrigin(tc.origin)
			assert.Equal(t, tc.wantErr, err != nil, "AddTrustedOrigin(%q) error = %v", tc.origin, err)
		})
	}
}

func TestCORFAddingTrustedOriginConcurrently(t *testing.T) {
	corf, err := NewCORF()
	require.NoError(t, err)
	h := corf.Handler(okHandler)
	req := func() *routetest.RequestBuilder {
		return routetest.NewRequest("POST", "/").
			Header("Origin", "https://concurrent.example").
			Header("Sec-Fetch-Site", "cross-site")
	}

	assert.Equal(t, response.StatusForbidden, routetest.Record(h, req()).Status())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 10 {
			routetest.Record(h, req())
		}
	}()
	require.NoError(t, corf.AddTrustedOrigin("https://concurrent.example"))
	wg.Wait()

	assert.Equal(t, response.StatusOK, routetest.Record(h, req()).Status())
}
