package response

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedirectResponder(t *testing.T) {
	resp := Redirect("/login?next=%2Fadmin").IntoResponse()

	assert.Equal(t, StatusFound, resp.GetStatusCode())
	assert.Equal(t, "/login?next=%2Fadmin", resp.GetHeaders().Get("Location"))
	assert.Equal(t, "0", resp.GetHeaders().Get("Content-Length"))
	assert.Empty(t, readBody(t, resp))
}

func TestNewRedirectResponseWithStatus(t *testing.T) {
	tests := []struct {
		name string
		code StatusCode
		want StatusCode
	}{
		{"moved permanently", StatusMovedPermanently, StatusMovedPermanently},
		{"see other", StatusSeeOther, StatusSeeOther},
		{"temporary", StatusTemporaryRedirect, StatusTemporaryRedirect},
		{"permanent", StatusPermanentRedirect, StatusPermanentRedirect},
		{"success is not a redirect", StatusOK, StatusFound},
		{"client error is not a redirect", StatusNotFound, StatusFound},
		{"server error is not a redirect", StatusInternalServerError, StatusFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewRedirectResponseWithStatus("https://example.com/new", tt.code)
			assert.Equal(t, tt.want, resp.GetStatusCode())
			assert.Equal(t, "https://example.com/new", resp.GetHeaders().Get("location"))
		})
	}
}

func TestRedirectInResult(t *testing.T) {
	moved := Err[Text](Redirect("/v2/items"))
	resp := moved.IntoResponse()
	assert.Equal(t, StatusFound, resp.GetStatusCode())
	assert.Equal(t, "/v2/items", resp.GetHeaders().Get("location"))

	resp = WithStatus(StatusSeeOther, Redirect("/done")).IntoResponse()
	assert.Equal(t, StatusSeeOther, resp.GetStatusCode())
	assert.Equal(t, "/done", resp.GetHeaders().Get("location"))
}

func TestRedirectWrite(t *testing.T) {
	var sb strings.Builder
	resp := NewRedirectResponseWithStatus("/elsewhere", StatusPermanentRedirect)
	require.NoError(t, resp.Write(&sb))

	assert.Equal(t,
		"HTTP/1.1 308 Permanent Redirect\r\ncontent-length: 0\r\nlocation: /elsewhere\r\n\r\n",
		sb.String(),
	)
}
