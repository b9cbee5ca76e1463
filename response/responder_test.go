package response

import (
	"encoding/json"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readBody(t *testing.T, r Response) string {
	t.Helper()
	if r.GetBody() == nil {
		return ""
	}
	b, err := io.ReadAll(r.GetBody())
	require.NoError(t, err)
	return string(b)
}

func TestBuiltinResponders(t *testing.T) {
	tests := []struct {
		name        string
		responder   Responder
		status      StatusCode
		contentType string
		body        string
	}{
		{"text", Text("hello"), StatusOK, "text/plain; charset=utf-8", "hello"},
		{"html", HTML("<p>hi</p>"), StatusOK, "text/html; charset=utf-8", "<p>hi</p>"},
		{"bytes", Bytes{0x01, 0x02}, StatusOK, "application/octet-stream", "\x01\x02"},
		{"status", StatusNotFound, StatusNotFound, "text/plain; charset=utf-8", "Not Found"},
		{"status without body", StatusNoContent, StatusNoContent, "", ""},
		{"no content", NoContent{}, StatusNoContent, "", ""},
		{"with status", WithStatus(StatusCreated, Text("made")), StatusCreated, "text/plain; charset=utf-8", "made"},
		{"redirect", Redirect("/home"), StatusFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := tt.responder.IntoResponse()
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.GetStatusCode())
			assert.Equal(t, tt.contentType, resp.GetHeaders().Get("content-type"))
			assert.Equal(t, tt.body, readBody(t, resp))
		})
	}
}

func TestFixedBodySetsContentLength(t *testing.T) {
	resp := Text("hello").IntoResponse()
	assert.Equal(t, "5", resp.GetHeaders().Get("content-length"))
	assert.Equal(t, BodyFixed, resp.BodyKind())
	assert.Equal(t, BodyEmpty, NoContent{}.IntoResponse().BodyKind())
}

func TestWithHeaderResponder(t *testing.T) {
	resp := WithHeader(Text("x"), "X-Trace", "abc").IntoResponse()
	assert.Equal(t, "abc", resp.GetHeaders().Get("x-trace"))
	assert.Equal(t, "x", readBody(t, resp))
}

func TestResult(t *testing.T) {
	ok := Ok[Text, StatusCode]("fine")
	assert.False(t, ok.IsErr())
	resp := ok.IntoResponse()
	assert.Equal(t, StatusOK, resp.GetStatusCode())
	assert.Equal(t, "fine", readBody(t, resp))

	failed := Err[Text](StatusConflict)
	assert.True(t, failed.IsErr())
	resp = failed.IntoResponse()
	assert.Equal(t, StatusConflict, resp.GetStatusCode())
	assert.Equal(t, "Conflict", readBody(t, resp))
}

func TestFromNil(t *testing.T) {
	resp := From(nil)
	assert.Equal(t, StatusOK, resp.GetStatusCode())
	assert.Equal(t, BodyEmpty, resp.BodyKind())

	resp = From(Func(func() Response { return nil }))
	assert.Equal(t, StatusOK, resp.GetStatusCode())

	t.Run("typed nil", func(t *testing.T) {
		var base *BaseResponse
		var stream *StreamResponse
		var fn Func
		for _, r := range []Responder{base, stream, fn, Func(func() Response { return base })} {
			resp := From(r)
			assert.Equal(t, StatusOK, resp.GetStatusCode())
			assert.Equal(t, BodyEmpty, resp.BodyKind())
		}

		resp := Err[Text, *BaseResponse](nil).IntoResponse()
		assert.Equal(t, StatusOK, resp.GetStatusCode())
	})
}

type user struct {
	ID   int    `json:"id" yaml:"id" toml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
}

func TestPayload(t *testing.T) {
	tests := []struct {
		name        string
		responder   Responder
		contentType string
		contains    string
	}{
		{"json", JSON(user{ID: 42}), "application/json", `{"id":42}`},
		{"yaml", YAML(user{ID: 42}), "application/yaml", "id: 42"},
		{"toml", TOML(user{ID: 42}), "application/toml", "id = 42"},
		{"msgpack", MsgPack(user{ID: 42}), "application/msgpack", "id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := tt.responder.IntoResponse()
			assert.Equal(t, StatusOK, resp.GetStatusCode())
			assert.Equal(t, tt.contentType, resp.GetHeaders().Get("content-type"))
			assert.Contains(t, readBody(t, resp), tt.contains)
		})
	}
}

func TestPayloadStatusAndFailure(t *testing.T) {
	resp := JSON(user{ID: 1}).WithStatus(StatusCreated).IntoResponse()
	assert.Equal(t, StatusCreated, resp.GetStatusCode())

	resp = JSON(math.Inf(1)).IntoResponse()
	assert.Equal(t, StatusInternalServerError, resp.GetStatusCode())
}

func TestNewJSONResponse(t *testing.T) {
	resp, err := NewJSONResponse(map[string]int{"id": 42})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":42}`, readBody(t, resp))

	_, err = NewJSONResponse(make(chan int))
	assert.Error(t, err)
}

func TestProblem(t *testing.T) {
	resp := NewProblem(StatusBadRequest, "missing header x-token").IntoResponse()
	assert.Equal(t, StatusBadRequest, resp.GetStatusCode())
	assert.Equal(t, "application/problem+json", resp.GetHeaders().Get("content-type"))

	var p Problem
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &p))
	assert.Equal(t, "Bad Request", p.Title)
	assert.Equal(t, 400, p.Status)
	assert.Equal(t, "missing header x-token", p.Detail)

	resp = Problem{}.IntoResponse()
	assert.Equal(t, StatusInternalServerError, resp.GetStatusCode())
}

func TestETag(t *testing.T) {
	tag := ETagFor([]byte("hello"))
	assert.True(t, strings.HasPrefix(tag, `"`))
	assert.Equal(t, tag, ETagFor([]byte("hello")))
	assert.NotEqual(t, tag, ETagFor([]byte("world")))

	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{"*", true},
		{tag, true},
		{"W/" + tag, true},
		{`"other", ` + tag, true},
		{`"other"`, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchesETag(tt.header, tag), tt.header)
	}
}

func TestStatusCodeHelpers(t *testing.T) {
	assert.True(t, StatusOK.Known())
	assert.False(t, StatusCode(599).Known())
	assert.Equal(t, 4, StatusNotFound.Class())
	assert.False(t, StatusNotModified.AllowsBody())
	assert.Equal(t, "404 Not Found", StatusNotFound.String())
	assert.Equal(t, "599", StatusCode(599).String())
}

func TestWriterOrder(t *testing.T) {
	var sb strings.Builder
	w := NewWriter(&sb)
	assert.ErrorIs(t, w.WriteBody(nil), ErrInvalidWriterState)
	require.NoError(t, w.WriteStatusLine(StatusOK))
	assert.ErrorIs(t, w.WriteStatusLine(StatusOK), ErrInvalidWriterState)

	resp := Text("hi").IntoResponse()
	require.NoError(t, w.WriteHeaders(resp.GetHeaders()))
	require.NoError(t, w.WriteBody(resp.GetBody()))
	assert.Equal(t, "HTTP/1.1 200 OK\r\ncontent-type: text/plain; charset=utf-8\r\ncontent-length: 2\r\n\r\nhi", sb.String())
}
