// Package routetest builds requests and records responses for handler tests
// without a network connection.
package routetest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/shravanasati/mearas/handler"
	"github.com/shravanasati/mearas/headers"
	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
)

// RequestBuilder accumulates the parts of a test request.
type RequestBuilder struct {
	method     string
	target     string
	headers    *headers.Headers
	body       io.Reader
	remoteAddr string
	ctx        context.Context
}

// NewRequest starts a request for method and target, from 127.0.0.1.
func NewRequest(method, target string) *RequestBuilder {
	return &RequestBuilder{
		method:     method,
		target:     target,
		headers:    headers.NewHeaders(),
		remoteAddr: "127.0.0.1:12345",
	}
}

// Header adds a header.
func (b *RequestBuilder) Header(key, value string) *RequestBuilder {
	b.headers.Add(key, value)
	return b
}

// Body sets a raw body.
func (b *RequestBuilder) Body(body []byte) *RequestBuilder {
	b.body = bytes.NewReader(body)
	b.headers.Set("content-length", fmt.Sprint(len(body)))
	return b
}

// Text sets a text/plain body.
func (b *RequestBuilder) Text(s string) *RequestBuilder {
	b.headers.Set("content-type", "text/plain; charset=utf-8")
	return b.Body([]byte(s))
}

// JSON sets v, encoded as JSON, as the body, with a matching Content-Type.
// It panics if v cannot be encoded.
func (b *RequestBuilder) JSON(v any) *RequestBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("routetest: encoding JSON body: %v", err))
	}
	b.headers.Set("content-type", "application/json")
	return b.Body(data)
}

// RemoteAddr sets the peer address.
func (b *RequestBuilder) RemoteAddr(addr string) *RequestBuilder {
	b.remoteAddr = addr
	return b
}

// Context sets the request context.
func (b *RequestBuilder) Context(ctx context.Context) *RequestBuilder {
	b.ctx = ctx
	return b
}

// Build returns the request. It panics on an invalid target, which in a test
// is a bug in the test.
func (b *RequestBuilder) Build() *request.Request {
	opts := []request.Option{
		request.WithHeaders(b.headers.Clone()),
		request.WithRemoteAddr(b.remoteAddr),
	}
	if b.body != nil {
		opts = append(opts, request.WithBody(b.body))
	}
	if b.ctx != nil {
		opts = append(opts, request.WithContext(b.ctx))
	}
	r, err := request.New(b.method, b.target, opts...)
	if err != nil {
		panic(fmt.Sprintf("routetest: %s %s: %v", b.method, b.target, err))
	}
	return r
}

// Recorder holds a response with its body read into memory.
type Recorder struct {
	Response response.Response
	Request  *request.Request
	body     []byte
	bodyErr  error
}

// Record serves the built request with h and reads the whole body.
func Record(h handler.Handler, b *RequestBuilder) *Recorder {
	req := b.Build()
	resp := h(req)
	rec := &Recorder{Response: resp, Request: req}
	if resp != nil && resp.GetBody() != nil {
		rec.body, rec.bodyErr = io.ReadAll(resp.GetBody())
	}
	return rec
}

// Status returns the response status.
func (rec *Recorder) Status() response.StatusCode {
	return rec.Response.GetStatusCode()
}

// Header returns a response header value.
func (rec *Recorder) Header(key string) string {
	return rec.Response.GetHeaders().Get(key)
}

// Body returns the response body.
func (rec *Recorder) Body() string {
	return string(rec.body)
}

// BodyErr returns the error the body failed with, if any.
func (rec *Recorder) BodyErr() error {
	return rec.bodyErr
}

// JSON decodes the body into v.
func (rec *Recorder) JSON(t testing.TB, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.body, v); err != nil {
		t.Fatalf("routetest: decoding JSON body %q: %v", rec.body, err)
	}
}
