package response

import (
	"bytes"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/shravanasati/mearas/headers"
)

// BodyKind describes how a response body is framed.
type BodyKind int

const (
	BodyEmpty BodyKind = iota
	BodyFixed
	BodyStream
)

func (k BodyKind) String() string {
	switch k {
	case BodyFixed:
		return "fixed"
	case BodyStream:
		return "stream"
	default:
		return "empty"
	}
}

// Response is what a handler produces: a status code, an ordered header
// mapping and a body. The With* methods modify the response in place and
// return it for chaining.
type Response interface {
	Responder

	GetStatusCode() StatusCode
	GetHeaders() *headers.Headers
	GetBody() io.Reader
	BodyKind() BodyKind

	WithStatusCode(StatusCode) Response
	WithHeader(key, value string) Response
	WithHeaders(map[string]string) Response
	WithBody(io.Reader) Response
	WithBytes([]byte) Response

	// Write serializes the response as HTTP/1.1.
	Write(io.Writer) error
}

// BaseResponse is the concrete response every constructor builds on.
type BaseResponse struct {
	StatusCode StatusCode
	Headers    *headers.Headers
	Body       io.Reader
}

// NewBaseResponse returns an empty 200 response.
func NewBaseResponse() Response {
	return &BaseResponse{
		Headers:    headers.NewHeaders(),
		StatusCode: StatusOK,
	}
}

func (r *BaseResponse) IntoResponse() Response {
	return r
}

func (r *BaseResponse) GetStatusCode() StatusCode {
	return r.StatusCode
}

func (r *BaseResponse) GetHeaders() *headers.Headers {
	return r.Headers
}

func (r *BaseResponse) GetBody() io.Reader {
	return r.Body
}

func (r *BaseResponse) BodyKind() BodyKind {
	switch {
	case r.Body == nil:
		return BodyEmpty
	case strings.Contains(strings.ToLower(r.Headers.Get("transfer-encoding")), "chunked"):
		return BodyStream
	case r.Headers.Has("content-length"):
		return BodyFixed
	default:
		return BodyStream
	}
}

func (r *BaseResponse) WithStatusCode(code StatusCode) Response {
	r.StatusCode = code
	return r
}

func (r *BaseResponse) WithHeader(key, value string) Response {
	r.Headers.Add(key, value)
	return r
}

// WithHeaders adds every entry of headers, in key order.
func (r *BaseResponse) WithHeaders(headers map[string]string) Response {
	for _, key := range slices.Sorted(maps.Keys(headers)) {
		r.Headers.Add(key, headers[key])
	}
	return r
}

func (r *BaseResponse) WithBody(body io.Reader) Response {
	r.Body = body
	return r
}

// WithBytes sets a fixed body and its content length.
func (r *BaseResponse) WithBytes(body []byte) Response {
	r.Headers.Set("content-length", strconv.Itoa(len(body)))
	r.Body = bytes.NewReader(body)
	return r
}

func (r *BaseResponse) Write(w io.Writer) error {
	rw := NewWriter(w)
	if err := rw.WriteStatusLine(r.StatusCode); err != nil {
		return err
	}
	if err := rw.WriteHeaders(r.Headers); err != nil {
		return err
	}
	return rw.WriteBody(r.Body)
}
