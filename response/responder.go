package response

// Responder is implemented by anything a handler may return. IntoResponse
// must not fail: every fallible step has to be settled before it is called.
type Responder interface {
	IntoResponse() Response
}

// Text responds with a text/plain body.
type Text string

func (t Text) IntoResponse() Response {
	return NewTextResponse(string(t))
}

// HTML responds with a text/html body.
type HTML string

func (h HTML) IntoResponse() Response {
	return NewHTMLResponse(string(h))
}

// Bytes responds with an application/octet-stream body.
type Bytes []byte

func (b Bytes) IntoResponse() Response {
	return NewBytesResponse(b)
}

// IntoResponse makes a bare status code respond with its default response.
func (s StatusCode) IntoResponse() Response {
	return Default(s)
}

// NoContent is an empty 204 response.
type NoContent struct{}

func (NoContent) IntoResponse() Response {
	return NewBaseResponse().WithStatusCode(StatusNoContent)
}

// Func adapts a plain function to Responder.
type Func func() Response

func (f Func) IntoResponse() Response {
	return f()
}

type withStatus struct {
	code StatusCode
	r    Responder
}

func (w withStatus) IntoResponse() Response {
	return into(w.r).WithStatusCode(w.code)
}

// WithStatus pairs a status code with any responder.
func WithStatus(code StatusCode, r Responder) Responder {
	return withStatus{code: code, r: r}
}

type withHeader struct {
	key, value string
	r          Responder
}

func (w withHeader) IntoResponse() Response {
	return into(w.r).WithHeader(w.key, w.value)
}

// WithHeader appends a header to whatever r responds with.
func WithHeader(r Responder, key, value string) Responder {
	return withHeader{key: key, value: value, r: r}
}

// Result holds either a success or an error responder and responds with
// whichever one is present.
type Result[T, E Responder] struct {
	ok    T
	err   E
	isErr bool
}

// Ok builds the success arm of a Result.
func Ok[T, E Responder](v T) Result[T, E] {
	return Result[T, E]{ok: v}
}

// Err builds the error arm of a Result.
func Err[T, E Responder](e E) Result[T, E] {
	return Result[T, E]{err: e, isErr: true}
}

func (r Result[T, E]) IsErr() bool {
	return r.isErr
}

// Unwrap returns both arms; only the one selected by IsErr is meaningful.
func (r Result[T, E]) Unwrap() (T, E) {
	return r.ok, r.err
}

func (r Result[T, E]) IntoResponse() Response {
	if r.isErr {
		return into(r.err)
	}
	return into(r.ok)
}

// isNil reports whether r is nil, including a nil pointer or func of one of
// this package's responder types wrapped in the interface.
func isNil(r Responder) bool {
	switch v := r.(type) {
	case nil:
		return true
	case *BaseResponse:
		return v == nil
	case *StreamResponse:
		return v == nil
	case *RedirectResponse:
		return v == nil
	case *TextResponse:
		return v == nil
	case *HTMLResponse:
		return v == nil
	case Func:
		return v == nil
	}
	return false
}

// into converts r, treating a nil responder as an empty 200.
func into(r Responder) Response {
	if isNil(r) {
		return NewBaseResponse()
	}
	resp := r.IntoResponse()
	if isNil(resp) {
		return NewBaseResponse()
	}
	return resp
}

// From converts any responder into a response. A nil responder, or one that
// returns a nil response, becomes an empty 200.
func From(r Responder) Response {
	return into(r)
}
