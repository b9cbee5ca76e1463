package response

const (
	contentTypeText  = "text/plain; charset=utf-8"
	contentTypeHTML  = "text/html; charset=utf-8"
	contentTypeBytes = "application/octet-stream"
)

// TextResponse is a response that sends plain text.
type TextResponse struct {
	Response
}

// NewTextResponse creates a new text response.
func NewTextResponse(body string) Response {
	br := NewBaseResponse().
		WithHeader("content-type", contentTypeText).
		WithBytes([]byte(body))

	return &TextResponse{
		Response: br,
	}
}

// HTMLResponse is a response that sends an HTML document.
type HTMLResponse struct {
	Response
}

// NewHTMLResponse creates a new HTML response.
func NewHTMLResponse(body string) Response {
	br := NewBaseResponse().
		WithHeader("content-type", contentTypeHTML).
		WithBytes([]byte(body))

	return &HTMLResponse{
		Response: br,
	}
}

// NewBytesResponse creates a new binary response.
func NewBytesResponse(body []byte) Response {
	return NewBaseResponse().
		WithHeader("content-type", contentTypeBytes).
		WithBytes(body)
}

// Default returns the canonical response for a status: the reason phrase as
// a plain text body. Statuses that forbid a body get none.
func Default(code StatusCode) Response {
	if !code.AllowsBody() {
		return NewBaseResponse().WithStatusCode(code)
	}
	reason := GetStatusReason(code)
	if reason == "" {
		reason = code.String()
	}
	return NewTextResponse(reason).WithStatusCode(code)
}
