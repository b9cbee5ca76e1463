package response

// RedirectResponse is a response that is used for redirection.
type RedirectResponse struct {
	Response
}

// NewRedirectResponse creates a new Redirect response. Uses status code 302 (Found) by default.
func NewRedirectResponse(location string) Response {
	br := NewBaseResponse().
		WithStatusCode(StatusFound).
		WithHeader("content-length", "0").
		WithHeader("location", location)

	return &RedirectResponse{Response: br}
}

// NewRedirectResponseWithStatus creates a redirect with an explicit 3xx status,
// such as 301, 303, 307 or 308.
func NewRedirectResponseWithStatus(location string, code StatusCode) Response {
	if code.Class() != 3 {
		code = StatusFound
	}
	return NewRedirectResponse(location).WithStatusCode(code)
}

// Redirect is a responder for a 302 redirect to its value.
type Redirect string

func (r Redirect) IntoResponse() Response {
	return NewRedirectResponse(string(r))
}
