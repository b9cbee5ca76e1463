package response

import "encoding/json"

const contentTypeProblem = "application/problem+json"

// Problem is an RFC 9457 problem details document.
type Problem struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	// Errors carries per-field failures, e.g. from validation.
	Errors map[string]string `json:"errors,omitempty"`
}

// NewProblem returns a problem whose title is the reason phrase of code.
func NewProblem(code StatusCode, detail string) Problem {
	return Problem{
		Title:  GetStatusReason(code),
		Status: int(code),
		Detail: detail,
	}
}

func (p Problem) IntoResponse() Response {
	code := StatusCode(p.Status)
	if code == 0 {
		code = StatusInternalServerError
		p.Status = int(code)
	}
	if p.Title == "" {
		p.Title = GetStatusReason(code)
	}
	body, err := json.Marshal(p)
	if err != nil {
		return Default(code)
	}
	return NewBaseResponse().
		WithStatusCode(code).
		WithHeader("content-type", contentTypeProblem).
		WithBytes(body)
}
