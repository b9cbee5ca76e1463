package response

import (
	"fmt"
	"io"

	"github.com/shravanasati/mearas/headers"
)

type writerState string

const (
	stateStatusLine writerState = "status line"
	stateHeaders    writerState = "headers"
	stateBody       writerState = "body"
	stateDone       writerState = "done"
)

func (ws writerState) advance() writerState {
	switch ws {
	case stateStatusLine:
		return stateHeaders
	case stateHeaders:
		return stateBody
	case stateBody:
		return stateDone
	default:
		panic("invalid response state advance: " + ws)
	}
}

// Writer serializes a response onto an HTTP/1.1 connection, enforcing the
// status line, headers, body order.
type Writer struct {
	w     io.Writer
	state writerState
}

// NewWriter returns a Writer positioned before the status line.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, state: stateStatusLine}
}

func (rw *Writer) WriteStatusLine(code StatusCode) error {
	if rw.state != stateStatusLine {
		return fmt.Errorf("%w: status line in %s state", ErrInvalidWriterState, rw.state)
	}
	if _, err := fmt.Fprintf(rw.w, "HTTP/1.1 %d %s\r\n", code, GetStatusReason(code)); err != nil {
		return err
	}
	rw.state = rw.state.advance()
	return nil
}

func (rw *Writer) WriteHeaders(h *headers.Headers) error {
	if rw.state != stateHeaders {
		return fmt.Errorf("%w: headers in %s state", ErrInvalidWriterState, rw.state)
	}
	for k, v := range h.Lines() {
		if _, err := fmt.Fprintf(rw.w, "%s: %s\r\n", k, v); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(rw.w, "\r\n"); err != nil {
		return err
	}
	rw.state = rw.state.advance()
	return nil
}

func (rw *Writer) WriteBody(body io.Reader) error {
	if rw.state != stateBody {
		return fmt.Errorf("%w: body in %s state", ErrInvalidWriterState, rw.state)
	}
	if body != nil {
		if _, err := io.Copy(rw.w, body); err != nil {
			return err
		}
	}
	rw.state = rw.state.advance()
	return nil
}
