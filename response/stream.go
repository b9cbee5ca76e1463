package response

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/shravanasati/mearas/headers"
)

// TrailerSetter is a function that sets a trailer header.
type TrailerSetter func(key, value string)

// StreamFunc writes the body of a streamed response. Returning an error
// aborts the stream.
type StreamFunc func(w io.Writer, setTrailer TrailerSetter) error

// StreamResponse is a response whose body is produced on demand and sent
// with chunked transfer encoding.
type StreamResponse struct {
	Response
	Stream   StreamFunc
	Trailers *headers.Headers

	mu sync.Mutex
}

// NewStreamResponse creates a new stream response. trailers names the
// trailer fields the stream function may set.
func NewStreamResponse(sf StreamFunc, trailers []string) *StreamResponse {
	sr := &StreamResponse{
		Response: NewBaseResponse().
			WithHeader("transfer-encoding", "chunked"),
		Stream:   sf,
		Trailers: headers.NewHeaders(),
	}

	if len(trailers) > 0 {
		sr.WithHeader("Trailer", strings.Join(trailers, ", "))
	}

	sr.WithBody(&chunkedReader{
		open:     sr.Reader,
		trailers: sr.Trailers,
		mu:       &sr.mu,
	})

	return sr
}

// Reader runs the stream function in a goroutine and returns the raw,
// unchunked output.
func (sr *StreamResponse) Reader() io.Reader {
	pr, pw := io.Pipe()

	go func() {
		setTrailer := func(key, value string) {
			sr.mu.Lock()
			sr.Trailers.Add(key, value)
			sr.mu.Unlock()
		}

		pw.CloseWithError(sr.Stream(pw, setTrailer))
	}()

	return pr
}

// chunkedReader frames its source as HTTP/1.1 chunks and ends with the
// terminating chunk and any trailers. The source is opened on first read so
// a response that is never written does not start its stream.
type chunkedReader struct {
	r        io.Reader
	open     func() io.Reader
	buf      bytes.Buffer
	eof      bool
	trailers *headers.Headers
	mu       *sync.Mutex
}

func (cr *chunkedReader) Read(p []byte) (int, error) {
	if cr.buf.Len() > 0 {
		return cr.buf.Read(p)
	}
	if cr.eof {
		return 0, io.EOF
	}
	if cr.r == nil {
		cr.r = cr.open()
	}

	raw := make([]byte, 4096)
	n, err := cr.r.Read(raw)
	if n > 0 {
		fmt.Fprintf(&cr.buf, "%x\r\n", n)
		cr.buf.Write(raw[:n])
		cr.buf.WriteString("\r\n")
		return cr.buf.Read(p)
	}

	if err == io.EOF {
		cr.buf.WriteString("0\r\n")
		if cr.mu != nil {
			cr.mu.Lock()
		}
		for key, value := range cr.trailers.Lines() {
			fmt.Fprintf(&cr.buf, "%s: %s\r\n", key, value)
		}
		if cr.mu != nil {
			cr.mu.Unlock()
		}
		cr.buf.WriteString("\r\n")
		cr.eof = true
		return cr.buf.Read(p)
	}

	return 0, err
}
