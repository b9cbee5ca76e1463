// Package wire reads HTTP/1.1 request heads and bodies off a connection.
package wire

import (
	"bufio"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/shravanasati/mearas/headers"
)

// Head is a parsed request line plus header section.
type Head struct {
	Method  string
	Target  string
	Version string // "1.0" or "1.1"
	Headers *headers.Headers
}

var requestLineRegex = regexp.MustCompile(`^([!#$%&'*+\-.^_` + "`" + `|~0-9A-Za-z]+) (\S+) HTTP/(1\.[01])$`)

func parseRequestLine(line []byte) (method, target, version string, err error) {
	matches := requestLineRegex.FindSubmatch(line)
	if matches == nil {
		return "", "", "", ErrIncorrectRequestLine
	}
	return string(matches[1]), string(matches[2]), string(matches[3]), nil
}

// ReadHead reads one request head from br. maxBytes bounds the size of the
// request line and headers together; 0 means unlimited. io.EOF is returned
// when the connection closed cleanly before a new request started.
func ReadHead(br *bufio.Reader, maxBytes int) (*Head, error) {
	lr := &lineReader{br: br, budget: -1}
	if maxBytes > 0 {
		lr.budget = maxBytes
	}

	line, err := lr.readLine()
	// RFC 9112 section 2.2: ignore at least one empty line before the request line
	for err == nil && len(line) == 0 {
		line, err = lr.readLine()
	}
	if err != nil {
		return nil, err
	}

	method, target, version, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}

	h := &Head{Method: method, Target: target, Version: version, Headers: headers.NewHeaders()}
	for {
		line, err := lr.readLine()
		if errors.Is(err, io.EOF) {
			return nil, ErrIncompleteRequest
		}
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			// double CRLF, headers over
			return h, nil
		}
		if err := h.Headers.ParseFieldLine(line); err != nil {
			return nil, err
		}
	}
}

// KeepAlive reports whether the client wants the connection kept open.
func (h *Head) KeepAlive() bool {
	conn := strings.ToLower(h.Headers.Get("connection"))
	for opt := range strings.SplitSeq(conn, ",") {
		switch strings.TrimSpace(opt) {
		case "close":
			return false
		case "keep-alive":
			return true
		}
	}
	return h.Version == "1.1"
}

// TransferEncodings returns the lower-cased transfer codings in order.
func (h *Head) TransferEncodings() []string {
	var out []string
	for _, v := range h.Headers.Values("transfer-encoding") {
		for coding := range strings.SplitSeq(v, ",") {
			if coding = strings.ToLower(strings.TrimSpace(coding)); coding != "" {
				out = append(out, coding)
			}
		}
	}
	return out
}

// Body returns a reader for the message body framed per RFC 9112 section
// 6.3. The reader must be closed before the next head is read from br; Close
// discards whatever the handler left unread.
func (h *Head) Body(br *bufio.Reader) (io.ReadCloser, error) {
	encodings := h.TransferEncodings()
	cl := h.Headers.Values("content-length")

	if len(encodings) > 0 {
		if len(cl) > 0 {
			// RFC 9112 section 6.1: such a message may be rejected
			return nil, ErrConflictingFraming
		}
		// the final coding must be chunked, and it is the only one supported
		if len(encodings) != 1 || encodings[0] != "chunked" {
			return nil, ErrUnsupportedTransferEncoding
		}
		return newChunkedReader(br), nil
	}

	if len(cl) == 0 {
		return emptyBody{}, nil
	}
	n, err := contentLength(cl)
	if err != nil {
		return nil, err
	}
	return newBodyReader(br, n), nil
}

// contentLength accepts repeated identical values, as RFC 9110 allows.
func contentLength(values []string) (int64, error) {
	var n int64 = -1
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" || strings.TrimLeft(part, "0123456789") != "" {
				return 0, ErrInvalidContentLength
			}
			m, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return 0, ErrInvalidContentLength
			}
			if n >= 0 && m != n {
				return 0, ErrInvalidContentLength
			}
			n = m
		}
	}
	return n, nil
}

type emptyBody struct{}

func (emptyBody) Read([]byte) (int, error) { return 0, io.EOF }
func (emptyBody) Close() error             { return nil }
