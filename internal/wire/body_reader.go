package wire

import (
	"io"
)

type bodyReader struct {
	reader    io.Reader // an io.LimitReader
	remaining int64
}

func newBodyReader(r io.Reader, contentLength int64) *bodyReader {
	return &bodyReader{reader: io.LimitReader(r, contentLength), remaining: contentLength}
}

// Read implements the io.Reader interface.
func (br *bodyReader) Read(p []byte) (int, error) {
	if br.remaining <= 0 {
		return 0, io.EOF
	}
	n, err := br.reader.Read(p)
	br.remaining -= int64(n)

	if err == io.EOF && br.remaining > 0 {
		return n, ErrIncompleteRequest
	}
	return n, err
}

// Close discards the unread portion of the body.
func (br *bodyReader) Close() error {
	_, err := io.Copy(io.Discard, br)
	return err
}
