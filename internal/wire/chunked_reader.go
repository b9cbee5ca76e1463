package wire

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"

	"github.com/shravanasati/mearas/headers"
)

// maximum size of a chunk-size line or a trailer section
const maxChunkLineBytes = 4096

// chunkedReader decodes a chunked body as it is read.
type chunkedReader struct {
	br       *bufio.Reader
	left     int64 // bytes left in the current chunk
	done     bool
	err      error
	trailers *headers.Headers
}

func newChunkedReader(br *bufio.Reader) *chunkedReader {
	return &chunkedReader{br: br, trailers: headers.NewHeaders()}
}

func parseHexadecimal(hex []byte) (int64, error) {
	if len(hex) == 0 || len(hex) > 16 {
		return 0, ErrMalformedChunk
	}
	n, err := strconv.ParseInt(string(hex), 16, 64)
	if err != nil || n < 0 {
		return 0, ErrMalformedChunk
	}
	return n, nil
}

func (cr *chunkedReader) lineReader() *lineReader {
	return &lineReader{br: cr.br, budget: maxChunkLineBytes}
}

func (cr *chunkedReader) nextChunk() error {
	line, err := cr.lineReader().readLine()
	if err != nil {
		return cr.wrap(err)
	}
	// drop chunk extensions
	size, _, _ := bytes.Cut(line, []byte(";"))
	n, err := parseHexadecimal(bytes.TrimSpace(size))
	if err != nil {
		return err
	}
	if n == 0 {
		cr.done = true
		return cr.readTrailers()
	}
	cr.left = n
	return nil
}

func (cr *chunkedReader) readTrailers() error {
	lr := cr.lineReader()
	for {
		line, err := lr.readLine()
		if err != nil {
			return cr.wrap(err)
		}
		if len(line) == 0 {
			return nil
		}
		if err := cr.trailers.ParseFieldLine(line); err != nil {
			return err
		}
	}
}

func (cr *chunkedReader) wrap(err error) error {
	if errors.Is(err, io.EOF) {
		return ErrIncompleteRequest
	}
	if errors.Is(err, ErrHeaderTooLarge) {
		return ErrMalformedChunk
	}
	return err
}

// Read implements the io.Reader interface.
func (cr *chunkedReader) Read(p []byte) (int, error) {
	if cr.err != nil {
		return 0, cr.err
	}
	if cr.left == 0 && !cr.done {
		if cr.err = cr.nextChunk(); cr.err != nil {
			return 0, cr.err
		}
	}
	if cr.done {
		return 0, io.EOF
	}

	if int64(len(p)) > cr.left {
		p = p[:cr.left]
	}
	n, err := cr.br.Read(p)
	cr.left -= int64(n)
	if err != nil {
		cr.err = cr.wrap(err)
		return n, cr.err
	}

	if cr.left == 0 {
		// every chunk's data is followed by CRLF
		var end [2]byte
		if _, err := io.ReadFull(cr.br, end[:]); err != nil {
			cr.err = cr.wrap(err)
			return n, cr.err
		}
		if !bytes.Equal(end[:], crlf) {
			cr.err = ErrMalformedChunk
			return n, cr.err
		}
	}
	return n, nil
}

// Trailers returns the trailer fields, complete once Read returned io.EOF.
func (cr *chunkedReader) Trailers() *headers.Headers {
	return cr.trailers
}

// Close discards the unread portion of the body.
func (cr *chunkedReader) Close() error {
	_, err := io.Copy(io.Discard, cr)
	return err
}
