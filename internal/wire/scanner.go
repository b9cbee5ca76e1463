package wire

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

var crlf = []byte("\r\n")

// lineReader reads CRLF terminated lines from a buffered connection without
// consuming anything past the line, so the body can be read from the same
// reader afterwards.
type lineReader struct {
	br *bufio.Reader
	// remaining byte budget; negative means unlimited
	budget int
}

// readLine returns the next line without its CRLF. A bare LF is accepted as
// a terminator. The returned slice is only valid until the next read.
func (lr *lineReader) readLine() ([]byte, error) {
	var line []byte
	for {
		frag, err := lr.br.ReadSlice('\n')
		if lr.budget >= 0 {
			lr.budget -= len(frag)
			if lr.budget < 0 {
				return nil, ErrHeaderTooLarge
			}
		}
		switch {
		case err == nil:
			if line != nil {
				frag = append(line, frag...)
			}
			frag = bytes.TrimSuffix(frag, []byte("\n"))
			return bytes.TrimSuffix(frag, []byte("\r")), nil
		case errors.Is(err, bufio.ErrBufferFull):
			line = append(line, frag...)
		case errors.Is(err, io.EOF):
			if len(line) == 0 && len(frag) == 0 {
				return nil, io.EOF
			}
			return nil, ErrIncompleteRequest
		default:
			return nil, err
		}
	}
}
