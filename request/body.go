package request

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

// bodyHandle is shared by every shallow copy of a Request so the body can be
// claimed exactly once per request, whichever copy asks for it.
type bodyHandle struct {
	mu       sync.Mutex
	rc       io.ReadCloser
	consumed atomic.Bool
	onClose  []func() error
}

func newBodyHandle(r io.Reader) *bodyHandle {
	switch b := r.(type) {
	case nil:
		return &bodyHandle{rc: noBody{}}
	case io.ReadCloser:
		return &bodyHandle{rc: b}
	default:
		return &bodyHandle{rc: io.NopCloser(b)}
	}
}

func (b *bodyHandle) take() (io.ReadCloser, error) {
	if !b.consumed.CompareAndSwap(false, true) {
		return nil, ErrBodyConsumed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rc, nil
}

func (b *bodyHandle) wrap(fn func(io.ReadCloser) io.ReadCloser) error {
	if b.consumed.Load() {
		return ErrBodyConsumed
	}
	b.mu.Lock()
	b.rc = fn(b.rc)
	b.mu.Unlock()
	return nil
}

func (b *bodyHandle) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	errs := []error{b.rc.Close()}
	for _, fn := range b.onClose {
		errs = append(errs, fn())
	}
	b.onClose = nil
	return errors.Join(errs...)
}

type noBody struct{}

func (noBody) Read([]byte) (int, error) { return 0, io.EOF }
func (noBody) Close() error             { return nil }

type limitedBody struct {
	rc        io.ReadCloser
	remaining int64
}

// LimitBody returns a reader that fails with ErrBodyTooLarge after n bytes.
func LimitBody(rc io.ReadCloser, n int64) io.ReadCloser {
	return &limitedBody{rc: rc, remaining: n}
}

func (l *limitedBody) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrBodyTooLarge
	}
	// read one byte past the limit to tell "exactly n" from "more than n"
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.rc.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n + int(l.remaining), ErrBodyTooLarge
	}
	return n, err
}

func (l *limitedBody) Close() error {
	return l.rc.Close()
}
