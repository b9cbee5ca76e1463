package request

import "errors"

// ErrBodyConsumed is returned when the body handle is claimed a second time.
var ErrBodyConsumed = errors.New("request body already consumed")

// ErrInvalidTarget is returned when the request target is neither origin-form,
// absolute-form nor the asterisk form.
var ErrInvalidTarget = errors.New("invalid request target")

// ErrBodyTooLarge is returned by a body limited with LimitBody once more than
// the allowed number of bytes has been read.
var ErrBodyTooLarge = errors.New("request body too large")
