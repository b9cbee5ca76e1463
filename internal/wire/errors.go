package wire

import "errors"

var (
	ErrIncorrectRequestLine        = errors.New("incorrect request line")
	ErrIncompleteRequest           = errors.New("incomplete request")
	ErrHeaderTooLarge              = errors.New("request head too large")
	ErrInvalidContentLength        = errors.New("invalid content-length")
	ErrConflictingFraming          = errors.New("both content-length and transfer-encoding present")
	ErrUnsupportedTransferEncoding = errors.New("unsupported transfer-encoding")
	ErrMalformedChunk              = errors.New("malformed chunk")
)
