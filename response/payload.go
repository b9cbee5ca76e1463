package response

import (
	"log/slog"

	"github.com/shravanasati/mearas/codec"
)

// Payload is a typed value serialized with a codec when it is turned into a
// response.
type Payload[T any] struct {
	Value  T
	Status StatusCode
	Codec  codec.Codec
}

// JSON responds with v encoded as application/json.
func JSON[T any](v T) Payload[T] {
	return Payload[T]{Value: v, Codec: codec.JSON}
}

// YAML responds with v encoded as application/yaml.
func YAML[T any](v T) Payload[T] {
	return Payload[T]{Value: v, Codec: codec.YAML}
}

// TOML responds with v encoded as application/toml.
func TOML[T any](v T) Payload[T] {
	return Payload[T]{Value: v, Codec: codec.TOML}
}

// MsgPack responds with v encoded as application/msgpack.
func MsgPack[T any](v T) Payload[T] {
	return Payload[T]{Value: v, Codec: codec.MsgPack}
}

// WithStatus returns a copy of the payload sent with the given status.
func (p Payload[T]) WithStatus(code StatusCode) Payload[T] {
	p.Status = code
	return p
}

// IntoResponse encodes the value. An encoding failure is logged and turned
// into a 500 so the caller still gets a response.
func (p Payload[T]) IntoResponse() Response {
	c := p.Codec
	if c == nil {
		c = codec.JSON
	}
	data, err := c.Marshal(p.Value)
	if err != nil {
		slog.Error("payload encoding failed", "codec", c.Name(), "error", err)
		return Default(StatusInternalServerError)
	}
	status := p.Status
	if status == 0 {
		status = StatusOK
	}
	return NewBaseResponse().
		WithStatusCode(status).
		WithHeader("content-type", c.ContentType()).
		WithBytes(data)
}

// NewJSONResponse encodes data as JSON, reporting encoding errors to the
// caller instead of replacing them with a 500.
func NewJSONResponse(data any) (Response, error) {
	body, err := codec.JSON.Marshal(data)
	if err != nil {
		return nil, err
	}
	return NewBaseResponse().
		WithHeader("content-type", codec.JSON.ContentType()).
		WithBytes(body), nil
}
