// Package codec holds the body formats shared by the typed body extractors and
// the typed payload responders.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// ErrUnknownMediaType is returned by ForMediaType for formats no codec handles.
var ErrUnknownMediaType = errors.New("no codec for media type")

// Codec converts values to and from one body format.
type Codec interface {
	// Name is a short identifier used in logs and errors.
	Name() string
	// ContentType is the value written to the Content-Type header.
	ContentType() string
	// Accepts reports whether a request media type (lowercase, no
	// parameters) is decodable by this codec.
	Accepts(mediaType string) bool
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

var (
	JSON    Codec = jsonCodec{}
	YAML    Codec = yamlCodec{}
	TOML    Codec = tomlCodec{}
	MsgPack Codec = msgpackCodec{}
)

// All lists the built-in codecs in lookup order.
var All = []Codec{JSON, YAML, TOML, MsgPack}

// ForMediaType returns the first built-in codec accepting mediaType.
func ForMediaType(mediaType string) (Codec, error) {
	mediaType = strings.ToLower(mediaType)
	for _, c := range All {
		if c.Accepts(mediaType) {
			return c, nil
		}
	}
	return nil, ErrUnknownMediaType
}

type jsonCodec struct{}

func (jsonCodec) Name() string        { return "json" }
func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Accepts(mt string) bool {
	return mt == "application/json" || (strings.HasPrefix(mt, "application/") && strings.HasSuffix(mt, "+json"))
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

type yamlCodec struct{}

func (yamlCodec) Name() string        { return "yaml" }
func (yamlCodec) ContentType() string { return "application/yaml" }

func (yamlCodec) Accepts(mt string) bool {
	switch mt {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return true
	}
	return false
}

func (yamlCodec) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func (yamlCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

type tomlCodec struct{}

func (tomlCodec) Name() string        { return "toml" }
func (tomlCodec) ContentType() string { return "application/toml" }

func (tomlCodec) Accepts(mt string) bool {
	return mt == "application/toml" || mt == "text/toml"
}

func (tomlCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (tomlCodec) Unmarshal(data []byte, v any) error {
	_, err := toml.Decode(string(data), v)
	return err
}

// msgpack reuses json struct tags so one payload type serves every codec.
type msgpackCodec struct{}

func (msgpackCodec) Name() string        { return "msgpack" }
func (msgpackCodec) ContentType() string { return "application/msgpack" }

func (msgpackCodec) Accepts(mt string) bool {
	switch mt {
	case "application/msgpack", "application/x-msgpack", "application/vnd.msgpack":
		return true
	}
	return false
}

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
