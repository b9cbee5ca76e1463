package extract

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"unicode/utf8"

	"github.com/shravanasati/mearas/codec"
	"github.com/shravanasati/mearas/request"
	"rivaas.dev/binding"
)

const (
	formMediaType      = "application/x-www-form-urlencoded"
	multipartMediaType = "multipart/form-data"
)

// takeBody claims the body, mapping a second claim to ErrBodyAlreadyConsumed.
func takeBody(r *request.Request) (io.ReadCloser, error) {
	rc, err := r.TakeBody()
	if err != nil {
		if errors.Is(err, request.ErrBodyConsumed) {
			return nil, newError(ErrBodyAlreadyConsumed, SourceBody, "", err)
		}
		return nil, newError(ErrBodyRead, SourceBody, "", err)
	}
	return rc, nil
}

func readBody(r *request.Request) ([]byte, error) {
	rc, err := takeBody(r)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, newError(ErrBodyRead, SourceBody, "", err)
	}
	return data, nil
}

// Bytes reads the whole body.
func Bytes() Extractor[[]byte] {
	return Func[[]byte](readBody)
}

// String reads the whole body, which must be valid UTF-8.
func String() Extractor[string] {
	return Func[string](func(r *request.Request) (string, error) {
		data, err := readBody(r)
		if err != nil {
			return "", err
		}
		if !utf8.Valid(data) {
			return "", newError(ErrDecode, SourceBody, "", errors.New("body is not valid UTF-8"))
		}
		return string(data), nil
	})
}

// Stream claims the body without reading it. The handler owns the reader.
func Stream() Extractor[io.ReadCloser] {
	return Func[io.ReadCloser](takeBody)
}

// checkMediaType fails before the body is claimed so a rejected request
// leaves it untouched.
func checkMediaType(r *request.Request, accepts func(string) bool, want string) error {
	mt := r.ContentType()
	if mt == "" {
		return newError(ErrUnsupportedMediaType, SourceHeader, "content-type",
			fmt.Errorf("missing content type, expected %s", want))
	}
	if !accepts(mt) {
		return newError(ErrUnsupportedMediaType, SourceHeader, "content-type",
			fmt.Errorf("expected %s, got %s", want, mt))
	}
	return nil
}

// Body decodes the body with c. The Content-Type must be one c accepts.
func Body[T any](c codec.Codec) Extractor[T] {
	return Func[T](func(r *request.Request) (T, error) {
		var v T
		if err := checkMediaType(r, c.Accepts, c.ContentType()); err != nil {
			return v, err
		}
		data, err := readBody(r)
		if err != nil {
			return v, err
		}
		if err := c.Unmarshal(data, &v); err != nil {
			return v, newError(ErrDecode, SourceBody, c.Name(), err)
		}
		return v, nil
	})
}

// Decoded decodes the body with whichever built-in codec handles its
// Content-Type.
func Decoded[T any]() Extractor[T] {
	return Func[T](func(r *request.Request) (T, error) {
		var v T
		mt := r.ContentType()
		c, err := codec.ForMediaType(mt)
		if err != nil {
			return v, newError(ErrUnsupportedMediaType, SourceHeader, "content-type", err)
		}
		return Body[T](c).Extract(r)
	})
}

// JSON decodes an application/json body.
func JSON[T any]() Extractor[T] { return Body[T](codec.JSON) }

// YAML decodes an application/yaml body.
func YAML[T any]() Extractor[T] { return Body[T](codec.YAML) }

// TOML decodes an application/toml body.
func TOML[T any]() Extractor[T] { return Body[T](codec.TOML) }

// MsgPack decodes an application/msgpack body.
func MsgPack[T any]() Extractor[T] { return Body[T](codec.MsgPack) }

// Form binds an application/x-www-form-urlencoded body into a struct of type
// T using `form` tags.
func Form[T any](opts ...binding.Option) Extractor[T] {
	return Func[T](func(r *request.Request) (T, error) {
		var v T
		isForm := func(mt string) bool { return mt == formMediaType }
		if err := checkMediaType(r, isForm, formMediaType); err != nil {
			return v, err
		}
		data, err := readBody(r)
		if err != nil {
			return v, err
		}
		values, err := url.ParseQuery(string(data))
		if err != nil {
			return v, newError(ErrDecode, SourceBody, "form", err)
		}
		v, err = binding.Form[T](values, opts...)
		if err != nil {
			return v, newError(ErrDecode, SourceBody, "form", err)
		}
		return v, nil
	})
}

// MultipartMaxMemory is how much of a multipart body is held in memory.
// File parts beyond it are spooled to temporary files removed when the
// request is closed.
var MultipartMaxMemory int64 = 32 << 20

// Multipart binds a multipart/form-data body into a struct of type T using
// `form` tags. Fields of type *binding.File or []*binding.File receive the
// uploaded files.
func Multipart[T any](opts ...binding.Option) Extractor[T] {
	return Func[T](func(r *request.Request) (T, error) {
		var v T
		isMultipart := func(mt string) bool { return mt == multipartMediaType }
		if err := checkMediaType(r, isMultipart, multipartMediaType); err != nil {
			return v, err
		}
		_, params, _ := mime.ParseMediaType(r.Headers.Get("content-type"))
		boundary := params["boundary"]
		if boundary == "" {
			return v, newError(ErrUnsupportedMediaType, SourceHeader, "content-type",
				errors.New("multipart boundary missing"))
		}

		rc, err := takeBody(r)
		if err != nil {
			return v, err
		}
		defer rc.Close()

		form, err := multipart.NewReader(rc, boundary).ReadForm(MultipartMaxMemory)
		if err != nil {
			return v, newError(ErrBodyRead, SourceBody, "multipart", err)
		}
		r.OnClose(form.RemoveAll)

		v, err = binding.Multipart[T](form, opts...)
		if err != nil {
			return v, newError(ErrDecode, SourceBody, "multipart", err)
		}
		return v, nil
	})
}
