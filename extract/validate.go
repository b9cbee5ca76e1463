package extract

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shravanasati/mearas/request"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their wire name
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		for _, tag := range []string{"json", "query", "form", "yaml", "toml"} {
			name, _, _ := strings.Cut(sf.Tag.Get(tag), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return sf.Name
	})
	return v
}

// Valid runs `validate` struct tags on the value ex produces. Values that are
// not structs, or pointers to structs, pass through unchecked.
func Valid[T any](ex Extractor[T]) Extractor[T] {
	return Func[T](func(r *request.Request) (T, error) {
		v, err := ex.Extract(r)
		if err != nil {
			return v, err
		}
		if err := validate.StructCtx(r.Context(), v); err != nil {
			var invalid *validator.InvalidValidationError
			if errors.As(err, &invalid) {
				return v, nil
			}
			return v, newError(ErrValidation, SourceBody, "", err)
		}
		return v, nil
	})
}
