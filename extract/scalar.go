package extract

import (
	"encoding"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// parseScalar converts s to T. Supported types are string, bool, the sized
// integer and float types, time.Duration, time.Time (RFC 3339), uuid.UUID
// and anything implementing encoding.TextUnmarshaler through its pointer.
func parseScalar[T any](s string) (T, error) {
	var v T
	var err error

	switch p := any(&v).(type) {
	case *string:
		*p = s
	case *bool:
		*p, err = strconv.ParseBool(s)
	case *int:
		*p, err = strconv.Atoi(s)
	case *int8:
		*p, err = parseInt[int8](s, 8)
	case *int16:
		*p, err = parseInt[int16](s, 16)
	case *int32:
		*p, err = parseInt[int32](s, 32)
	case *int64:
		*p, err = strconv.ParseInt(s, 10, 64)
	case *uint:
		*p, err = parseUint[uint](s, strconv.IntSize)
	case *uint8:
		*p, err = parseUint[uint8](s, 8)
	case *uint16:
		*p, err = parseUint[uint16](s, 16)
	case *uint32:
		*p, err = parseUint[uint32](s, 32)
	case *uint64:
		*p, err = strconv.ParseUint(s, 10, 64)
	case *float32:
		var f float64
		f, err = strconv.ParseFloat(s, 32)
		*p = float32(f)
	case *float64:
		*p, err = strconv.ParseFloat(s, 64)
	case *time.Duration:
		*p, err = time.ParseDuration(s)
	case *time.Time:
		*p, err = time.Parse(time.RFC3339, s)
	case *uuid.UUID:
		*p, err = uuid.Parse(s)
	case encoding.TextUnmarshaler:
		err = p.UnmarshalText([]byte(s))
	default:
		err = fmt.Errorf("unsupported type %T", v)
	}

	return v, err
}

func parseInt[T ~int8 | ~int16 | ~int32](s string, bits int) (T, error) {
	n, err := strconv.ParseInt(s, 10, bits)
	return T(n), err
}

func parseUint[T ~uint | ~uint8 | ~uint16 | ~uint32](s string, bits int) (T, error) {
	n, err := strconv.ParseUint(s, 10, bits)
	return T(n), err
}
