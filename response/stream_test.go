package response

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeParts(parts ...string) StreamFunc {
	return func(w io.Writer, setTrailer TrailerSetter) error {
		total := 0
		for _, p := range parts {
			n, err := io.WriteString(w, p)
			if err != nil {
				return err
			}
			total += n
		}
		setTrailer("X-Total", strconv.Itoa(total))
		return nil
	}
}

func TestStreamResponseHeaders(t *testing.T) {
	tests := []struct {
		name     string
		trailers []string
		want     string
	}{
		{"no trailers", nil, ""},
		{"one trailer", []string{"X-Total"}, "X-Total"},
		{"several trailers", []string{"X-Total", "X-Sum"}, "X-Total, X-Sum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewStreamResponse(writeParts("x"), tt.trailers)
			h := resp.GetHeaders()
			assert.Equal(t, "chunked", h.Get("Transfer-Encoding"))
			assert.Equal(t, tt.want, h.Get("Trailer"))
			assert.Equal(t, tt.want != "", h.Has("Trailer"))
			assert.Equal(t, StatusOK, resp.GetStatusCode())
		})
	}
}

func TestStreamResponseWireFormat(t *testing.T) {
	resp := NewStreamResponse(writeParts("ab", "cde"), []string{"X-Total"})

	var sb strings.Builder
	require.NoError(t, resp.Write(&sb))
	assert.Equal(t,
		"HTTP/1.1 200 OK\r\n"+
			"transfer-encoding: chunked\r\n"+
			"trailer: X-Total\r\n"+
			"\r\n"+
			"2\r\nab\r\n"+
			"3\r\ncde\r\n"+
			"0\r\n"+
			"x-total: 5\r\n"+
			"\r\n",
		sb.String(),
	)
}

func TestStreamResponseEmpty(t *testing.T) {
	resp := NewStreamResponse(func(io.Writer, TrailerSetter) error { return nil }, nil)

	body, err := io.ReadAll(resp.GetBody())
	require.NoError(t, err)
	assert.Equal(t, "0\r\n\r\n", string(body))
}

func TestStreamResponseStartsOnFirstRead(t *testing.T) {
	var started atomic.Int32
	resp := NewStreamResponse(func(w io.Writer, _ TrailerSetter) error {
		started.Add(1)
		_, err := io.WriteString(w, "go")
		return err
	}, nil)

	// converting and inspecting the response does not run the stream
	r := From(resp)
	assert.Equal(t, "chunked", r.GetHeaders().Get("transfer-encoding"))
	assert.Zero(t, started.Load())

	body, err := io.ReadAll(r.GetBody())
	require.NoError(t, err)
	assert.Equal(t, "2\r\ngo\r\n0\r\n\r\n", string(body))
	assert.Equal(t, int32(1), started.Load())
}

func TestStreamResponseError(t *testing.T) {
	errBroken := errors.New("source went away")
	resp := NewStreamResponse(func(w io.Writer, _ TrailerSetter) error {
		if _, err := io.WriteString(w, "partial"); err != nil {
			return err
		}
		return errBroken
	}, nil)

	body, err := io.ReadAll(resp.GetBody())
	assert.ErrorIs(t, err, errBroken)
	assert.Equal(t, "7\r\npartial\r\n", string(body))

	var sb strings.Builder
	resp = NewStreamResponse(func(io.Writer, TrailerSetter) error { return errBroken }, nil)
	assert.ErrorIs(t, resp.Write(&sb), errBroken)
}

func TestStreamResponseLargeWrite(t *testing.T) {
	payload := strings.Repeat("z", 10000)
	resp := NewStreamResponse(writeParts(payload), []string{"X-Total"})

	body, err := io.ReadAll(resp.GetBody())
	require.NoError(t, err)

	// the payload arrives in chunks of at most 4096 bytes
	out := string(body)
	assert.True(t, strings.HasPrefix(out, "1000\r\n"), out[:8])
	assert.Equal(t, 10000, strings.Count(out, "z"))
	assert.True(t, strings.HasSuffix(out, "0\r\nx-total: 10000\r\n\r\n"))
}

func TestStreamInResult(t *testing.T) {
	res := Ok[*StreamResponse, Problem](NewStreamResponse(writeParts("ok"), nil))
	resp := res.IntoResponse()

	body, err := io.ReadAll(resp.GetBody())
	require.NoError(t, err)
	assert.Equal(t, "2\r\nok\r\n0\r\n\r\n", string(body))
}
