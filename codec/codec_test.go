package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name  string   `json:"name" yaml:"name" toml:"name"`
	Count int      `json:"count" yaml:"count" toml:"count"`
	Tags  []string `json:"tags" yaml:"tags" toml:"tags"`
}

func TestCodecsRoundTrip(t *testing.T) {
	in := item{Name: "widget", Count: 3, Tags: []string{"a", "b"}}

	for _, c := range All {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(in)
			require.NoError(t, err)
			require.NotEmpty(t, data)

			var out item
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestForMediaType(t *testing.T) {
	tests := []struct {
		mediaType string
		want      string
		wantErr   bool
	}{
		{"application/json", "json", false},
		{"application/problem+json", "json", false},
		{"APPLICATION/JSON", "json", false},
		{"application/yaml", "yaml", false},
		{"application/x-yaml", "yaml", false},
		{"text/yaml", "yaml", false},
		{"application/toml", "toml", false},
		{"application/msgpack", "msgpack", false},
		{"application/x-msgpack", "msgpack", false},
		{"text/plain", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.mediaType, func(t *testing.T) {
			c, err := ForMediaType(tt.mediaType)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownMediaType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Name())
		})
	}
}

func TestMsgPackUsesJSONTags(t *testing.T) {
	type tagged struct {
		UserID int `json:"user_id"`
	}

	data, err := MsgPack.Marshal(tagged{UserID: 7})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, MsgPack.Unmarshal(data, &m))
	assert.Contains(t, m, "user_id")
}

func TestUnmarshalErrors(t *testing.T) {
	var out item
	assert.Error(t, JSON.Unmarshal([]byte("{"), &out))
	assert.Error(t, YAML.Unmarshal([]byte("name: [unterminated"), &out))
	assert.Error(t, TOML.Unmarshal([]byte("name = "), &out))
	assert.Error(t, MsgPack.Unmarshal([]byte{0xc1}, &out))
}
