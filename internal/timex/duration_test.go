package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_JSON(t *testing.T) {
	var v struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"5s","b":1000000}`), &v))
	assert.Equal(t, 5*time.Second, v.A.Duration)
	assert.Equal(t, time.Millisecond, v.B.Duration)

	out, err := json.Marshal(v.A)
	require.NoError(t, err)
	assert.Equal(t, `"5s"`, string(out))

	require.Error(t, json.Unmarshal([]byte(`{"a":"soon"}`), &v))
	require.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
}

func TestDuration_YAML(t *testing.T) {
	var v struct {
		A Duration `yaml:"a"`
		B Duration `yaml:"b"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 2m\nb: 500\n"), &v))
	assert.Equal(t, 2*time.Minute, v.A.Duration)
	assert.Equal(t, 500*time.Nanosecond, v.B.Duration)
}
