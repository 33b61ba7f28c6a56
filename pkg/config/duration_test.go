package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseDurationGoStyle(t *testing.T) {
	d, err := ParseDuration("2s")
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, d)
}

func TestParseDurationISO8601(t *testing.T) {
	cases := map[string]time.Duration{
		"PT2S":    2 * time.Second,
		"PT1.5S":  1500 * time.Millisecond,
		"PT1M":    time.Minute,
		"PT1H30M": 90 * time.Minute,
		"pt10s":   10 * time.Second,
	}
	for in, want := range cases {
		d, err := ParseDuration(in)
		require.NoError(t, err, in)
		require.Equal(t, want, d, in)
	}
}

func TestParseDurationInvalid(t *testing.T) {
	_, err := ParseDuration("PT")
	require.Error(t, err)

	_, err = ParseDuration("PT5Q")
	require.Error(t, err)
}

func TestDurationUnmarshalYAML(t *testing.T) {
	var d struct {
		Timeout Duration `yaml:"timeout"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(`timeout: PT2S`), &d))
	require.Equal(t, 2*time.Second, d.Timeout.Duration)
}
