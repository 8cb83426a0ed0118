package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/quickmcp/internal/descriptor"
	"github.com/mozilla-ai/quickmcp/internal/errors"
)

func servers() []descriptor.Descriptor {
	registered := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	return []descriptor.Descriptor{
		{
			Name:         "calc",
			Command:      []string{"python3", "calc.py"},
			Transport:    descriptor.TransportStdio,
			Capabilities: descriptor.Capabilities{Tools: []string{"add", "divide"}},
			RegisteredAt: &registered,
		},
		{
			Name:      "calc-notes",
			Command:   []string{"python3", "notes.py"},
			Transport: descriptor.TransportStdio,
			Source:    descriptor.SourceFilesystem,
		},
		{
			Name:      "weather",
			Transport: descriptor.TransportNetwork,
			Host:      "10.0.0.7",
			Port:      8080,
			Source:    descriptor.SourceNetwork,
		},
	}
}

func names(ds []descriptor.Descriptor) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Name)
	}
	return out
}

func TestDescriptors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		filters map[string]string
		want    []string
	}{
		{name: "none", want: []string{"calc", "calc-notes", "weather"}},
		{name: "name substring", filters: map[string]string{KeyName: "CALC"}, want: []string{"calc", "calc-notes"}},
		{name: "transport", filters: map[string]string{KeyTransport: "network"}, want: []string{"weather"}},
		{name: "registered source", filters: map[string]string{KeySource: "registry"}, want: []string{"calc"}},
		{name: "filesystem source", filters: map[string]string{KeySource: "filesystem"}, want: []string{"calc-notes"}},
		{name: "tools", filters: map[string]string{KeyTools: "add,divide"}, want: []string{"calc"}},
		{name: "host", filters: map[string]string{KeyHost: "10.0.0.7"}, want: []string{"weather"}},
		{
			name:    "combined",
			filters: map[string]string{KeyName: "calc", KeyTransport: "stdio", KeySource: "filesystem"},
			want:    []string{"calc-notes"},
		},
		{name: "no match", filters: map[string]string{KeyName: "nonexistent"}, want: []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := Descriptors(servers(), tc.filters)
			require.NoError(t, err)
			require.Equal(t, tc.want, names(got))
		})
	}
}

func TestDescriptors_UnsupportedKey(t *testing.T) {
	t.Parallel()

	_, err := Descriptors(servers(), map[string]string{"license": "mit"})
	require.ErrorIs(t, err, errors.ErrValidation)
	require.ErrorContains(t, err, "unsupported filter 'license'")
}

func TestTools(t *testing.T) {
	t.Parallel()

	require.Equal(t, "add,divide", Tools([]string{" add", "", "divide "}))
	require.Empty(t, Tools(nil))
}
