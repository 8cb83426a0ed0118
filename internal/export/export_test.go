package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mozilla-ai/quickmcp/internal/descriptor"
)

var now = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func servers() []descriptor.Descriptor {
	fresh := now.Add(-2 * time.Second)
	old := now.Add(-time.Minute)

	return []descriptor.Descriptor{
		{
			Name:         "calc",
			Command:      []string{"python3", "calc.py", "--verbose"},
			WorkingDir:   "/srv/calc",
			ToolPrefix:   "calc_",
			Description:  "basic calculator",
			Transport:    descriptor.TransportStdio,
			Capabilities: descriptor.Capabilities{Tools: []string{"add", "subtract"}},
			Source:       descriptor.SourceRegistry,
		},
		{
			Name:         "net1",
			Transport:    descriptor.TransportNetwork,
			Host:         "127.0.0.1",
			Port:         9000,
			LastSeen:     &fresh,
			Capabilities: descriptor.Capabilities{Counts: &descriptor.Counts{Tools: 3, Prompts: 1}},
			Source:       descriptor.SourceNetwork,
		},
		{
			Name:      "gone",
			Transport: descriptor.TransportNetwork,
			Host:      "::1",
			Port:      9100,
			LastSeen:  &old,
			Source:    descriptor.SourceNetwork,
		},
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	doc, err := Build(servers(), WithNow(now))
	require.NoError(t, err)
	require.Len(t, doc.Servers, 3)

	calc := doc.Servers[0]
	require.Equal(t, "calc", calc.Name)
	require.Equal(t, "python3", calc.Command)
	require.Equal(t, []string{"calc.py", "--verbose"}, calc.Args)
	require.Equal(t, "/srv/calc", calc.Cwd)
	require.Equal(t, "calc_", calc.ToolPrefix)
	require.Equal(t, []string{"add", "subtract"}, calc.Tools)
	require.Equal(t, descriptor.Counts{Tools: 2}, calc.Counts)
	require.Empty(t, calc.URL)
	require.False(t, calc.Stale)

	net1 := doc.Servers[1]
	require.Equal(t, "http://127.0.0.1:9000/mcp", net1.URL)
	require.Empty(t, net1.Command)
	require.Equal(t, descriptor.Counts{Tools: 3, Prompts: 1}, net1.Counts)
	require.False(t, net1.Stale)
	require.NotNil(t, net1.LastSeen)

	gone := doc.Servers[2]
	require.Equal(t, "http://[::1]:9100/mcp", gone.URL)
	require.True(t, gone.Stale)
}

func TestBuild_ExcludeStale(t *testing.T) {
	t.Parallel()

	doc, err := Build(servers(), WithNow(now), WithExcludeStale(true))
	require.NoError(t, err)
	require.Len(t, doc.Servers, 2)
	require.Equal(t, "net1", doc.Servers[1].Name)

	doc, err = Build(servers(), WithNow(now), WithExcludeStale(true), WithStaleWindow(time.Hour))
	require.NoError(t, err)
	require.Len(t, doc.Servers, 3, "a wider window keeps the older server")
}

func TestBuild_CustomURLPath(t *testing.T) {
	t.Parallel()

	doc, err := Build(servers()[1:2], WithNow(now), WithURLPath("/rpc"))
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:9000/rpc", doc.Servers[0].URL)

	_, err = Build(nil, WithURLPath("rpc"))
	require.Error(t, err)

	_, err = Build(nil, WithStaleWindow(0))
	require.Error(t, err)
}

func TestBuild_Empty(t *testing.T) {
	t.Parallel()

	doc, err := Build(nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc, FormatJSON))
	require.JSONEq(t, `{"servers": []}`, buf.String())
}

func TestEncode(t *testing.T) {
	t.Parallel()

	doc, err := Build(servers(), WithNow(now))
	require.NoError(t, err)

	tests := []struct {
		format Format
		decode func([]byte, any) error
	}{
		{format: FormatJSON, decode: json.Unmarshal},
		{format: FormatYAML, decode: yaml.Unmarshal},
		{format: FormatTOML, decode: toml.Unmarshal},
	}

	for _, tc := range tests {
		t.Run(string(tc.format), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, doc, tc.format))

			var got Document
			require.NoError(t, tc.decode(buf.Bytes(), &got))
			require.Len(t, got.Servers, 3)
			require.Equal(t, "calc", got.Servers[0].Name)
			require.Equal(t, []string{"calc.py", "--verbose"}, got.Servers[0].Args)
			require.Equal(t, "http://127.0.0.1:9000/mcp", got.Servers[1].URL)
			require.True(t, got.Servers[2].Stale)
		})
	}
}

func TestEncode_UnknownFormat(t *testing.T) {
	t.Parallel()

	require.Error(t, Encode(&bytes.Buffer{}, Document{}, "xml"))
}
