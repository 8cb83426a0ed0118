package printer

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/quickmcp/internal/cmd/output"
	"github.com/mozilla-ai/quickmcp/internal/descriptor"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func stdioServer() descriptor.Descriptor {
	registered := now.Add(-time.Hour)
	return descriptor.Descriptor{
		Name:         "calc",
		Command:      []string{"python3", "calc.py"},
		WorkingDir:   "/srv/calc",
		Description:  "basic calculator",
		Transport:    descriptor.TransportStdio,
		Capabilities: descriptor.Capabilities{Tools: []string{"add", "divide"}},
		RegisteredAt: &registered,
	}
}

func networkServer(lastSeen time.Time) descriptor.Descriptor {
	return descriptor.Descriptor{
		Name:      "weather",
		Transport: descriptor.TransportNetwork,
		Host:      "10.0.0.5",
		Port:      8080,
		LastSeen:  &lastSeen,
		Source:    descriptor.SourceNetwork,
		Capabilities: descriptor.Capabilities{
			Counts: &descriptor.Counts{Tools: 3, Resources: 1},
		},
	}
}

func TestNewServerEntries(t *testing.T) {
	t.Parallel()

	entries := NewServerEntries([]descriptor.Descriptor{
		stdioServer(),
		networkServer(now.Add(-time.Second)),
		networkServer(now.Add(-time.Minute)),
		{Name: "scanned", Command: []string{"node", "x.js"}, Transport: descriptor.TransportStdio, Source: descriptor.SourceFilesystem},
	}, now, 6*time.Second)

	require.Len(t, entries, 4)

	require.Equal(t, descriptor.SourceRegistry, entries[0].Source)
	require.Equal(t, "registered", entries[0].Status())
	require.Equal(t, "python3 calc.py", entries[0].Endpoint())

	require.False(t, entries[1].Stale)
	require.Equal(t, "live", entries[1].Status())
	require.Equal(t, "10.0.0.5:8080", entries[1].Endpoint())

	require.True(t, entries[2].Stale)
	require.Equal(t, "stale", entries[2].Status())

	require.Equal(t, descriptor.SourceFilesystem, entries[3].Source)
	require.Equal(t, "available", entries[3].Status())
}

func TestServerEntry_JSONAndYAML(t *testing.T) {
	t.Parallel()

	entries := NewServerEntries([]descriptor.Descriptor{networkServer(now.Add(-time.Minute))}, now, time.Second)

	var buf bytes.Buffer
	require.NoError(t, output.NewJSONHandler[ServerEntry](&buf, 0).HandleResults(entries...))
	require.Contains(t, buf.String(), `"name":"weather"`)
	require.Contains(t, buf.String(), `"source":"network"`)
	require.Contains(t, buf.String(), `"stale":true`)

	buf.Reset()
	require.NoError(t, output.NewYAMLHandler[ServerEntry](&buf, 2).HandleResults(entries...))
	require.Contains(t, buf.String(), "  - name: weather\n")
	require.Contains(t, buf.String(), "    source: network\n")
	require.Contains(t, buf.String(), "    stale: true\n")
}

func TestServerTablePrinter(t *testing.T) {
	t.Parallel()

	entries := NewServerEntries([]descriptor.Descriptor{stdioServer(), networkServer(now)}, now, time.Minute)

	var buf bytes.Buffer
	h := output.NewTextHandler[ServerEntry](&buf, NewServerTablePrinter())
	require.NoError(t, h.HandleResults(entries...))

	out := buf.String()
	for _, want := range []string{
		"NAME", "TRANSPORT", "ENDPOINT", "STATUS",
		"calc", "python3 calc.py", "registered",
		"weather", "10.0.0.5:8080", "live",
		"2 servers\n",
	} {
		require.Contains(t, out, want)
	}
}

func TestServerTablePrinter_SingleAndCustomFooter(t *testing.T) {
	t.Parallel()

	p := NewServerTablePrinter()
	p.SetFooter(nil)
	p.SetHeader(func(io.Writer, int) {})

	var buf bytes.Buffer
	require.NoError(t, output.NewTextHandler[ServerEntry](&buf, p).HandleResults(NewServerEntries([]descriptor.Descriptor{stdioServer()}, now, time.Minute)...))
	require.Contains(t, buf.String(), "calc")
	require.NotContains(t, buf.String(), "server\n")
}

func TestServerTablePrinter_ItemBeforeHeader(t *testing.T) {
	t.Parallel()

	err := NewServerTablePrinter().Item(nil, ServerEntry{})
	require.EqualError(t, err, "server table printer used before Header")
}

func TestServerDetailPrinter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := output.NewTextHandler[ServerEntry](&buf, &ServerDetailPrinter{})

	entries := NewServerEntries([]descriptor.Descriptor{stdioServer(), networkServer(now)}, now, time.Minute)
	require.NoError(t, h.HandleResult(entries[0]))

	out := buf.String()
	for _, want := range []string{"FIELD", "VALUE", "basic calculator", "/srv/calc", "add, divide", "registry"} {
		require.Contains(t, out, want)
	}
	require.NotContains(t, out, "Address")

	buf.Reset()
	require.NoError(t, h.HandleResult(entries[1]))
	require.Contains(t, buf.String(), "10.0.0.5:8080")
	require.Contains(t, buf.String(), "Last Seen")
}

func TestCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int
		noun string
		want string
	}{
		{n: 0, noun: "server", want: "0 servers"},
		{n: 1, noun: "server", want: "1 server"},
		{n: 2, noun: "announcement", want: "2 announcements"},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Count(tc.n, tc.noun))
		})
	}
}
