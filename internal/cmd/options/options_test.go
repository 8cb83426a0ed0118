package options

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/quickmcp/internal/announce"
	"github.com/mozilla-ai/quickmcp/internal/discovery"
	"github.com/mozilla-ai/quickmcp/internal/info"
)

func TestNewOptions_Defaults(t *testing.T) {
	t.Parallel()

	opts, err := NewOptions()
	require.NoError(t, err)

	require.Empty(t, opts.RegistryPath)
	require.Empty(t, opts.DiscoveryOptions)
	require.Empty(t, opts.AnnouncerOptions)
	require.NotNil(t, opts.Probe)
	require.NotNil(t, opts.Clock)
	require.Equal(t, time.UTC, opts.Clock().Location())
}

func TestNewOptions_Overrides(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	probe := func(context.Context, []string, string, time.Duration) (info.Document, error) {
		return info.Document{Name: "calc"}, nil
	}

	opts, err := NewOptions(
		nil,
		WithRegistryPath(" /tmp/servers.json "),
		WithDiscoveryOptions(discovery.WithListenFunc(func(context.Context, time.Duration) (announce.Collection, error) {
			return announce.Collection{}, nil
		})),
		WithAnnouncerOptions(announce.WithInterval(time.Second)),
		WithProbe(probe),
		WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	require.Equal(t, "/tmp/servers.json", opts.RegistryPath)
	require.Len(t, opts.DiscoveryOptions, 1)
	require.Len(t, opts.AnnouncerOptions, 1)
	require.Equal(t, now, opts.Clock())

	doc, err := opts.Probe(context.Background(), []string{"calc"}, "", time.Second)
	require.NoError(t, err)
	require.Equal(t, "calc", doc.Name)
}

func TestNewOptions_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opt     CmdOption
		wantErr string
	}{
		{name: "empty registry path", opt: WithRegistryPath("  "), wantErr: "registry path cannot be empty"},
		{name: "nil probe", opt: WithProbe(nil), wantErr: "probe function cannot be nil"},
		{name: "nil clock", opt: WithClock(nil), wantErr: "clock cannot be nil"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewOptions(tc.opt)
			require.EqualError(t, err, tc.wantErr)
		})
	}
}
