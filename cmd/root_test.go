package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	cmdopts "github.com/mozilla-ai/quickmcp/internal/cmd/options"
)

// Root command tests don't run in parallel, the global flags are bound on every call.

func TestNewRootCmd(t *testing.T) {
	root, err := NewRootCmd(baseCmd())
	require.NoError(t, err)
	require.Equal(t, "quickmcp", root.Name())

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	require.ElementsMatch(t, []string{"announce", "discover", "export", "info", "list", "register", "unregister"}, names)

	for _, flag := range []string{"log-level", "log-path", "registry-file"} {
		require.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestNewRootCmd_InvalidOption(t *testing.T) {
	_, err := NewRootCmd(baseCmd(), cmdopts.WithRegistryPath(" "))
	require.Error(t, err)
}
