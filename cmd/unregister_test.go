package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/quickmcp/internal/errors"
)

func TestUnregister(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	env.register(t, stdioServer("calc"), stdioServer("notes"))

	stdout, _, err := env.run(t, NewUnregisterCmd, "calc")
	require.NoError(t, err)
	require.Equal(t, "✓ Unregistered server 'calc'\n", stdout)

	names, err := env.store(t).Names()
	require.NoError(t, err)
	require.Equal(t, []string{"notes"}, names)
}

func TestUnregister_NotFound(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	env.register(t, stdioServer("notes"))

	_, _, err := env.run(t, NewUnregisterCmd, "calc")
	require.ErrorIs(t, err, errors.ErrNotFound)
	require.ErrorContains(t, err, "'calc'")

	names, err := env.store(t).Names()
	require.NoError(t, err)
	require.Equal(t, []string{"notes"}, names)
}

func TestUnregister_Args(t *testing.T) {
	t.Parallel()

	env := newEnv(t)

	_, _, err := env.run(t, NewUnregisterCmd)
	require.EqualError(t, err, "accepts 1 arg(s), received 0")

	_, _, err = env.run(t, NewUnregisterCmd, "  ")
	require.EqualError(t, err, "server name cannot be empty")
}
