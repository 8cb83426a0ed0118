package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigDir(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name    string
		xdg     string
		want    string
		wantErr string
	}{
		{name: "absolute xdg", xdg: "/custom/xdg/path", want: "/custom/xdg/path/quickmcp"},
		{name: "xdg is trimmed", xdg: "  /trimmed/xdg  ", want: "/trimmed/xdg/quickmcp"},
		{name: "blank xdg uses home", xdg: " ", want: filepath.Join(home, ".config", "quickmcp")},
		{name: "relative xdg", xdg: "relative/path", wantErr: "XDG_CONFIG_HOME must be an absolute path, got 'relative/path'"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(EnvVarXDGConfigHome, tc.xdg)

			got, err := ConfigDir()
			if tc.wantErr != "" {
				require.EqualError(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestEnsureDir(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	target := filepath.Join(base, "target")
	require.NoError(t, os.Mkdir(target, RegularDir))
	require.NoError(t, os.Symlink(target, filepath.Join(base, "link")))
	require.NoError(t, os.WriteFile(filepath.Join(base, "file"), []byte("x"), RegularFile))

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{name: "missing nested directory", path: filepath.Join(base, "a", "b")},
		{name: "existing directory", path: target},
		{name: "symlink", path: filepath.Join(base, "link"), wantErr: "is a symlink"},
		{name: "regular file", path: filepath.Join(base, "file"), wantErr: "failed to create directory"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := EnsureDir(tc.path)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.DirExists(t, tc.path)
		})
	}
}

func TestIsReadableDir(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	file := filepath.Join(base, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), RegularFile))

	require.True(t, IsReadableDir(base))
	require.True(t, IsReadableDir(t.TempDir()), "empty directory is still readable")
	require.False(t, IsReadableDir(file))
	require.False(t, IsReadableDir(filepath.Join(base, "missing")))
}

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	t.Run("creates and replaces file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "servers.json")

		require.NoError(t, WriteFileAtomic(path, []byte(`{"a":1}`), RegularFile))
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, `{"a":1}`, string(got))

		require.NoError(t, WriteFileAtomic(path, []byte(`{"b":2}`), RegularFile))
		got, err = os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, `{"b":2}`, string(got))

		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, RegularFile, info.Mode().Perm())
	})

	t.Run("leaves no temporary files behind", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "servers.json")
		require.NoError(t, WriteFileAtomic(path, []byte(`{}`), RegularFile))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, "servers.json", entries[0].Name())
	})

	t.Run("fails when directory is missing and keeps nothing", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "missing", "servers.json")
		err := WriteFileAtomic(path, []byte(`{}`), RegularFile)
		require.Error(t, err)

		_, statErr := os.Stat(path)
		require.ErrorIs(t, statErr, os.ErrNotExist)
	})
}
