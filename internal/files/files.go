package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// AppName names the per-user directories quickmcp keeps its state in.
const AppName = "quickmcp"

// EnvVarXDGConfigHome overrides the base of ConfigDir when set to an absolute path.
const EnvVarXDGConfigHome = "XDG_CONFIG_HOME"

const (
	// RegularFile is the mode of registry, export and log files.
	RegularFile os.FileMode = 0o644

	// RegularDir is the mode of directories quickmcp creates.
	RegularDir os.FileMode = 0o755
)

// ConfigDir returns $XDG_CONFIG_HOME/quickmcp, or ~/.config/quickmcp when the variable is unset or blank.
// A relative XDG_CONFIG_HOME is rejected rather than resolved against the working directory.
func ConfigDir() (string, error) {
	if base := strings.TrimSpace(os.Getenv(EnvVarXDGConfigHome)); base != "" {
		if !filepath.IsAbs(base) {
			return "", fmt.Errorf("%s must be an absolute path, got '%s'", EnvVarXDGConfigHome, base)
		}
		return filepath.Join(base, AppName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}

	return filepath.Join(home, ".config", AppName), nil
}

// EnsureDir creates path with RegularDir permissions when missing.
// An existing path must be a real directory; symlinks are refused.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, RegularDir); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", path, err)
	}

	fi, err := os.Lstat(path)
	switch {
	case err != nil:
		return fmt.Errorf("failed to stat directory '%s': %w", path, err)
	case fi.Mode()&os.ModeSymlink != 0:
		return fmt.Errorf("'%s' is a symlink, not a directory", path)
	case !fi.IsDir():
		return fmt.Errorf("'%s' is not a directory", path)
	}

	return nil
}

// IsReadableDir reports whether path resolves (following symlinks) to a directory whose entries can be listed.
func IsReadableDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	_, err = f.Readdirnames(1)
	return err == nil || errors.Is(err, io.EOF)
}

// WriteFileAtomic writes data to a temporary file alongside path and renames it over path.
// Readers observe either the previous complete file or the new complete file, never a partial write.
// The temporary file is synced before the rename and removed if any step fails.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in '%s': %w", dir, err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write temporary file '%s': %w", tmpPath, err)
	}

	if err = tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to sync temporary file '%s': %w", tmpPath, err)
	}

	if err = tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file '%s': %w", tmpPath, err)
	}

	if err = os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions on '%s': %w", tmpPath, err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename '%s' to '%s': %w", tmpPath, path, err)
	}

	return nil
}
