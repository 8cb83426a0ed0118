package flags

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/mozilla-ai/quickmcp/internal/files"
)

const (
	// Env vars
	EnvVarRegistryFile = "QUICKMCP_REGISTRY_FILE"
	EnvVarLogPath      = "QUICKMCP_LOG_PATH"
	EnvVarLogLevel     = "QUICKMCP_LOG_LEVEL"

	// Defaults
	DefaultRegistryFileName = "servers.json"
	DefaultLogPath          = ""
	DefaultLogLevel         = "info"

	// Flag names
	FlagNameRegistryFile = "registry-file"
	FlagNameLogPath      = "log-path"
	FlagNameLogLevel     = "log-level"
)

var (
	RegistryFile string
	LogPath      string
	LogLevel     string
)

func InitFlags(fs *pflag.FlagSet) {
	initRegistryFile(fs)
	initLogger(fs)
}

// DefaultRegistryFile returns the per-user registry location, e.g. ~/.config/quickmcp/servers.json.
// When the user config directory cannot be determined, the file name alone is returned (current directory).
func DefaultRegistryFile() string {
	dir, err := files.ConfigDir()
	if err != nil {
		return DefaultRegistryFileName
	}

	return filepath.Join(dir, DefaultRegistryFileName)
}

func initRegistryFile(fs *pflag.FlagSet) {
	if RegistryFile == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarRegistryFile)); env != "" {
			RegistryFile = env
		} else {
			RegistryFile = DefaultRegistryFile()
		}
	}
	fs.StringVar(&RegistryFile, FlagNameRegistryFile, RegistryFile, "path to the server registry file")
}

func initLogger(fs *pflag.FlagSet) {
	if LogPath == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarLogPath)); env != "" {
			LogPath = env
		} else {
			LogPath = DefaultLogPath
		}
	}
	fs.StringVar(&LogPath, FlagNameLogPath, LogPath, "path to generated log file")

	if LogLevel == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarLogLevel)); env != "" {
			LogLevel = strings.ToLower(env)
		} else {
			LogLevel = DefaultLogLevel
		}
	}
	fs.StringVar(&LogLevel, FlagNameLogLevel, LogLevel, "log level for quickmcp logs (trace, debug, info, warn, error, off)")
}
