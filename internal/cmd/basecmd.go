package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/mozilla-ai/quickmcp/internal/files"
	"github.com/mozilla-ai/quickmcp/internal/flags"
	"github.com/mozilla-ai/quickmcp/internal/registry"
)

// BaseCmd carries state shared by every quickmcp command.
type BaseCmd struct {
	logger hclog.Logger
}

// SetLogger updates the command's logger
func (c *BaseCmd) SetLogger(logger hclog.Logger) {
	c.logger = logger
}

// Logger returns the logger for the command.
// Unless one was set explicitly, it is built on first use from the log flags, falling back to the environment.
// Logs are discarded when no log path is configured so command output stays clean.
func (c *BaseCmd) Logger() (hclog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}

	logLevel := strings.ToLower(strings.TrimSpace(flags.LogLevel))
	if logLevel == "" {
		logLevel = strings.ToLower(strings.TrimSpace(os.Getenv(flags.EnvVarLogLevel)))
	}
	if !isValidLogLevel(logLevel) {
		logLevel = flags.DefaultLogLevel
	}

	logPath := strings.TrimSpace(flags.LogPath)
	if logPath == "" {
		logPath = strings.TrimSpace(os.Getenv(flags.EnvVarLogPath))
	}

	var output io.Writer = io.Discard
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, files.RegularFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file (%s): %w", logPath, err)
		}
		output = f
	}

	c.logger = hclog.New(&hclog.LoggerOptions{
		Name:   "quickmcp",
		Level:  hclog.LevelFromString(logLevel),
		Output: output,
	})

	return c.logger, nil
}

// OpenRegistry opens the registry store at path, or at the location configured by the
// global registry flag when path is empty.
func (c *BaseCmd) OpenRegistry(path string, opts ...registry.Option) (*registry.Store, error) {
	logger, err := c.Logger()
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(path) == "" {
		path = flags.RegistryFile
	}
	if strings.TrimSpace(path) == "" {
		path = flags.DefaultRegistryFile()
	}

	return registry.Open(logger, append([]registry.Option{registry.WithPath(path)}, opts...)...)
}

// RequireTogether returns an error when only some of the named flags were set on cmd.
func (c *BaseCmd) RequireTogether(cmd *cobra.Command, flagNames ...string) error {
	set := 0
	for _, name := range flagNames {
		if cmd.Flags().Changed(name) {
			set++
		}
	}

	if set == 0 || set == len(flagNames) {
		return nil
	}

	names := slices.Clone(flagNames)
	slices.Sort(names)

	return fmt.Errorf("flags must be provided together or not at all (%s)", strings.Join(names, ", "))
}

func isValidLogLevel(level string) bool {
	switch level {
	case "trace", "debug", "info", "warn", "error", "off":
		return true
	default:
		return false
	}
}
