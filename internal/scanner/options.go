package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mozilla-ai/quickmcp/internal/files"
)

// Marker is a textual signature indicating that a script constructs an MCP server.
// When Pattern has a capture group named "name", its match is used as the server name.
type Marker struct {
	Label   string
	Pattern *regexp.Regexp
}

// Option defines a functional option for configuring a Scanner.
type Option func(*Options) error

// Options contains optional configuration for the Scanner.
type Options struct {
	// SearchPaths are the root directories scanned, defaults are used when not configured.
	SearchPaths []string

	// ExtraPaths are scanned in addition to SearchPaths.
	ExtraPaths []string

	// Markers are matched against file contents, any match makes the file a candidate.
	Markers []Marker

	// Launchers maps a file extension (including the dot) to the command prefix used to run it.
	// Files with an extension not present are never read.
	Launchers map[string][]string

	// MaxFileSize is the largest file, in bytes, whose contents are inspected.
	MaxFileSize int64

	// MaxDepth is how many directory levels below each root are descended into.
	MaxDepth int
}

// NewOptions creates Options with optional configurations applied.
// Starts with default values, then applies options in order with later options overriding earlier ones.
func NewOptions(opts ...Option) (Options, error) {
	options := Options{
		SearchPaths: DefaultSearchPaths(),
		Markers:     DefaultMarkers(),
		Launchers:   DefaultLaunchers(),
		MaxFileSize: DefaultMaxFileSize,
		MaxDepth:    DefaultMaxDepth,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&options); err != nil {
			return Options{}, err
		}
	}

	return options, nil
}

const (
	// DefaultMaxFileSize limits content inspection to 1 MiB per file.
	DefaultMaxFileSize int64 = 1 << 20

	// DefaultMaxDepth is the default number of directory levels descended below a root.
	DefaultMaxDepth = 3
)

// DefaultSearchPaths returns the directories scanned when none are configured:
// the user config servers directory, ~/.quickmcp/servers, and the current working directory.
// Paths that cannot be determined are omitted.
func DefaultSearchPaths() []string {
	var paths []string

	if dir, err := files.ConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "servers"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, "."+files.AppName, "servers"))
	}

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, cwd)
	}

	return paths
}

// DefaultMarkers returns the server construction signatures recognised out of the box.
func DefaultMarkers() []Marker {
	return []Marker{
		{
			Label:   "quickmcp",
			Pattern: regexp.MustCompile(`QuickMCPServer\(\s*(?:name\s*=\s*)?["'](?P<name>[^"']+)["']`),
		},
		{
			Label:   "fastmcp",
			Pattern: regexp.MustCompile(`FastMCP\(\s*(?:name\s*=\s*)?["'](?P<name>[^"']+)["']`),
		},
		{
			Label:   "mcp-go",
			Pattern: regexp.MustCompile(`server\.NewMCPServer\(\s*"(?P<name>[^"]+)"`),
		},
		{
			Label:   "typescript-sdk",
			Pattern: regexp.MustCompile(`new\s+McpServer\(\s*\{\s*name:\s*["'](?P<name>[^"']+)["']`),
		},
		{
			Label:   "annotation",
			Pattern: regexp.MustCompile(`(?m)^[ \t]*(?:#|//)[ \t]*quickmcp:server(?:[ \t]+(?P<name>[\w.-]+))?[ \t]*$`),
		},
	}
}

// DefaultLaunchers returns the command prefix used for each supported script extension.
func DefaultLaunchers() map[string][]string {
	return map[string][]string{
		".py": {"python3"},
		".js": {"node"},
		".ts": {"npx", "tsx"},
		".go": {"go", "run"},
		".sh": {"sh"},
	}
}

// WithSearchPaths replaces the default search roots.
func WithSearchPaths(paths ...string) Option {
	return func(o *Options) error {
		o.SearchPaths = cleanPaths(paths)
		return nil
	}
}

// WithExtraPaths adds search roots scanned after the configured search paths.
func WithExtraPaths(paths ...string) Option {
	return func(o *Options) error {
		o.ExtraPaths = append(o.ExtraPaths, cleanPaths(paths)...)
		return nil
	}
}

// WithMarkers replaces the default server markers.
func WithMarkers(markers ...Marker) Option {
	return func(o *Options) error {
		if len(markers) == 0 {
			return fmt.Errorf("at least one marker is required")
		}
		for _, m := range markers {
			if m.Pattern == nil {
				return fmt.Errorf("marker '%s' has no pattern", m.Label)
			}
		}
		o.Markers = markers
		return nil
	}
}

// WithLauncher sets the command prefix for files with the given extension, e.g. ".rb" -> ["ruby"].
func WithLauncher(ext string, command ...string) Option {
	return func(o *Options) error {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("extension must start with '.', got '%s'", ext)
		}
		if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
			return fmt.Errorf("launcher for '%s' requires a command", ext)
		}
		if o.Launchers == nil {
			o.Launchers = map[string][]string{}
		}
		o.Launchers[ext] = command
		return nil
	}
}

// WithMaxFileSize configures the largest file whose contents are inspected.
func WithMaxFileSize(size int64) Option {
	return func(o *Options) error {
		if size <= 0 {
			return fmt.Errorf("max file size must be positive, got %d", size)
		}
		o.MaxFileSize = size
		return nil
	}
}

// WithMaxDepth configures how many directory levels are descended below each root.
func WithMaxDepth(depth int) Option {
	return func(o *Options) error {
		if depth < 0 {
			return fmt.Errorf("max depth cannot be negative, got %d", depth)
		}
		o.MaxDepth = depth
		return nil
	}
}

func cleanPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, filepath.Clean(p))
		}
	}
	return out
}
