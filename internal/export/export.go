// Package export transforms discovered servers into a connection document for an external
// orchestrator. Records are a direct field mapping from descriptors.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/mozilla-ai/quickmcp/internal/announce"
	"github.com/mozilla-ai/quickmcp/internal/descriptor"
)

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// DefaultURLPath is the HTTP path network servers serve the MCP protocol on.
const DefaultURLPath = "/mcp"

// Format is an export document encoding.
type Format string

// Formats returns the supported export encodings.
func Formats() []Format {
	return []Format{FormatJSON, FormatTOML, FormatYAML}
}

// Document is the exported connection document.
type Document struct {
	Servers []Record `json:"servers" toml:"servers" yaml:"servers"`
}

// Record describes how an orchestrator connects to one server.
type Record struct {
	Name        string                   `json:"name" toml:"name" yaml:"name"`
	Transport   descriptor.TransportKind `json:"transport" toml:"transport" yaml:"transport"`
	Source      descriptor.Source        `json:"source,omitempty" toml:"source,omitempty" yaml:"source,omitempty"`
	Command     string                   `json:"command,omitempty" toml:"command,omitempty" yaml:"command,omitempty"`
	Args        []string                 `json:"args,omitempty" toml:"args,omitempty" yaml:"args,omitempty"`
	Cwd         string                   `json:"cwd,omitempty" toml:"cwd,omitempty" yaml:"cwd,omitempty"`
	URL         string                   `json:"url,omitempty" toml:"url,omitempty" yaml:"url,omitempty"`
	ToolPrefix  string                   `json:"tool_prefix,omitempty" toml:"tool_prefix,omitempty" yaml:"tool_prefix,omitempty"`
	Description string                   `json:"description,omitempty" toml:"description,omitempty" yaml:"description,omitempty"`
	Version     string                   `json:"version,omitempty" toml:"version,omitempty" yaml:"version,omitempty"`
	Tools       []string                 `json:"tools,omitempty" toml:"tools,omitempty" yaml:"tools,omitempty"`
	Counts      descriptor.Counts        `json:"counts" toml:"counts" yaml:"counts"`
	LastSeen    *time.Time               `json:"last_seen,omitempty" toml:"last_seen,omitempty" yaml:"last_seen,omitempty"`
	Stale       bool                     `json:"stale,omitempty" toml:"stale,omitempty" yaml:"stale,omitempty"`
}

// Option defines a functional option for configuring Build.
type Option func(*Options) error

// Options contains optional configuration for Build.
type Options struct {
	// StaleWindow is how long a network server stays fresh after it was last seen.
	StaleWindow time.Duration

	// ExcludeStale drops stale network records instead of flagging them.
	ExcludeStale bool

	// Now is the reference time for staleness.
	Now time.Time

	// URLPath is appended to host:port to build network URLs.
	URLPath string
}

// NewOptions creates Options with optional configurations applied.
func NewOptions(opts ...Option) (Options, error) {
	options := Options{
		StaleWindow: announce.ExpiryWindow(announce.DefaultInterval),
		Now:         time.Now().UTC(),
		URLPath:     DefaultURLPath,
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

// WithStaleWindow configures how long a network server stays fresh.
func WithStaleWindow(window time.Duration) Option {
	return func(o *Options) error {
		if window <= 0 {
			return fmt.Errorf("stale window must be positive, got %v", window)
		}
		o.StaleWindow = window
		return nil
	}
}

// WithExcludeStale drops stale network records from the document.
// Whether stale servers are removed is always the caller's decision, Build never prunes by itself.
func WithExcludeStale(exclude bool) Option {
	return func(o *Options) error {
		o.ExcludeStale = exclude
		return nil
	}
}

// WithNow configures the reference time used to decide staleness.
func WithNow(now time.Time) Option {
	return func(o *Options) error {
		o.Now = now
		return nil
	}
}

// WithURLPath configures the HTTP path appended to network addresses.
func WithURLPath(path string) Option {
	return func(o *Options) error {
		path = strings.TrimSpace(path)
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("URL path must start with '/', got '%s'", path)
		}
		o.URLPath = path
		return nil
	}
}

// Build maps servers to an export document, preserving their order.
func Build(servers []descriptor.Descriptor, opts ...Option) (Document, error) {
	options, err := NewOptions(opts...)
	if err != nil {
		return Document{}, err
	}

	doc := Document{Servers: make([]Record, 0, len(servers))}
	for _, s := range servers {
		stale := s.IsStale(options.Now, options.StaleWindow)
		if stale && options.ExcludeStale {
			continue
		}
		doc.Servers = append(doc.Servers, record(s, stale, options.URLPath))
	}

	return doc, nil
}

func record(d descriptor.Descriptor, stale bool, urlPath string) Record {
	r := Record{
		Name:        d.Name,
		Transport:   d.Transport,
		Source:      d.Source,
		Cwd:         d.WorkingDir,
		ToolPrefix:  d.ToolPrefix,
		Description: d.Description,
		Version:     d.Version,
		Tools:       slices.Clone(d.Capabilities.Tools),
		Counts:      d.Capabilities.Summary(),
		Stale:       stale,
	}

	switch d.Transport {
	case descriptor.TransportStdio:
		if len(d.Command) > 0 {
			r.Command = d.Command[0]
			r.Args = slices.Clone(d.Command[1:])
		}
	case descriptor.TransportNetwork:
		r.URL = "http://" + net.JoinHostPort(strings.Trim(d.Host, "[]"), strconv.Itoa(d.Port)) + urlPath
		if d.LastSeen != nil {
			t := *d.LastSeen
			r.LastSeen = &t
		}
	}

	return r
}

// Encode writes doc to w in the given format.
func Encode(w io.Writer, doc Document, format Format) error {
	switch Format(strings.ToLower(string(format))) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(doc)
	default:
		return fmt.Errorf("unsupported export format '%s'", format)
	}
}
