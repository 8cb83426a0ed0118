package descriptor

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mozilla-ai/quickmcp/internal/errors"
)

const (
	// TransportStdio servers are launched as child processes and spoken to over stdin/stdout.
	TransportStdio TransportKind = "stdio"

	// TransportNetwork servers are already running and reachable at host:port.
	TransportNetwork TransportKind = "network"
)

const (
	// SourceRegistry marks a descriptor read from the registry file.
	SourceRegistry Source = "registry"

	// SourceFilesystem marks an ephemeral descriptor produced by scanning the filesystem.
	SourceFilesystem Source = "filesystem"

	// SourceNetwork marks an ephemeral descriptor built from a multicast announcement.
	SourceNetwork Source = "network"
)

// TransportKind identifies how a client connects to a server.
type TransportKind string

// Source records which discovery channel produced a descriptor.
// It is never persisted.
type Source string

// Descriptor is the unit of both the registry and discovery: it identifies one server along with
// either the information needed to launch it, or the address it can be reached at.
type Descriptor struct {
	// Name is unique within a registry file.
	Name string `json:"name" toml:"name" yaml:"name"`

	// Command is the ordered launch command (program followed by arguments).
	// Only empty for network servers.
	Command []string `json:"command,omitempty" toml:"command,omitempty" yaml:"command,omitempty"`

	// WorkingDir is the directory the launch command should be started in.
	WorkingDir string `json:"working_dir,omitempty" toml:"working_dir,omitempty" yaml:"working_dir,omitempty"`

	Description string `json:"description,omitempty" toml:"description,omitempty" yaml:"description,omitempty"`

	Version string `json:"version,omitempty" toml:"version,omitempty" yaml:"version,omitempty"`

	// ToolPrefix is applied to every tool name the server exposes when aggregated by a consumer.
	ToolPrefix string `json:"tool_prefix,omitempty" toml:"tool_prefix,omitempty" yaml:"tool_prefix,omitempty"`

	Transport TransportKind `json:"transport" toml:"transport" yaml:"transport"`

	Capabilities Capabilities `json:"capabilities" toml:"capabilities" yaml:"capabilities"`

	// RegisteredAt is only set for descriptors persisted in the registry.
	RegisteredAt *time.Time `json:"registered_at,omitempty" toml:"registered_at,omitempty" yaml:"registered_at,omitempty"`

	// Host, Port, LastSeen and InstanceID apply to network servers only.
	Host       string     `json:"host,omitempty" toml:"host,omitempty" yaml:"host,omitempty"`
	Port       int        `json:"port,omitempty" toml:"port,omitempty" yaml:"port,omitempty"`
	LastSeen   *time.Time `json:"last_seen,omitempty" toml:"last_seen,omitempty" yaml:"last_seen,omitempty"`
	InstanceID string     `json:"instance_id,omitempty" toml:"instance_id,omitempty" yaml:"instance_id,omitempty"`

	Source Source `json:"-" toml:"-" yaml:"-"`
}

// Capabilities summarizes what a server exposes.
// Descriptors built from announcements only carry Counts, full lists are never sent over multicast.
type Capabilities struct {
	Tools     []string `json:"tools,omitempty" toml:"tools,omitempty" yaml:"tools,omitempty"`
	Resources []string `json:"resources,omitempty" toml:"resources,omitempty" yaml:"resources,omitempty"`
	Prompts   []string `json:"prompts,omitempty" toml:"prompts,omitempty" yaml:"prompts,omitempty"`

	Counts *Counts `json:"counts,omitempty" toml:"counts,omitempty" yaml:"counts,omitempty"`
}

// Counts holds the number of tools, resources and prompts a server exposes.
type Counts struct {
	Tools     int `json:"tools" toml:"tools" yaml:"tools"`
	Resources int `json:"resources" toml:"resources" yaml:"resources"`
	Prompts   int `json:"prompts" toml:"prompts" yaml:"prompts"`
}

// Key identifies a network descriptor for deduplication of announcements.
type Key struct {
	Name string
	Host string
	Port int
}

func (k Key) String() string {
	return k.Name + "@" + strings.TrimSpace(k.Host) + ":" + strconv.Itoa(k.Port)
}

// ParseTransportKind converts a user supplied string to a TransportKind.
func ParseTransportKind(s string) (TransportKind, error) {
	switch t := TransportKind(strings.ToLower(strings.TrimSpace(s))); t {
	case TransportStdio, TransportNetwork:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown transport '%s' (must be one of: %s, %s)",
			errors.ErrValidation, s, TransportStdio, TransportNetwork)
	}
}

// Validate checks the transport specific invariants of the descriptor.
// Returned errors wrap errors.ErrValidation.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", errors.ErrValidation)
	}

	switch d.Transport {
	case TransportStdio:
		if len(d.Command) == 0 || strings.TrimSpace(d.Command[0]) == "" {
			return fmt.Errorf("%w: stdio server '%s' requires a launch command", errors.ErrValidation, d.Name)
		}
	case TransportNetwork:
		if strings.TrimSpace(d.Host) == "" {
			return fmt.Errorf("%w: network server '%s' requires a host", errors.ErrValidation, d.Name)
		}
		if d.Port <= 0 || d.Port > 65535 {
			return fmt.Errorf("%w: network server '%s' has invalid port %d", errors.ErrValidation, d.Name, d.Port)
		}
	default:
		return fmt.Errorf("%w: server '%s' has unknown transport '%s'", errors.ErrValidation, d.Name, d.Transport)
	}

	return nil
}

// Key returns the (name, host, port) triple of the descriptor.
func (d Descriptor) Key() Key {
	return Key{Name: d.Name, Host: d.Host, Port: d.Port}
}

// IsRegistered reports whether the descriptor was persisted in a registry.
// Filesystem and network discoveries are ephemeral until explicitly registered.
func (d Descriptor) IsRegistered() bool {
	return d.RegisteredAt != nil
}

// IsStale reports whether a network descriptor has not been refreshed within window of now.
// Descriptors that have never been seen over the network are never stale.
func (d Descriptor) IsStale(now time.Time, window time.Duration) bool {
	if d.Transport != TransportNetwork || d.LastSeen == nil {
		return false
	}

	return now.Sub(*d.LastSeen) > window
}

// Address returns host:port for network descriptors, or an empty string.
func (d Descriptor) Address() string {
	if d.Transport != TransportNetwork {
		return ""
	}

	return d.Host + ":" + strconv.Itoa(d.Port)
}

// Summary returns the capability counts, derived from the full lists when they are known.
func (c Capabilities) Summary() Counts {
	if c.Counts != nil && len(c.Tools) == 0 && len(c.Resources) == 0 && len(c.Prompts) == 0 {
		return *c.Counts
	}

	return Counts{
		Tools:     len(c.Tools),
		Resources: len(c.Resources),
		Prompts:   len(c.Prompts),
	}
}

// Clone returns a deep copy of the descriptor.
func (d Descriptor) Clone() Descriptor {
	out := d
	out.Command = slices.Clone(d.Command)
	out.Capabilities.Tools = slices.Clone(d.Capabilities.Tools)
	out.Capabilities.Resources = slices.Clone(d.Capabilities.Resources)
	out.Capabilities.Prompts = slices.Clone(d.Capabilities.Prompts)
	if d.Capabilities.Counts != nil {
		c := *d.Capabilities.Counts
		out.Capabilities.Counts = &c
	}
	if d.RegisteredAt != nil {
		t := *d.RegisteredAt
		out.RegisteredAt = &t
	}
	if d.LastSeen != nil {
		t := *d.LastSeen
		out.LastSeen = &t
	}

	return out
}
