package printer

import (
	"strings"
	"time"

	"github.com/mozilla-ai/quickmcp/internal/descriptor"
)

// ServerEntry is a descriptor as presented by the CLI, along with where it was found.
type ServerEntry struct {
	descriptor.Descriptor `yaml:",inline"`

	// Source is the discovery channel that produced the descriptor.
	Source descriptor.Source `json:"source,omitempty" yaml:"source,omitempty"`

	// Stale is set for network servers that have not announced within the expiry window.
	Stale bool `json:"stale,omitempty" yaml:"stale,omitempty"`
}

// NewServerEntries wraps descriptors for output, flagging network servers last seen more than window before now.
func NewServerEntries(servers []descriptor.Descriptor, now time.Time, window time.Duration) []ServerEntry {
	entries := make([]ServerEntry, 0, len(servers))
	for _, d := range servers {
		source := d.Source
		if source == "" && d.IsRegistered() {
			source = descriptor.SourceRegistry
		}
		entries = append(entries, ServerEntry{
			Descriptor: d,
			Source:     source,
			Stale:      d.IsStale(now, window),
		})
	}

	return entries
}

// Endpoint is how a client reaches the server: its address for network servers, its launch command otherwise.
func (e ServerEntry) Endpoint() string {
	if e.Transport == descriptor.TransportNetwork {
		return e.Address()
	}

	return strings.Join(e.Command, " ")
}

// Status summarizes the liveness of the entry.
func (e ServerEntry) Status() string {
	switch {
	case e.Stale:
		return "stale"
	case e.Transport == descriptor.TransportNetwork:
		return "live"
	case e.IsRegistered():
		return "registered"
	default:
		return "available"
	}
}
