package domain

import (
	"time"

	"github.com/mozilla-ai/quickmcp/internal/descriptor"
)

const (
	ServerStatusStarting ServerState = "starting"
	ServerStatusServing  ServerState = "serving"
	ServerStatusStopped  ServerState = "stopped"
)

// ServerState represents the lifecycle stage of an MCP server built with the server package.
type ServerState string

// ServerStatus tracks the internal state of a running MCP server.
type ServerStatus struct {
	Name      string
	Version   string
	State     ServerState
	Transport descriptor.TransportKind
	Address   string
	StartedAt *time.Time
	Counts    descriptor.Counts

	// Announcements is the number of presence datagrams sent so far.
	Announcements uint64
}

// Uptime returns how long the server has been serving at now, or zero if it has not started.
func (s ServerStatus) Uptime(now time.Time) time.Duration {
	if s.StartedAt == nil || now.Before(*s.StartedAt) {
		return 0
	}

	return now.Sub(*s.StartedAt)
}
