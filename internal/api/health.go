package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mozilla-ai/quickmcp/internal/contracts"
	"github.com/mozilla-ai/quickmcp/internal/domain"
	"github.com/mozilla-ai/quickmcp/internal/info"
)

const (
	HealthStatusOK       HealthStatus = "ok"
	HealthStatusStarting HealthStatus = "starting"
	HealthStatusStopped  HealthStatus = "stopped"
)

// DomainServerStatus is a wrapper that allows receivers to be declared in the API package that deal with domain types.
type DomainServerStatus domain.ServerStatus

// HealthStatus represents the current status of the MCP server as reported over HTTP.
type HealthStatus string

// Health describes a running MCP server: its identity, transport and capability counts.
type Health struct {
	Status        HealthStatus `doc:"Lifecycle status of the server"           json:"status"`
	Server        string       `doc:"Name of the server"                       json:"server"`
	Version       string       `doc:"Version of the server"                    json:"version,omitempty"`
	Transport     string       `doc:"Transport the server is reachable over"   json:"transport"`
	Address       string       `doc:"Address the server is bound to"           json:"address,omitempty"`
	Tools         int          `doc:"Number of registered tools"               json:"tools"`
	Resources     int          `doc:"Number of registered resources"           json:"resources"`
	Prompts       int          `doc:"Number of registered prompts"             json:"prompts"`
	Uptime        string       `doc:"Time elapsed since the server started"    json:"uptime,omitempty"`
	Announcements uint64       `doc:"Number of presence announcements sent"    json:"announcements"`
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Body Health
}

// InfoResponse is the response for GET /info, the same document a stdio server prints for --info.
type InfoResponse struct {
	Body info.Document
}

// ToAPIType can be used to convert a wrapped domain type to an API-safe type.
func (d DomainServerStatus) ToAPIType() (Health, error) {
	status, err := parseServerState(d.State)
	if err != nil {
		return Health{}, err
	}

	var uptime string
	if up := domain.ServerStatus(d).Uptime(time.Now()); up > 0 {
		uptime = up.Truncate(time.Second).String()
	}

	return Health{
		Status:        status,
		Server:        d.Name,
		Version:       d.Version,
		Transport:     string(d.Transport),
		Address:       d.Address,
		Tools:         d.Counts.Tools,
		Resources:     d.Counts.Resources,
		Prompts:       d.Counts.Prompts,
		Uptime:        uptime,
		Announcements: d.Announcements,
	}, nil
}

// RegisterHealthRoutes sets up the health and info endpoints at the root of routerAPI.
func RegisterHealthRoutes(routerAPI huma.API, provider contracts.MCPStatusProvider) {
	tags := []string{"Health"}

	huma.Register(
		routerAPI,
		huma.Operation{
			OperationID: "getHealth",
			Method:      http.MethodGet,
			Path:        "/health",
			Summary:     "Get the health of the server",
			Tags:        tags,
		},
		func(ctx context.Context, _ *struct{}) (*HealthResponse, error) {
			return handleHealth(provider)
		},
	)

	huma.Register(
		routerAPI,
		huma.Operation{
			OperationID: "getInfo",
			Method:      http.MethodGet,
			Path:        "/info",
			Summary:     "Get the info document of the server",
			Tags:        tags,
		},
		func(ctx context.Context, _ *struct{}) (*InfoResponse, error) {
			resp := &InfoResponse{}
			resp.Body = provider.Info()
			return resp, nil
		},
	)
}

// handleHealth is the handler for retrieving the current health of the server.
func handleHealth(provider contracts.MCPStatusProvider) (*HealthResponse, error) {
	data, err := DomainServerStatus(provider.Status()).ToAPIType()
	if err != nil {
		return nil, err
	}

	resp := &HealthResponse{}
	resp.Body = data

	return resp, nil
}

func parseServerState(state domain.ServerState) (HealthStatus, error) {
	switch state {
	case domain.ServerStatusServing:
		return HealthStatusOK, nil
	case domain.ServerStatusStarting:
		return HealthStatusStarting, nil
	case domain.ServerStatusStopped:
		return HealthStatusStopped, nil
	default:
		return "", fmt.Errorf("unknown server state: %s", state)
	}
}
