package contracts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mozilla-ai/quickmcp/internal/domain"
	"github.com/mozilla-ai/quickmcp/internal/info"
)

// MCPStatusProvider reports on the lifecycle of a running MCP server.
type MCPStatusProvider interface {
	// Status returns a snapshot of the server's current state.
	Status() domain.ServerStatus

	// Info returns the info document describing the server.
	Info() info.Document
}

// MCPCapabilityAccessor provides in-process access to the capabilities registered on an MCP server.
// Lookups of unknown names return an error wrapping errors.ErrNotFound.
type MCPCapabilityAccessor interface {
	MCPStatusProvider

	// Tools returns the registered tools in registration order.
	Tools() []mcp.Tool

	// CallTool invokes the named tool with args.
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)

	// Resources returns the registered static resources in registration order.
	Resources() []mcp.Resource

	// ResourceTemplates returns the registered resource templates in registration order.
	ResourceTemplates() []mcp.ResourceTemplate

	// ReadResource reads the resource identified by uri, matching templates when no static resource matches.
	ReadResource(ctx context.Context, uri string) ([]mcp.ResourceContents, error)

	// Prompts returns the registered prompts in registration order.
	Prompts() []mcp.Prompt

	// GetPrompt renders the named prompt with args.
	GetPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error)
}
