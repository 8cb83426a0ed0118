package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mozilla-ai/quickmcp/internal/contracts"
	"github.com/mozilla-ai/quickmcp/internal/errors"
)

// ToolEntry describes a tool. InputSchema is omitted from brief listings.
type ToolEntry struct {
	Name        string         `json:"name"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty" doc:"JSON Schema of the tool's arguments"`
}

// ToolList is the listing of every tool on the server.
type ToolList struct {
	Tools []ToolEntry `json:"tools"`
}

// ToolOutput is the text a tool call produced, one element per text content item.
type ToolOutput struct {
	Tool   string   `json:"tool"`
	Output []string `json:"output"`
}

type toolListRequest struct {
	Brief bool `query:"brief" doc:"Omit input schemas"`
}

type toolListResponse struct {
	Body ToolList
}

type toolRequest struct {
	Name string `path:"name" doc:"Name of the tool" example:"add"`
}

type toolResponse struct {
	Body ToolEntry
}

type toolCallRequest struct {
	Name string         `path:"name" doc:"Name of the tool to call" example:"add"`
	Body map[string]any `required:"false" doc:"Arguments for the tool"`
}

type toolCallResponse struct {
	Body ToolOutput
}

// toolEntry converts tool, decoding a raw schema when the tool was registered with one.
func toolEntry(tool mcp.Tool, brief bool) (ToolEntry, error) {
	entry := ToolEntry{
		Name:        tool.Name,
		Title:       tool.Annotations.Title,
		Description: tool.Description,
	}
	if brief {
		return entry, nil
	}

	raw := tool.RawInputSchema
	if len(raw) == 0 {
		var err error
		if raw, err = json.Marshal(tool.InputSchema); err != nil {
			return ToolEntry{}, fmt.Errorf("failed to encode input schema for tool '%s': %w", tool.Name, err)
		}
	}

	if err := json.Unmarshal(raw, &entry.InputSchema); err != nil {
		return ToolEntry{}, fmt.Errorf("invalid input schema for tool '%s': %w", tool.Name, err)
	}
	if entry.InputSchema == nil {
		entry.InputSchema = map[string]any{}
	}
	if _, ok := entry.InputSchema["type"]; !ok {
		entry.InputSchema["type"] = "object"
	}

	return entry, nil
}

func listTools(accessor contracts.MCPCapabilityAccessor, brief bool) (ToolList, error) {
	list := ToolList{Tools: []ToolEntry{}}
	for _, tool := range accessor.Tools() {
		entry, err := toolEntry(tool, brief)
		if err != nil {
			return ToolList{}, err
		}
		list.Tools = append(list.Tools, entry)
	}

	return list, nil
}

func findTool(accessor contracts.MCPCapabilityAccessor, name string) (ToolEntry, error) {
	for _, tool := range accessor.Tools() {
		if tool.Name == name {
			return toolEntry(tool, false)
		}
	}

	return ToolEntry{}, fmt.Errorf("%w: tool '%s'", errors.ErrNotFound, name)
}

// callTool invokes name, turning a result flagged as an error into errors.ErrToolCallFailed.
func callTool(ctx context.Context, accessor contracts.MCPCapabilityAccessor, name string, args map[string]any) (ToolOutput, error) {
	result, err := accessor.CallTool(ctx, name, args)
	switch {
	case err != nil:
		return ToolOutput{}, err
	case result == nil:
		return ToolOutput{}, fmt.Errorf("%w: tool '%s' returned no result", errors.ErrToolCallFailed, name)
	}

	output := textOf(result.Content)
	if result.IsError {
		return ToolOutput{}, fmt.Errorf("%w: tool '%s': %s", errors.ErrToolCallFailed, name, strings.Join(output, "; "))
	}

	return ToolOutput{Tool: name, Output: output}, nil
}

func textOf(content []mcp.Content) []string {
	out := []string{}
	for _, c := range content {
		if tc, ok := c.(mcp.TextContent); ok {
			out = append(out, tc.Text)
		}
	}

	return out
}

// RegisterToolRoutes registers the tool listing, lookup and call routes under apiPathPrefix.
func RegisterToolRoutes(routerAPI huma.API, accessor contracts.MCPCapabilityAccessor, apiPathPrefix string) {
	group := huma.NewGroup(routerAPI, apiPathPrefix)
	tags := []string{"Tools"}

	huma.Register(
		group,
		huma.Operation{
			OperationID: "listTools",
			Method:      http.MethodGet,
			Summary:     "List tools",
			Description: "Lists tools with their input schemas, or only names and descriptions when brief=true",
			Tags:        tags,
		},
		func(_ context.Context, input *toolListRequest) (*toolListResponse, error) {
			list, err := listTools(accessor, input.Brief)
			if err != nil {
				return nil, err
			}
			return &toolListResponse{Body: list}, nil
		},
	)

	huma.Register(
		group,
		huma.Operation{
			OperationID: "getTool",
			Method:      http.MethodGet,
			Path:        "/{name}",
			Summary:     "Get a tool",
			Tags:        tags,
		},
		func(_ context.Context, input *toolRequest) (*toolResponse, error) {
			entry, err := findTool(accessor, input.Name)
			if err != nil {
				return nil, err
			}
			return &toolResponse{Body: entry}, nil
		},
	)

	huma.Register(
		group,
		huma.Operation{
			OperationID: "callTool",
			Method:      http.MethodPost,
			Path:        "/{name}/call",
			Summary:     "Call a tool",
			Description: "Calls a tool with the request body as its arguments",
			Tags:        tags,
		},
		func(ctx context.Context, input *toolCallRequest) (*toolCallResponse, error) {
			output, err := callTool(ctx, accessor, input.Name, input.Body)
			if err != nil {
				return nil, err
			}
			return &toolCallResponse{Body: output}, nil
		},
	)
}
