package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/hashicorp/go-hclog"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/quickmcp/internal/descriptor"
	"github.com/mozilla-ai/quickmcp/internal/domain"
	"github.com/mozilla-ai/quickmcp/internal/errors"
	"github.com/mozilla-ai/quickmcp/internal/info"
)

// fakeAccessor is an in-memory MCPCapabilityAccessor for a calculator server.
type fakeAccessor struct {
	status domain.ServerStatus
}

func newFakeAccessor() *fakeAccessor {
	started := time.Now().Add(-time.Minute)
	return &fakeAccessor{
		status: domain.ServerStatus{
			Name:      "calc",
			Version:   "1.0.0",
			State:     domain.ServerStatusServing,
			Transport: descriptor.TransportNetwork,
			Address:   "127.0.0.1:9000",
			StartedAt: &started,
			Counts:    descriptor.Counts{Tools: 2, Resources: 1, Prompts: 1},
		},
	}
}

func (f *fakeAccessor) Status() domain.ServerStatus { return f.status }

func (f *fakeAccessor) Info() info.Document {
	return info.Document{
		Name:      "calc",
		Version:   "1.0.0",
		Transport: descriptor.TransportNetwork,
		Port:      9000,
		Tools:     []string{"add", "divide"},
		Resources: []string{"history://{id}"},
		Prompts:   []string{"explain"},
	}
}

func (f *fakeAccessor) Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewToolWithRawSchema("add", "Add two numbers", json.RawMessage(
			`{"type":"object","properties":{"a":{"type":"number"},"b":{"type":"number"}},"required":["a","b"]}`,
		)),
		mcp.NewTool("divide", mcp.WithDescription("Divide two numbers")),
	}
}

func (f *fakeAccessor) CallTool(_ context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	switch name {
	case "add":
		a, _ := args["a"].(float64)
		b, _ := args["b"].(float64)
		return mcp.NewToolResultText(fmt.Sprint(a + b)), nil
	case "divide":
		return mcp.NewToolResultError("division by zero"), nil
	default:
		return nil, fmt.Errorf("%w: tool '%s'", errors.ErrNotFound, name)
	}
}

func (f *fakeAccessor) Resources() []mcp.Resource {
	return []mcp.Resource{mcp.NewResource("config://calc", "config", mcp.WithMIMEType("application/json"))}
}

func (f *fakeAccessor) ResourceTemplates() []mcp.ResourceTemplate {
	return []mcp.ResourceTemplate{mcp.NewResourceTemplate("history://{id}", "history")}
}

func (f *fakeAccessor) ReadResource(_ context.Context, uri string) ([]mcp.ResourceContents, error) {
	if uri != "history://42" {
		return nil, fmt.Errorf("%w: resource '%s'", errors.ErrNotFound, uri)
	}
	return []mcp.ResourceContents{mcp.TextResourceContents{URI: uri, MIMEType: "text/plain", Text: "1 + 1 = 2"}}, nil
}

func (f *fakeAccessor) Prompts() []mcp.Prompt {
	return []mcp.Prompt{mcp.NewPrompt("explain",
		mcp.WithPromptDescription("Explain an operation"),
		mcp.WithArgument("operation", mcp.RequiredArgument()),
	)}
}

func (f *fakeAccessor) GetPrompt(_ context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	if name != "explain" {
		return nil, fmt.Errorf("%w: prompt '%s'", errors.ErrNotFound, name)
	}
	return mcp.NewGetPromptResult("Explain an operation", []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent("Explain "+args["operation"])),
	}), nil
}

func newTestAPI(t *testing.T) humatest.TestAPI {
	t.Helper()

	_, testAPI := humatest.New(t, huma.DefaultConfig("quickmcp test", "1.0.0"))
	prefix, err := RegisterRoutes(testAPI, newFakeAccessor())
	require.NoError(t, err)
	require.Equal(t, "/api/v1", prefix)

	return testAPI
}

func TestRegisterRoutes_NilArguments(t *testing.T) {
	t.Parallel()

	_, err := RegisterRoutes(nil, newFakeAccessor())
	require.EqualError(t, err, "router cannot be nil")

	_, testAPI := humatest.New(t)
	_, err = RegisterRoutes(testAPI, nil)
	require.EqualError(t, err, "capability accessor cannot be nil")

	var accessor *fakeAccessor
	_, err = RegisterRoutes(testAPI, accessor)
	require.EqualError(t, err, "capability accessor cannot be nil")
}

func TestHealthRoute(t *testing.T) {
	t.Parallel()

	resp := newTestAPI(t).Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	var got Health
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	require.Equal(t, HealthStatusOK, got.Status)
	require.Equal(t, "calc", got.Server)
	require.Equal(t, "1.0.0", got.Version)
	require.Equal(t, "network", got.Transport)
	require.Equal(t, 2, got.Tools)
	require.Equal(t, 1, got.Resources)
	require.Equal(t, 1, got.Prompts)
	require.NotEmpty(t, got.Uptime)
}

func TestInfoRoute(t *testing.T) {
	t.Parallel()

	resp := newTestAPI(t).Get("/info")
	require.Equal(t, http.StatusOK, resp.Code)

	doc, err := info.Parse(resp.Body.Bytes())
	require.NoError(t, err)
	require.Equal(t, []string{"add", "divide"}, doc.Tools)
	require.Equal(t, 9000, doc.Port)
}

func TestToolRoutes(t *testing.T) {
	t.Parallel()

	testAPI := newTestAPI(t)

	resp := testAPI.Get("/api/v1/tools")
	require.Equal(t, http.StatusOK, resp.Code)

	var list ToolList
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list.Tools, 2)
	require.Equal(t, "add", list.Tools[0].Name)
	require.Equal(t, []any{"a", "b"}, list.Tools[0].InputSchema["required"])
	require.Equal(t, "object", list.Tools[1].InputSchema["type"])

	resp = testAPI.Get("/api/v1/tools?brief=true")
	require.Equal(t, http.StatusOK, resp.Code)

	var brief ToolList
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &brief))
	require.Equal(t, []ToolEntry{
		{Name: "add", Description: "Add two numbers"},
		{Name: "divide", Description: "Divide two numbers"},
	}, brief.Tools)

	resp = testAPI.Get("/api/v1/tools/divide")
	require.Equal(t, http.StatusOK, resp.Code)

	var entry ToolEntry
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &entry))
	require.Equal(t, "Divide two numbers", entry.Description)
	require.NotNil(t, entry.InputSchema)

	resp = testAPI.Post("/api/v1/tools/add/call", map[string]any{"a": 2, "b": 3})
	require.Equal(t, http.StatusOK, resp.Code)

	var output ToolOutput
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &output))
	require.Equal(t, ToolOutput{Tool: "add", Output: []string{"5"}}, output)
}

func TestFindTool_NotFound(t *testing.T) {
	t.Parallel()

	_, err := findTool(newFakeAccessor(), "missing")
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestCallTool_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tool    string
		is      error
		wantErr string
	}{
		{name: "tool reports failure", tool: "divide", is: errors.ErrToolCallFailed, wantErr: "tool 'divide': division by zero"},
		{name: "unknown tool", tool: "missing", is: errors.ErrNotFound, wantErr: "tool 'missing'"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := callTool(context.Background(), newFakeAccessor(), tc.tool, nil)
			require.ErrorIs(t, err, tc.is)
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestToolEntry_InvalidRawSchema(t *testing.T) {
	t.Parallel()

	tool := mcp.NewToolWithRawSchema("bad", "", json.RawMessage(`[1, 2]`))
	_, err := toolEntry(tool, false)
	require.ErrorContains(t, err, "invalid input schema for tool 'bad'")

	entry, err := toolEntry(tool, true)
	require.NoError(t, err)
	require.Nil(t, entry.InputSchema)
}

func TestResourceRoutes(t *testing.T) {
	t.Parallel()

	testAPI := newTestAPI(t)

	tests := []struct {
		name string
		path string
		want []ResourceEntry
	}{
		{
			name: "static then templates",
			path: "/api/v1/resources",
			want: []ResourceEntry{
				{URI: "config://calc", Name: "config", MIMEType: "application/json"},
				{URI: "history://{id}", Name: "history", Template: true},
			},
		},
		{
			name: "static only",
			path: "/api/v1/resources?templates=false",
			want: []ResourceEntry{{URI: "config://calc", Name: "config", MIMEType: "application/json"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := testAPI.Get(tc.path)
			require.Equal(t, http.StatusOK, resp.Code)

			var list ResourceList
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
			require.Equal(t, tc.want, list.Resources)
		})
	}
}

func TestReadResource(t *testing.T) {
	t.Parallel()

	testAPI := newTestAPI(t)

	resp := testAPI.Get("/api/v1/resources/read?uri=history://42")
	require.Equal(t, http.StatusOK, resp.Code)

	var read ResourceRead
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &read))
	require.Equal(t, []ResourceContent{{URI: "history://42", MIMEType: "text/plain", Text: "1 + 1 = 2"}}, read.Contents)

	_, err := readResource(context.Background(), newFakeAccessor(), "history://missing")
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestPromptRoutes(t *testing.T) {
	t.Parallel()

	testAPI := newTestAPI(t)

	resp := testAPI.Get("/api/v1/prompts")
	require.Equal(t, http.StatusOK, resp.Code)

	var list PromptList
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list.Prompts, 1)
	require.Equal(t, "explain", list.Prompts[0].Name)

	resp = testAPI.Get("/api/v1/prompts/explain")
	require.Equal(t, http.StatusOK, resp.Code)

	var entry PromptEntry
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &entry))
	require.Equal(t, []PromptArgument{{Name: "operation", Required: true}}, entry.Arguments)

	resp = testAPI.Post("/api/v1/prompts/explain/render", map[string]any{
		"arguments": map[string]string{"operation": "add"},
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var rendered RenderedPrompt
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &rendered))
	require.Equal(t, RenderedPrompt{
		Name:        "explain",
		Description: "Explain an operation",
		Messages:    []PromptMessage{{Role: "user", Text: "Explain add"}},
	}, rendered)
}

func TestRenderPrompt_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		prompt  string
		args    map[string]string
		is      error
		wantErr string
	}{
		{
			name:    "unknown prompt",
			prompt:  "summarize",
			is:      errors.ErrNotFound,
			wantErr: "prompt 'summarize'",
		},
		{
			name:    "missing required argument",
			prompt:  "explain",
			args:    map[string]string{},
			is:      errors.ErrValidation,
			wantErr: "prompt 'explain' requires argument 'operation'",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := renderPrompt(context.Background(), newFakeAccessor(), tc.prompt, tc.args)
			require.ErrorIs(t, err, tc.is)
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestParseServerState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state domain.ServerState
		want  HealthStatus
	}{
		{state: domain.ServerStatusServing, want: HealthStatusOK},
		{state: domain.ServerStatusStarting, want: HealthStatusStarting},
		{state: domain.ServerStatusStopped, want: HealthStatusStopped},
	}

	for _, tc := range tests {
		t.Run(string(tc.state), func(t *testing.T) {
			t.Parallel()
			got, err := parseServerState(tc.state)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	_, err := parseServerState("invalid-state")
	require.EqualError(t, err, "unknown server state: invalid-state")
}

func TestMapError(t *testing.T) {
	t.Parallel()

	logger := hclog.NewNullLogger()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: fmt.Errorf("%w: bad", errors.ErrValidation), want: http.StatusBadRequest},
		{name: "config", err: fmt.Errorf("%w: bad", errors.ErrConfig), want: http.StatusBadRequest},
		{name: "not found", err: fmt.Errorf("%w: tool 'x'", errors.ErrNotFound), want: http.StatusNotFound},
		{name: "tool call", err: fmt.Errorf("%w: x", errors.ErrToolCallFailed), want: http.StatusUnprocessableEntity},
		{name: "lock", err: fmt.Errorf("%w: busy", errors.ErrLockUnavailable), want: http.StatusServiceUnavailable},
		{name: "unknown", err: fmt.Errorf("boom"), want: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, MapError(logger, tc.err).GetStatus())
		})
	}
}

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	handler := ErrorHandler(hclog.NewNullLogger())

	require.Equal(t, http.StatusTeapot, handler(nil, http.StatusTeapot, "teapot").GetStatus())

	notFound := fmt.Errorf("%w: tool 'x'", errors.ErrNotFound)
	require.Equal(t, http.StatusNotFound, handler(nil, http.StatusInternalServerError, "oops", notFound).GetStatus())

	detail := &huma.ErrorDetail{Message: "expected number", Location: "body.a"}
	require.Equal(t, http.StatusUnprocessableEntity,
		handler(nil, http.StatusUnprocessableEntity, "validation failed", detail).GetStatus())

	joined := handler(nil, http.StatusInternalServerError, "oops", fmt.Errorf("other"), notFound)
	require.Equal(t, http.StatusNotFound, joined.GetStatus())
}
