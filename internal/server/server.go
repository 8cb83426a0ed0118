// Package server builds MCP servers from an explicit set of capabilities: tools, resources and prompts
// are registered as values and can be removed again until the server starts serving.
//
// A Server can speak MCP over stdio, or over streamable HTTP in which case it also exposes an HTTP
// inspection API and announces itself on the local network.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"github.com/xeipuuv/gojsonschema"

	"github.com/mozilla-ai/quickmcp/internal/announce"
	"github.com/mozilla-ai/quickmcp/internal/descriptor"
	"github.com/mozilla-ai/quickmcp/internal/domain"
	"github.com/mozilla-ai/quickmcp/internal/errors"
	"github.com/mozilla-ai/quickmcp/internal/info"
)

const (
	kindTool     capabilityKind = "tool"
	kindResource capabilityKind = "resource"
	kindPrompt   capabilityKind = "prompt"
)

// DefaultMIMEType is used for resources registered without a MIME type.
const DefaultMIMEType = "text/plain"

// ErrServing is returned when capabilities are changed after the server started serving.
var ErrServing = stderrors.New("server is already serving")

// defaultInputSchema accepts any object.
var defaultInputSchema = json.RawMessage(`{"type":"object","properties":{}}`)

type capabilityKind string

// Handle identifies a registered capability.
type Handle struct {
	kind capabilityKind
	key  string
}

// String returns a human readable form of the handle, e.g. "tool 'add'".
func (h Handle) String() string {
	return fmt.Sprintf("%s '%s'", h.kind, h.key)
}

// ToolHandler handles a tool call.
// Strings are returned to the client as is, any other value is encoded as JSON.
type ToolHandler func(ctx context.Context, args map[string]any) (any, error)

// ToolSpec describes a tool.
type ToolSpec struct {
	Name        string
	Description string

	// InputSchema is the JSON Schema arguments must satisfy. When empty any object is accepted.
	InputSchema json.RawMessage

	Handler ToolHandler
}

// ResourceHandler returns the text content of a resource.
// params holds the values bound to template variables, and is empty for static resources.
type ResourceHandler func(ctx context.Context, uri string, params map[string]string) (string, error)

// ResourceSpec describes a resource. A URI containing '{' is registered as an RFC 6570 template.
type ResourceSpec struct {
	URI         string
	Name        string
	Description string
	MIMEType    string
	Handler     ResourceHandler
}

// PromptHandler renders a prompt from its arguments.
type PromptHandler func(ctx context.Context, args map[string]string) (string, error)

// PromptArgument describes an argument accepted by a prompt.
type PromptArgument struct {
	Name        string
	Description string
	Required    bool
}

// PromptSpec describes a prompt template.
type PromptSpec struct {
	Name        string
	Description string
	Arguments   []PromptArgument
	Handler     PromptHandler
}

type tool struct {
	spec   ToolSpec
	schema *gojsonschema.Schema
	mcp    mcp.Tool
}

type resource struct {
	spec     ResourceSpec
	template *mcp.ResourceTemplate
	mcp      *mcp.Resource
}

type prompt struct {
	spec PromptSpec
	mcp  mcp.Prompt
}

// Server is a set of MCP capabilities along with the identity it is served under.
// NOTE: New should be used to create instances of Server.
type Server struct {
	name    string
	version string
	logger  hclog.Logger
	opts    Options

	mu        sync.RWMutex
	tools     *orderedmap.OrderedMap[string, *tool]
	resources *orderedmap.OrderedMap[string, *resource]
	prompts   *orderedmap.OrderedMap[string, *prompt]

	// mcp is built on first use, after which capabilities are frozen.
	mcp *mcpserver.MCPServer

	state     domain.ServerState
	transport descriptor.TransportKind
	host      string
	port      int
	address   string
	startedAt *time.Time
	announcer *announce.Announcer
}

// New creates a Server named name.
func New(name string, version string, opts ...Option) (*Server, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: server name cannot be empty", errors.ErrValidation)
	}

	options, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Server{
		name:      name,
		version:   strings.TrimSpace(version),
		logger:    logger.Named("server"),
		opts:      options,
		tools:     orderedmap.New[string, *tool](),
		resources: orderedmap.New[string, *resource](),
		prompts:   orderedmap.New[string, *prompt](),
		state:     domain.ServerStatusStarting,
		transport: descriptor.TransportStdio,
	}, nil
}

// Name returns the name of the server.
func (s *Server) Name() string {
	return s.name
}

// AddTool registers a tool. Names must be unique.
func (s *Server) AddTool(spec ToolSpec) (Handle, error) {
	spec.Name = strings.TrimSpace(spec.Name)
	if spec.Name == "" {
		return Handle{}, fmt.Errorf("%w: tool name cannot be empty", errors.ErrValidation)
	}
	if spec.Handler == nil {
		return Handle{}, fmt.Errorf("%w: tool '%s' requires a handler", errors.ErrValidation, spec.Name)
	}

	raw := spec.InputSchema
	if len(raw) == 0 {
		raw = defaultInputSchema
	}
	var top map[string]any
	if err := json.Unmarshal(raw, &top); err != nil {
		return Handle{}, fmt.Errorf("%w: tool '%s' input schema must be a JSON object: %w",
			errors.ErrValidation, spec.Name, err)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return Handle{}, fmt.Errorf("%w: tool '%s' has an invalid input schema: %w",
			errors.ErrValidation, spec.Name, err)
	}
	spec.InputSchema = slices.Clone(raw)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutable(); err != nil {
		return Handle{}, err
	}
	if _, ok := s.tools.Get(spec.Name); ok {
		return Handle{}, fmt.Errorf("%w: tool '%s' is already registered", errors.ErrValidation, spec.Name)
	}

	s.tools.Set(spec.Name, &tool{
		spec:   spec,
		schema: schema,
		mcp:    mcp.NewToolWithRawSchema(spec.Name, spec.Description, spec.InputSchema),
	})
	s.logger.Debug("Registered tool", "name", spec.Name)

	return Handle{kind: kindTool, key: spec.Name}, nil
}

// AddResource registers a static resource or a resource template. URIs must be unique.
func (s *Server) AddResource(spec ResourceSpec) (Handle, error) {
	spec.URI = strings.TrimSpace(spec.URI)
	if spec.URI == "" {
		return Handle{}, fmt.Errorf("%w: resource URI cannot be empty", errors.ErrValidation)
	}
	if spec.Handler == nil {
		return Handle{}, fmt.Errorf("%w: resource '%s' requires a handler", errors.ErrValidation, spec.URI)
	}
	if strings.TrimSpace(spec.Name) == "" {
		spec.Name = spec.URI
	}
	if spec.MIMEType == "" {
		spec.MIMEType = DefaultMIMEType
	}

	r := &resource{spec: spec}
	if strings.Contains(spec.URI, "{") {
		t, err := newResourceTemplate(spec)
		if err != nil {
			return Handle{}, err
		}
		r.template = &t
	} else {
		res := mcp.NewResource(spec.URI, spec.Name,
			mcp.WithResourceDescription(spec.Description),
			mcp.WithMIMEType(spec.MIMEType),
		)
		r.mcp = &res
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutable(); err != nil {
		return Handle{}, err
	}
	if _, ok := s.resources.Get(spec.URI); ok {
		return Handle{}, fmt.Errorf("%w: resource '%s' is already registered", errors.ErrValidation, spec.URI)
	}

	s.resources.Set(spec.URI, r)
	s.logger.Debug("Registered resource", "uri", spec.URI, "template", r.template != nil)

	return Handle{kind: kindResource, key: spec.URI}, nil
}

// newResourceTemplate parses the URI template of spec. The template parser panics on malformed input.
func newResourceTemplate(spec ResourceSpec) (t mcp.ResourceTemplate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: resource template '%s' is invalid: %v", errors.ErrValidation, spec.URI, r)
		}
	}()

	t = mcp.NewResourceTemplate(spec.URI, spec.Name,
		mcp.WithTemplateDescription(spec.Description),
		mcp.WithTemplateMIMEType(spec.MIMEType),
	)

	return t, nil
}

// AddPrompt registers a prompt template. Names must be unique.
func (s *Server) AddPrompt(spec PromptSpec) (Handle, error) {
	spec.Name = strings.TrimSpace(spec.Name)
	if spec.Name == "" {
		return Handle{}, fmt.Errorf("%w: prompt name cannot be empty", errors.ErrValidation)
	}
	if spec.Handler == nil {
		return Handle{}, fmt.Errorf("%w: prompt '%s' requires a handler", errors.ErrValidation, spec.Name)
	}

	opts := []mcp.PromptOption{mcp.WithPromptDescription(spec.Description)}
	seen := make(map[string]struct{}, len(spec.Arguments))
	for _, arg := range spec.Arguments {
		if strings.TrimSpace(arg.Name) == "" {
			return Handle{}, fmt.Errorf("%w: prompt '%s' has an unnamed argument", errors.ErrValidation, spec.Name)
		}
		if _, ok := seen[arg.Name]; ok {
			return Handle{}, fmt.Errorf("%w: prompt '%s' repeats argument '%s'",
				errors.ErrValidation, spec.Name, arg.Name)
		}
		seen[arg.Name] = struct{}{}

		argOpts := []mcp.ArgumentOption{mcp.ArgumentDescription(arg.Description)}
		if arg.Required {
			argOpts = append(argOpts, mcp.RequiredArgument())
		}
		opts = append(opts, mcp.WithArgument(arg.Name, argOpts...))
	}
	spec.Arguments = slices.Clone(spec.Arguments)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutable(); err != nil {
		return Handle{}, err
	}
	if _, ok := s.prompts.Get(spec.Name); ok {
		return Handle{}, fmt.Errorf("%w: prompt '%s' is already registered", errors.ErrValidation, spec.Name)
	}

	s.prompts.Set(spec.Name, &prompt{spec: spec, mcp: mcp.NewPrompt(spec.Name, opts...)})
	s.logger.Debug("Registered prompt", "name", spec.Name)

	return Handle{kind: kindPrompt, key: spec.Name}, nil
}

// Remove unregisters the capability identified by h.
// Returns an error wrapping errors.ErrNotFound when it is not registered, and ErrServing once serving started.
func (s *Server) Remove(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutable(); err != nil {
		return err
	}

	var removed bool
	switch h.kind {
	case kindTool:
		_, removed = s.tools.Delete(h.key)
	case kindResource:
		_, removed = s.resources.Delete(h.key)
	case kindPrompt:
		_, removed = s.prompts.Delete(h.key)
	}
	if !removed {
		return fmt.Errorf("%w: %s", errors.ErrNotFound, h)
	}

	s.logger.Debug("Removed capability", "capability", h.String())

	return nil
}

// mutable reports ErrServing once the MCP server has been built. Callers must hold s.mu.
func (s *Server) mutable() error {
	if s.mcp != nil {
		return fmt.Errorf("%w: capabilities of '%s' can no longer change", ErrServing, s.name)
	}

	return nil
}

// MCPServer returns the underlying MCP protocol server, building it on first use.
// From then on capabilities can no longer be added or removed.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mcp != nil {
		return s.mcp
	}

	opts := []mcpserver.ServerOption{
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithResourceCapabilities(false, false),
		mcpserver.WithPromptCapabilities(false),
		mcpserver.WithRecovery(),
	}
	if s.opts.Description != "" {
		opts = append(opts, mcpserver.WithInstructions(s.opts.Description))
	}

	srv := mcpserver.NewMCPServer(s.name, s.version, opts...)

	for t := s.tools.Oldest(); t != nil; t = t.Next() {
		registered := t.Value
		srv.AddTool(registered.mcp, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return s.invoke(ctx, registered, req.GetArguments()), nil
		})
	}

	for r := s.resources.Oldest(); r != nil; r = r.Next() {
		registered := r.Value
		handler := func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			return s.read(ctx, registered, req.Params.URI)
		}
		if registered.template != nil {
			srv.AddResourceTemplate(*registered.template, handler)
		} else {
			srv.AddResource(*registered.mcp, handler)
		}
	}

	for p := s.prompts.Oldest(); p != nil; p = p.Next() {
		registered := p.Value
		srv.AddPrompt(registered.mcp, func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			return s.render(ctx, registered, req.Params.Arguments)
		})
	}

	s.mcp = srv
	s.logger.Debug(
		"Built MCP server",
		"tools", s.tools.Len(),
		"resources", s.resources.Len(),
		"prompts", s.prompts.Len(),
	)

	return srv
}

// invoke validates args against the tool's schema and calls its handler.
// Failures are reported to the client as tool errors rather than protocol errors.
func (s *Server) invoke(ctx context.Context, t *tool, args map[string]any) *mcp.CallToolResult {
	if args == nil {
		args = map[string]any{}
	}

	result, err := t.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to validate arguments for tool '%s': %v", t.spec.Name, err))
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
		}
		return mcp.NewToolResultError(
			fmt.Sprintf("invalid arguments for tool '%s': %s", t.spec.Name, strings.Join(problems, "; ")),
		)
	}

	out, err := t.spec.Handler(ctx, args)
	if err != nil {
		s.logger.Debug("Tool returned an error", "tool", t.spec.Name, "error", err)
		return mcp.NewToolResultError(err.Error())
	}

	text, err := renderToolOutput(out)
	if err != nil {
		s.logger.Warn("Failed to encode tool result", "tool", t.spec.Name, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result of tool '%s': %v", t.spec.Name, err))
	}

	return mcp.NewToolResultText(text)
}

func renderToolOutput(out any) (string, error) {
	switch v := out.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

// read returns the content of r for uri, binding template variables when r is a template.
func (s *Server) read(ctx context.Context, r *resource, uri string) ([]mcp.ResourceContents, error) {
	params := map[string]string{}
	if r.template != nil {
		values := r.template.URITemplate.Match(uri)
		if values == nil {
			return nil, fmt.Errorf("%w: resource '%s' does not match template '%s'",
				errors.ErrNotFound, uri, r.spec.URI)
		}
		for name, value := range values {
			params[name] = value.String()
		}
	}

	text, err := r.spec.Handler(ctx, uri, params)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource '%s': %w", uri, err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: r.spec.MIMEType, Text: text},
	}, nil
}

// render checks required arguments and renders p as a single user message.
func (s *Server) render(ctx context.Context, p *prompt, args map[string]string) (*mcp.GetPromptResult, error) {
	if args == nil {
		args = map[string]string{}
	}

	for _, arg := range p.spec.Arguments {
		if arg.Required && strings.TrimSpace(args[arg.Name]) == "" {
			return nil, fmt.Errorf("%w: prompt '%s' requires argument '%s'",
				errors.ErrValidation, p.spec.Name, arg.Name)
		}
	}

	text, err := p.spec.Handler(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt '%s': %w", p.spec.Name, err)
	}

	return mcp.NewGetPromptResult(p.spec.Description, []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
	}), nil
}

// Tools returns the registered tools in registration order.
func (s *Server) Tools() []mcp.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]mcp.Tool, 0, s.tools.Len())
	for t := s.tools.Oldest(); t != nil; t = t.Next() {
		out = append(out, t.Value.mcp)
	}

	return out
}

// CallTool invokes the named tool in-process.
// Handler failures are reported through the result's IsError flag.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	s.mu.RLock()
	t, ok := s.tools.Get(name)
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: tool '%s'", errors.ErrNotFound, name)
	}

	return s.invoke(ctx, t, args), nil
}

// Resources returns the registered static resources in registration order.
func (s *Server) Resources() []mcp.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []mcp.Resource
	for r := s.resources.Oldest(); r != nil; r = r.Next() {
		if r.Value.mcp != nil {
			out = append(out, *r.Value.mcp)
		}
	}

	return out
}

// ResourceTemplates returns the registered resource templates in registration order.
func (s *Server) ResourceTemplates() []mcp.ResourceTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []mcp.ResourceTemplate
	for r := s.resources.Oldest(); r != nil; r = r.Next() {
		if r.Value.template != nil {
			out = append(out, *r.Value.template)
		}
	}

	return out
}

// ReadResource reads uri in-process. Static resources are matched before templates.
func (s *Server) ReadResource(ctx context.Context, uri string) ([]mcp.ResourceContents, error) {
	s.mu.RLock()
	match, ok := s.resources.Get(uri)
	if !ok || match.template != nil {
		match = nil
		for r := s.resources.Oldest(); r != nil; r = r.Next() {
			if r.Value.template != nil && r.Value.template.URITemplate.Match(uri) != nil {
				match = r.Value
				break
			}
		}
	}
	s.mu.RUnlock()

	if match == nil {
		return nil, fmt.Errorf("%w: resource '%s'", errors.ErrNotFound, uri)
	}

	return s.read(ctx, match, uri)
}

// Prompts returns the registered prompts in registration order.
func (s *Server) Prompts() []mcp.Prompt {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]mcp.Prompt, 0, s.prompts.Len())
	for p := s.prompts.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value.mcp)
	}

	return out
}

// GetPrompt renders the named prompt in-process.
func (s *Server) GetPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	s.mu.RLock()
	p, ok := s.prompts.Get(name)
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: prompt '%s'", errors.ErrNotFound, name)
	}

	return s.render(ctx, p, args)
}

// Counts returns the number of registered tools, resources and prompts.
func (s *Server) Counts() descriptor.Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return descriptor.Counts{
		Tools:     s.tools.Len(),
		Resources: s.resources.Len(),
		Prompts:   s.prompts.Len(),
	}
}

// Info returns the info document of the server.
// While serving over the network the document carries the transport and bound address.
func (s *Server) Info() info.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := info.Document{
		Name:        s.name,
		Version:     s.version,
		Description: s.opts.Description,
		Transport:   s.transport,
		ToolPrefix:  s.opts.ToolPrefix,
		Tools:       make([]string, 0, s.tools.Len()),
		Resources:   make([]string, 0, s.resources.Len()),
		Prompts:     make([]string, 0, s.prompts.Len()),
	}
	if s.transport == descriptor.TransportNetwork {
		doc.Host = s.host
		doc.Port = s.port
	}

	for t := s.tools.Oldest(); t != nil; t = t.Next() {
		doc.Tools = append(doc.Tools, t.Key)
	}
	for r := s.resources.Oldest(); r != nil; r = r.Next() {
		doc.Resources = append(doc.Resources, r.Key)
	}
	for p := s.prompts.Oldest(); p != nil; p = p.Next() {
		doc.Prompts = append(doc.Prompts, p.Key)
	}

	return doc
}

// HandleInfoFlag writes the info document to w when args contains info.Flag.
// It reports whether the flag was present, in which case the process should exit zero without serving.
func (s *Server) HandleInfoFlag(args []string, w io.Writer) (bool, error) {
	if !slices.Contains(args, info.Flag) {
		return false, nil
	}

	return true, info.Write(w, s.Info())
}

// Status returns a snapshot of the server's lifecycle state.
func (s *Server) Status() domain.ServerStatus {
	counts := s.Counts()

	s.mu.RLock()
	defer s.mu.RUnlock()

	status := domain.ServerStatus{
		Name:      s.name,
		Version:   s.version,
		State:     s.state,
		Transport: s.transport,
		Address:   s.address,
		Counts:    counts,
	}
	if s.startedAt != nil {
		t := *s.startedAt
		status.StartedAt = &t
	}
	if s.announcer != nil {
		status.Announcements = s.announcer.Sent()
	}

	return status
}

// markServing records that the server is serving over transport.
func (s *Server) markServing(transport descriptor.TransportKind, host string, port int, address string) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = domain.ServerStatusServing
	s.transport = transport
	s.host = host
	s.port = port
	s.address = address
	s.startedAt = &now
}

// markStopped records that the server stopped serving.
func (s *Server) markStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = domain.ServerStatusStopped
}
