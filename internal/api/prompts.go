package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mozilla-ai/quickmcp/internal/contracts"
	"github.com/mozilla-ai/quickmcp/internal/errors"
)

// PromptEntry describes a prompt template and the arguments it accepts.
type PromptEntry struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptArgument is a named argument of a prompt template.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptList is the listing of every prompt on the server.
type PromptList struct {
	Prompts []PromptEntry `json:"prompts"`
}

// PromptMessage is a single rendered message. Only text content is carried.
type PromptMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// RenderedPrompt is a prompt template filled in with arguments.
type RenderedPrompt struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

type promptListResponse struct {
	Body PromptList
}

type promptRequest struct {
	Name string `path:"name" doc:"Name of the prompt" example:"explain"`
}

type promptResponse struct {
	Body PromptEntry
}

type promptRenderRequest struct {
	Name string `path:"name" doc:"Name of the prompt" example:"explain"`
	Body struct {
		Arguments map[string]string `json:"arguments,omitempty" doc:"Values for the prompt's arguments"`
	} `required:"false"`
}

type promptRenderResponse struct {
	Body RenderedPrompt
}

func promptEntry(p mcp.Prompt) PromptEntry {
	entry := PromptEntry{Name: p.Name, Description: p.Description}
	for _, a := range p.Arguments {
		entry.Arguments = append(entry.Arguments, PromptArgument{
			Name:        a.Name,
			Description: a.Description,
			Required:    a.Required,
		})
	}

	return entry
}

func findPrompt(accessor contracts.MCPCapabilityAccessor, name string) (PromptEntry, error) {
	for _, p := range accessor.Prompts() {
		if p.Name == name {
			return promptEntry(p), nil
		}
	}

	return PromptEntry{}, fmt.Errorf("%w: prompt '%s'", errors.ErrNotFound, name)
}

// renderPrompt fills in the named prompt, rejecting calls that omit a required argument.
func renderPrompt(
	ctx context.Context,
	accessor contracts.MCPCapabilityAccessor,
	name string,
	args map[string]string,
) (RenderedPrompt, error) {
	entry, err := findPrompt(accessor, name)
	if err != nil {
		return RenderedPrompt{}, err
	}

	for _, a := range entry.Arguments {
		if _, ok := args[a.Name]; a.Required && !ok {
			return RenderedPrompt{}, fmt.Errorf("%w: prompt '%s' requires argument '%s'", errors.ErrValidation, name, a.Name)
		}
	}

	result, err := accessor.GetPrompt(ctx, name, args)
	if err != nil {
		return RenderedPrompt{}, err
	}

	rendered := RenderedPrompt{
		Name:        name,
		Description: result.Description,
		Messages:    make([]PromptMessage, 0, len(result.Messages)),
	}
	for _, m := range result.Messages {
		msg := PromptMessage{Role: string(m.Role)}
		if tc, ok := m.Content.(mcp.TextContent); ok {
			msg.Text = tc.Text
		}
		rendered.Messages = append(rendered.Messages, msg)
	}

	return rendered, nil
}

// RegisterPromptRoutes registers the prompt listing, lookup and render routes under apiPathPrefix.
func RegisterPromptRoutes(routerAPI huma.API, accessor contracts.MCPCapabilityAccessor, apiPathPrefix string) {
	group := huma.NewGroup(routerAPI, apiPathPrefix)
	tags := []string{"Prompts"}

	huma.Register(
		group,
		huma.Operation{
			OperationID: "listPrompts",
			Method:      http.MethodGet,
			Summary:     "List prompts",
			Tags:        tags,
		},
		func(context.Context, *struct{}) (*promptListResponse, error) {
			list := PromptList{Prompts: []PromptEntry{}}
			for _, p := range accessor.Prompts() {
				list.Prompts = append(list.Prompts, promptEntry(p))
			}
			return &promptListResponse{Body: list}, nil
		},
	)

	huma.Register(
		group,
		huma.Operation{
			OperationID: "getPrompt",
			Method:      http.MethodGet,
			Path:        "/{name}",
			Summary:     "Get a prompt",
			Tags:        tags,
		},
		func(_ context.Context, input *promptRequest) (*promptResponse, error) {
			entry, err := findPrompt(accessor, input.Name)
			if err != nil {
				return nil, err
			}
			return &promptResponse{Body: entry}, nil
		},
	)

	huma.Register(
		group,
		huma.Operation{
			OperationID: "renderPrompt",
			Method:      http.MethodPost,
			Path:        "/{name}/render",
			Summary:     "Render a prompt",
			Description: "Fills in a prompt template with the provided arguments",
			Tags:        tags,
		},
		func(ctx context.Context, input *promptRenderRequest) (*promptRenderResponse, error) {
			rendered, err := renderPrompt(ctx, accessor, input.Name, input.Body.Arguments)
			if err != nil {
				return nil, err
			}
			return &promptRenderResponse{Body: rendered}, nil
		},
	)
}
