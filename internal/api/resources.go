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

// ResourceEntry is a static resource or resource template exposed by the server.
// For templates URI holds the RFC 6570 template the server expands when the resource is read.
type ResourceEntry struct {
	URI         string `json:"uri"                   doc:"Resource URI, or URI template when template is set"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
	Template    bool   `json:"template,omitempty"    doc:"Whether the URI is a template"`
}

// ResourceList is the combined listing of static resources followed by templates.
type ResourceList struct {
	Resources []ResourceEntry `json:"resources"`
}

// ResourceContent is one part of a read resource. Exactly one of Text or Blob is set.
type ResourceContent struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty" doc:"Base64 encoded binary content"`
}

// ResourceRead is the result of reading a resource.
type ResourceRead struct {
	Contents []ResourceContent `json:"contents"`
}

type resourceListResponse struct {
	Body ResourceList
}

type resourceReadRequest struct {
	URI string `query:"uri" required:"true" doc:"URI of the resource to read" example:"calc://constants/pi"`
}

type resourceReadResponse struct {
	Body ResourceRead
}

func resourceEntry(r mcp.Resource) ResourceEntry {
	return ResourceEntry{
		URI:         r.URI,
		Name:        r.Name,
		Description: r.Description,
		MIMEType:    r.MIMEType,
	}
}

func templateEntry(t mcp.ResourceTemplate) ResourceEntry {
	entry := ResourceEntry{
		Name:        t.Name,
		Description: t.Description,
		MIMEType:    t.MIMEType,
		Template:    true,
	}
	if t.URITemplate != nil {
		entry.URI = t.URITemplate.Raw()
	}

	return entry
}

// listResources returns static resources, optionally followed by templates.
func listResources(accessor contracts.MCPCapabilityAccessor, includeTemplates bool) ResourceList {
	static := accessor.Resources()
	var templates []mcp.ResourceTemplate
	if includeTemplates {
		templates = accessor.ResourceTemplates()
	}

	entries := make([]ResourceEntry, 0, len(static)+len(templates))
	for _, r := range static {
		entries = append(entries, resourceEntry(r))
	}
	for _, t := range templates {
		entries = append(entries, templateEntry(t))
	}

	return ResourceList{Resources: entries}
}

// readResource reads uri through the accessor.
// Content types other than text and blob are reported as a validation error rather than dropped.
func readResource(ctx context.Context, accessor contracts.MCPCapabilityAccessor, uri string) (ResourceRead, error) {
	parts, err := accessor.ReadResource(ctx, uri)
	if err != nil {
		return ResourceRead{}, err
	}

	read := ResourceRead{Contents: make([]ResourceContent, 0, len(parts))}
	for _, part := range parts {
		switch c := part.(type) {
		case mcp.TextResourceContents:
			read.Contents = append(read.Contents, ResourceContent{URI: c.URI, MIMEType: c.MIMEType, Text: c.Text})
		case mcp.BlobResourceContents:
			read.Contents = append(read.Contents, ResourceContent{URI: c.URI, MIMEType: c.MIMEType, Blob: c.Blob})
		default:
			return ResourceRead{}, fmt.Errorf("%w: resource '%s' returned unsupported content %T", errors.ErrValidation, uri, part)
		}
	}

	return read, nil
}

// RegisterResourceRoutes registers the resource listing and read routes under apiPathPrefix.
func RegisterResourceRoutes(routerAPI huma.API, accessor contracts.MCPCapabilityAccessor, apiPathPrefix string) {
	group := huma.NewGroup(routerAPI, apiPathPrefix)
	tags := []string{"Resources"}

	huma.Register(
		group,
		huma.Operation{
			OperationID: "listResources",
			Method:      http.MethodGet,
			Summary:     "List resources",
			Description: "Lists static resources; templates follow unless templates=false",
			Tags:        tags,
		},
		func(_ context.Context, input *struct {
			Templates bool `query:"templates" default:"true" doc:"Include resource templates"`
		},
		) (*resourceListResponse, error) {
			return &resourceListResponse{Body: listResources(accessor, input.Templates)}, nil
		},
	)

	huma.Register(
		group,
		huma.Operation{
			OperationID: "readResource",
			Method:      http.MethodGet,
			Path:        "/read",
			Summary:     "Read a resource",
			Description: "Reads a resource by URI, expanding templates when no static resource matches",
			Tags:        tags,
		},
		func(ctx context.Context, input *resourceReadRequest) (*resourceReadResponse, error) {
			read, err := readResource(ctx, accessor, input.URI)
			if err != nil {
				return nil, err
			}
			return &resourceReadResponse{Body: read}, nil
		},
	)
}
