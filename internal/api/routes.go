package api

import (
	"fmt"
	"net/url"
	"reflect"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mozilla-ai/quickmcp/internal/contracts"
)

// APIVersion is the version used in the OpenAPI spec and URL paths.
const APIVersion = "v1"

// RegisterRoutes registers all API routes on the provided Huma router.
// Health and info live at the root, capability routes under the returned prefix (e.g. "/api/v1").
func RegisterRoutes(router huma.API, accessor contracts.MCPCapabilityAccessor) (string, error) {
	if router == nil || reflect.ValueOf(router).IsNil() {
		return "", fmt.Errorf("router cannot be nil")
	}
	if accessor == nil || reflect.ValueOf(accessor).IsNil() {
		return "", fmt.Errorf("capability accessor cannot be nil")
	}

	RegisterHealthRoutes(router, accessor)

	// Safe way to ensure /api/{version}.
	apiPathPrefix, err := url.JoinPath("/api", APIVersion)
	if err != nil {
		return "", fmt.Errorf("failed to construct API path prefix: %w", err)
	}

	versionedGroup := huma.NewGroup(router, apiPathPrefix)
	RegisterToolRoutes(versionedGroup, accessor, "/tools")
	RegisterResourceRoutes(versionedGroup, accessor, "/resources")
	RegisterPromptRoutes(versionedGroup, accessor, "/prompts")

	return apiPathPrefix, nil
}
