//go:build validate_info
// +build validate_info

package main

import (
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"

	"github.com/mozilla-ai/quickmcp/internal/info"
)

// main validates info documents, as printed by a server run with --info, against the embedded schema.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: go run -tags=validate_info ./tools/validate/info.go <info.json>...\n")
		os.Exit(1)
	}

	schemaLoader := gojsonschema.NewBytesLoader(info.Schema())

	failed := false
	for _, path := range os.Args[1:] {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
			os.Exit(1)
		}

		result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error validating %s: %v\n", path, err)
			os.Exit(1)
		}

		if !result.Valid() {
			failed = true
			fmt.Printf("❌ %s failed validation:\n", path)
			for _, err := range result.Errors() {
				fmt.Printf("  - %s: %s\n", err.Field(), err.Description())
			}
			continue
		}

		fmt.Printf("✅ %s is a valid info document\n", path)
	}

	if failed {
		os.Exit(1)
	}
}
