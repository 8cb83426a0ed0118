// Package info implements the --info metadata protocol: a server invoked with Flag prints a single
// JSON Document describing itself and exits zero, letting a supervisor learn about a stdio server
// without starting a protocol session.
package info

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/mozilla-ai/quickmcp/internal/descriptor"
	"github.com/mozilla-ai/quickmcp/internal/errors"
)

// Flag is the command line argument that asks a server for its info document.
const Flag = "--info"

// DefaultProbeTimeout bounds how long Probe waits for a server to print its document.
const DefaultProbeTimeout = 10 * time.Second

// maxOutput caps how much of a probed server's output is retained.
const maxOutput = 1 << 20

//go:embed schema.json
var schema []byte

// Document is the identity and capability summary printed in response to Flag.
type Document struct {
	Name        string                   `json:"name"`
	Version     string                   `json:"version,omitempty"`
	Description string                   `json:"description,omitempty"`
	Transport   descriptor.TransportKind `json:"transport"`
	ToolPrefix  string                   `json:"tool_prefix,omitempty"`
	Host        string                   `json:"host,omitempty"`
	Port        int                      `json:"port,omitempty"`
	Tools       []string                 `json:"tools"`
	Resources   []string                 `json:"resources"`
	Prompts     []string                 `json:"prompts"`
}

// Schema returns the JSON Schema every info document must satisfy.
func Schema() []byte {
	return slices.Clone(schema)
}

// Capabilities returns the capability lists of the document.
func (d Document) Capabilities() descriptor.Capabilities {
	return descriptor.Capabilities{
		Tools:     slices.Clone(d.Tools),
		Resources: slices.Clone(d.Resources),
		Prompts:   slices.Clone(d.Prompts),
	}
}

// Apply copies the identity and capabilities reported by the server onto target.
// Fields already set on target take precedence, apart from capabilities which are always replaced.
func (d Document) Apply(target descriptor.Descriptor) descriptor.Descriptor {
	out := target.Clone()
	if out.Description == "" {
		out.Description = d.Description
	}
	if out.Version == "" {
		out.Version = d.Version
	}
	if out.ToolPrefix == "" {
		out.ToolPrefix = d.ToolPrefix
	}
	out.Capabilities = d.Capabilities()

	return out
}

// Write prints doc as indented JSON followed by a newline.
func Write(w io.Writer, doc Document) error {
	if doc.Tools == nil {
		doc.Tools = []string{}
	}
	if doc.Resources == nil {
		doc.Resources = []string{}
	}
	if doc.Prompts == nil {
		doc.Prompts = []string{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write info document: %w", err)
	}

	return nil
}

// Parse validates data against Schema and decodes it.
// Schema violations are reported as an error wrapping errors.ErrValidation that lists each violation.
func Parse(data []byte) (Document, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: empty info document", errors.ErrValidation)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Document{}, fmt.Errorf("%w: info document is not valid JSON: %w", errors.ErrValidation, err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
		}
		return Document{}, fmt.Errorf("%w: info document failed validation: %s",
			errors.ErrValidation, strings.Join(problems, "; "))
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: failed to decode info document: %w", errors.ErrValidation, err)
	}

	return doc, nil
}

// Probe runs command with Flag appended, in dir, and parses what it prints.
// The process is killed when timeout elapses or ctx is cancelled. A non-positive timeout uses
// DefaultProbeTimeout.
func Probe(ctx context.Context, command []string, dir string, timeout time.Duration) (Document, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return Document{}, fmt.Errorf("%w: probe requires a command", errors.ErrValidation)
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(slices.Clone(command[1:]), Flag)
	cmd := exec.CommandContext(ctx, command[0], args...)
	cmd.Dir = dir
	cmd.WaitDelay = time.Second // Grandchildren may hold the output pipes open after a kill.

	var stdout, stderr limitedBuffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Document{}, fmt.Errorf("probe of '%s' timed out after %v: %w", command[0], timeout, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return Document{}, fmt.Errorf("probe of '%s' failed: %w", command[0], err)
		}
		return Document{}, fmt.Errorf("probe of '%s' failed: %w: %s", command[0], err, msg)
	}

	doc, err := Parse(stdout.Bytes())
	if err != nil {
		return Document{}, fmt.Errorf("probe of '%s': %w", command[0], err)
	}

	return doc, nil
}

// limitedBuffer keeps the first maxOutput bytes written to it and discards the rest.
type limitedBuffer struct {
	bytes.Buffer
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := maxOutput - b.Len(); room > 0 {
		if len(p) > room {
			b.Buffer.Write(p[:room])
		} else {
			b.Buffer.Write(p)
		}
	}
	return len(p), nil
}
