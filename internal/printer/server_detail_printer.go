package printer

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mozilla-ai/quickmcp/internal/cmd/output"
)

var _ output.Printer[ServerEntry] = (*ServerDetailPrinter)(nil)

// ServerDetailPrinter renders every field of a single server as a key/value table.
type ServerDetailPrinter struct {
	headerFunc output.WriteFunc[ServerEntry]
	footerFunc output.WriteFunc[ServerEntry]
}

func (p *ServerDetailPrinter) Header(w io.Writer, count int) {
	if p.headerFunc != nil {
		p.headerFunc(w, count)
	}
}

func (p *ServerDetailPrinter) SetHeader(fn output.WriteFunc[ServerEntry]) {
	p.headerFunc = fn
}

func (p *ServerDetailPrinter) Item(w io.Writer, e ServerEntry) error {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Field", "Value"})

	add := func(key string, value string) {
		if value != "" {
			t.AppendRow(table.Row{key, value})
		}
	}

	counts := e.Capabilities.Summary()

	add("Name", e.Name)
	add("Description", e.Description)
	add("Version", e.Version)
	add("Transport", string(e.Transport))
	add("Command", strings.Join(e.Command, " "))
	add("Working Dir", e.WorkingDir)
	add("Address", e.Address())
	add("Tool Prefix", e.ToolPrefix)
	add("Tools", listOrCount(e.Capabilities.Tools, counts.Tools))
	add("Resources", listOrCount(e.Capabilities.Resources, counts.Resources))
	add("Prompts", listOrCount(e.Capabilities.Prompts, counts.Prompts))
	add("Source", string(e.Source))
	add("Status", e.Status())
	if e.RegisteredAt != nil {
		add("Registered", e.RegisteredAt.Format(time.RFC3339))
	}
	if e.LastSeen != nil {
		add("Last Seen", e.LastSeen.Format(time.RFC3339))
	}
	add("Instance", e.InstanceID)

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func (p *ServerDetailPrinter) Footer(w io.Writer, count int) {
	if p.footerFunc != nil {
		p.footerFunc(w, count)
	}
}

func (p *ServerDetailPrinter) SetFooter(fn output.WriteFunc[ServerEntry]) {
	p.footerFunc = fn
}

// listOrCount joins names when they are known, falling back to the count announced over the network.
func listOrCount(names []string, count int) string {
	if len(names) > 0 {
		return strings.Join(names, ", ")
	}

	return fmt.Sprintf("%d", count)
}
