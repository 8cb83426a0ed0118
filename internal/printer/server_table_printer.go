package printer

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mozilla-ai/quickmcp/internal/cmd/output"
)

var _ output.Printer[ServerEntry] = (*ServerTablePrinter)(nil)

// ServerTablePrinter renders servers as a single table.
// Rows are collected by Item and the table is written by Footer, so one printer serves one listing at a time.
type ServerTablePrinter struct {
	headerFunc output.WriteFunc[ServerEntry]
	footerFunc output.WriteFunc[ServerEntry]
	table      table.Writer
}

// NewServerTablePrinter returns a printer whose footer reports how many servers were listed.
func NewServerTablePrinter() *ServerTablePrinter {
	return &ServerTablePrinter{
		footerFunc: DefaultServerFooter(),
	}
}

func (p *ServerTablePrinter) Header(w io.Writer, count int) {
	if p.headerFunc != nil {
		p.headerFunc(w, count)
	}

	p.table = table.NewWriter()
	p.table.SetStyle(table.StyleLight)
	p.table.AppendHeader(table.Row{"Name", "Transport", "Endpoint", "Tools", "Resources", "Prompts", "Source", "Status"})
}

func (p *ServerTablePrinter) SetHeader(fn output.WriteFunc[ServerEntry]) {
	p.headerFunc = fn
}

func (p *ServerTablePrinter) Item(_ io.Writer, e ServerEntry) error {
	if p.table == nil {
		return fmt.Errorf("server table printer used before Header")
	}

	counts := e.Capabilities.Summary()
	p.table.AppendRow(table.Row{
		e.Name,
		string(e.Transport),
		e.Endpoint(),
		strconv.Itoa(counts.Tools),
		strconv.Itoa(counts.Resources),
		strconv.Itoa(counts.Prompts),
		orDash(string(e.Source)),
		e.Status(),
	})

	return nil
}

func (p *ServerTablePrinter) Footer(w io.Writer, count int) {
	if p.table != nil {
		_, _ = fmt.Fprintln(w, p.table.Render())
		p.table = nil
	}

	if p.footerFunc != nil {
		p.footerFunc(w, count)
	}
}

func (p *ServerTablePrinter) SetFooter(fn output.WriteFunc[ServerEntry]) {
	p.footerFunc = fn
}

// DefaultServerFooter writes the number of servers listed.
func DefaultServerFooter() output.WriteFunc[ServerEntry] {
	return func(w io.Writer, count int) {
		_, _ = fmt.Fprintln(w, Count(count, "server"))
	}
}

// Count renders n followed by noun, pluralised with a trailing "s" unless n is one.
func Count(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
