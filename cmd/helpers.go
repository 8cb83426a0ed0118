package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mozilla-ai/quickmcp/internal/cmd"
	"github.com/mozilla-ai/quickmcp/internal/cmd/output"
	"github.com/mozilla-ai/quickmcp/internal/printer"
)

// formatHandlerFor returns the output handler writing server entries to the command's output.
func formatHandlerFor(
	c *cobra.Command,
	format cmd.OutputFormat,
	p output.Printer[printer.ServerEntry],
) (output.Handler[printer.ServerEntry], error) {
	return cmd.FormatHandler[printer.ServerEntry](c.OutOrStdout(), format, p)
}
