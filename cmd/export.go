package cmd

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/quickmcp/internal/announce"
	"github.com/mozilla-ai/quickmcp/internal/cmd"
	cmdopts "github.com/mozilla-ai/quickmcp/internal/cmd/options"
	"github.com/mozilla-ai/quickmcp/internal/descriptor"
	"github.com/mozilla-ai/quickmcp/internal/discovery"
	"github.com/mozilla-ai/quickmcp/internal/export"
	"github.com/mozilla-ai/quickmcp/internal/files"
	"github.com/mozilla-ai/quickmcp/internal/printer"
)

// ExportCmd represents the 'export' command.
type ExportCmd struct {
	*cmd.BaseCmd
	Format       cmd.ExportFormat
	Output       string
	Network      bool
	Timeout      time.Duration
	ExcludeStale bool
	Filters      serverFilters
	cmdOpts      cmdopts.CmdOptions
}

// NewExportCmd creates a newly configured (Cobra) command.
func NewExportCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ExportCmd{
		BaseCmd: baseCmd,
		Format:  cmd.ExportFormat(export.FormatJSON),
		cmdOpts: opts,
	}

	cobraCommand := &cobra.Command{
		Use:   "export",
		Short: "Exports connection details for the registered MCP servers",
		Long:  c.longDescription(),
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}

	allowed := cmd.AllowedExportFormats()
	cobraCommand.Flags().Var(
		&c.Format,
		"format",
		fmt.Sprintf("Specify the export format (one of: %s)", allowed.String()),
	)

	cobraCommand.Flags().StringVarP(
		&c.Output,
		"output",
		"o",
		"",
		"Write the document to this file instead of stdout",
	)

	cobraCommand.Flags().BoolVar(
		&c.Network,
		"network",
		false,
		"Also include servers announcing themselves on the local network",
	)

	cobraCommand.Flags().DurationVar(
		&c.Timeout,
		"timeout",
		DefaultDiscoverTimeout,
		"How long to listen for network announcements (with --network)",
	)

	cobraCommand.Flags().BoolVar(
		&c.ExcludeStale,
		"exclude-stale",
		false,
		"Leave out network servers that stopped announcing",
	)

	c.Filters.bind(cobraCommand.Flags())

	return cobraCommand, nil
}

// longDescription returns the long version of the command description.
func (c *ExportCmd) longDescription() string {
	return `Writes a document an orchestrator can use to connect to every registered MCP server.
Stdio servers are exported with their launch command and working directory, network servers with
the URL of their MCP endpoint. Network servers that stopped announcing are flagged as stale, or
left out with --exclude-stale.`
}

// run is configured (via NewExportCmd) to be called by the Cobra framework when the command is executed.
func (c *ExportCmd) run(cmd *cobra.Command, _ []string) error {
	logger, err := c.Logger()
	if err != nil {
		return err
	}

	store, err := c.OpenRegistry(c.cmdOpts.RegistryPath)
	if err != nil {
		return err
	}

	var servers []descriptor.Descriptor
	if c.Network {
		d, err := discovery.New(logger, store, c.cmdOpts.DiscoveryOptions...)
		if err != nil {
			return err
		}
		res, err := d.Discover(cmd.Context(), discovery.Request{Network: true, Timeout: c.Timeout})
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
		}
		servers = res.Servers
	} else {
		seq, err := store.List()
		if err != nil {
			return err
		}
		servers = slices.Collect(seq)
	}

	servers, err = c.Filters.apply(servers)
	if err != nil {
		return err
	}

	doc, err := export.Build(
		servers,
		export.WithNow(c.cmdOpts.Clock()),
		export.WithStaleWindow(announce.ExpiryWindow(announce.DefaultInterval)),
		export.WithExcludeStale(c.ExcludeStale),
	)
	if err != nil {
		return err
	}

	out := strings.TrimSpace(c.Output)
	if out == "" {
		return c.encode(cmd.OutOrStdout(), doc)
	}

	var buf bytes.Buffer
	if err := c.encode(&buf, doc); err != nil {
		return err
	}

	path, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("failed to resolve output path '%s': %w", out, err)
	}
	if err := files.WriteFileAtomic(path, buf.Bytes(), files.RegularFile); err != nil {
		return fmt.Errorf("failed to write export to '%s': %w", path, err)
	}

	logger.Debug("Exported servers", "path", path, "servers", len(doc.Servers), "format", c.Format.String())
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %s to '%s'\n", printer.Count(len(doc.Servers), "server"), path)

	return err
}

func (c *ExportCmd) encode(w io.Writer, doc export.Document) error {
	return export.Encode(w, doc, c.Format.Format())
}
