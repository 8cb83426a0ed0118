package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/quickmcp/internal/announce"
	"github.com/mozilla-ai/quickmcp/internal/cmd"
	cmdopts "github.com/mozilla-ai/quickmcp/internal/cmd/options"
	"github.com/mozilla-ai/quickmcp/internal/descriptor"
	"github.com/mozilla-ai/quickmcp/internal/info"
	"github.com/mozilla-ai/quickmcp/internal/printer"
)

// InfoCmd represents the 'info' command.
type InfoCmd struct {
	*cmd.BaseCmd
	Format       cmd.OutputFormat
	Probe        bool
	ProbeTimeout time.Duration
	cmdOpts      cmdopts.CmdOptions
}

// NewInfoCmd creates a newly configured (Cobra) command.
func NewInfoCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &InfoCmd{
		BaseCmd: baseCmd,
		Format:  cmd.FormatText,
		cmdOpts: opts,
	}

	cobraCommand := &cobra.Command{
		Use:   "info <server-name>",
		Short: "Shows the details of a registered MCP server",
		Long:  c.longDescription(),
		Args:  cobra.ExactArgs(1),
		RunE:  c.run,
	}

	allowed := cmd.AllowedOutputFormats()
	cobraCommand.Flags().Var(
		&c.Format,
		"format",
		fmt.Sprintf("Specify the output format (one of: %s)", allowed.String()),
	)

	cobraCommand.Flags().BoolVar(
		&c.Probe,
		"probe",
		false,
		fmt.Sprintf("Run a stdio server with %s and show the capabilities it reports now", info.Flag),
	)

	cobraCommand.Flags().DurationVar(
		&c.ProbeTimeout,
		"probe-timeout",
		info.DefaultProbeTimeout,
		"How long to wait for the probed server to respond",
	)

	return cobraCommand, nil
}

// longDescription returns the long version of the command description.
func (c *InfoCmd) longDescription() string {
	return `Shows every recorded detail of a registered MCP server.
With --probe a stdio server is run once with '--info', and the capabilities it reports are shown
in place of the recorded ones. The registry is not modified.`
}

// run is configured (via NewInfoCmd) to be called by the Cobra framework when the command is executed.
func (c *InfoCmd) run(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	if name == "" {
		return fmt.Errorf("server name cannot be empty")
	}

	store, err := c.OpenRegistry(c.cmdOpts.RegistryPath)
	if err != nil {
		return err
	}

	d, err := store.Get(name)
	if err != nil {
		return err
	}

	if c.Probe {
		if d.Transport != descriptor.TransportStdio {
			return fmt.Errorf("only stdio servers can be probed, '%s' uses %s", d.Name, d.Transport)
		}
		doc, err := c.cmdOpts.Probe(cmd.Context(), d.Command, d.WorkingDir, c.ProbeTimeout)
		if err != nil {
			return fmt.Errorf("failed to probe server '%s': %w", d.Name, err)
		}
		d = doc.Apply(d)
	}

	entry := printer.NewServerEntries(
		[]descriptor.Descriptor{d},
		c.cmdOpts.Clock(),
		announce.ExpiryWindow(announce.DefaultInterval),
	)[0]

	handler, err := formatHandlerFor(cmd, c.Format, &printer.ServerDetailPrinter{})
	if err != nil {
		return err
	}

	return handler.HandleResult(entry)
}
