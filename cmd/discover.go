package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/quickmcp/internal/announce"
	"github.com/mozilla-ai/quickmcp/internal/cmd"
	cmdopts "github.com/mozilla-ai/quickmcp/internal/cmd/options"
	"github.com/mozilla-ai/quickmcp/internal/discovery"
	"github.com/mozilla-ai/quickmcp/internal/printer"
)

// DefaultDiscoverTimeout is long enough to hear at least one announcement from every live server.
const DefaultDiscoverTimeout = 3 * time.Second

// DiscoverCmd represents the 'discover' command.
type DiscoverCmd struct {
	*cmd.BaseCmd
	Filesystem   bool
	Network      bool
	Timeout      time.Duration
	Paths        []string
	AutoRegister bool
	Format       cmd.OutputFormat
	Filters      serverFilters
	cmdOpts      cmdopts.CmdOptions
}

// NewDiscoverCmd creates a newly configured (Cobra) command.
func NewDiscoverCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &DiscoverCmd{
		BaseCmd: baseCmd,
		Format:  cmd.FormatText,
		cmdOpts: opts,
	}

	cobraCommand := &cobra.Command{
		Use:   "discover",
		Short: "Finds MCP servers in the registry, on the filesystem and on the local network",
		Long:  c.longDescription(),
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}

	cobraCommand.Flags().BoolVar(
		&c.Filesystem,
		"filesystem",
		false,
		"Scan the filesystem for server scripts",
	)

	cobraCommand.Flags().BoolVar(
		&c.Network,
		"network",
		false,
		"Listen for servers announcing themselves on the local network",
	)

	cobraCommand.Flags().DurationVar(
		&c.Timeout,
		"timeout",
		DefaultDiscoverTimeout,
		"How long to listen for network announcements",
	)

	cobraCommand.Flags().StringArrayVar(
		&c.Paths,
		"path",
		nil,
		"Additional directory to scan (can be repeated)",
	)

	cobraCommand.Flags().BoolVar(
		&c.AutoRegister,
		"auto-register",
		false,
		"Register every server found on the filesystem",
	)

	allowed := cmd.AllowedOutputFormats()
	cobraCommand.Flags().Var(
		&c.Format,
		"format",
		fmt.Sprintf("Specify the output format (one of: %s)", allowed.String()),
	)

	c.Filters.bind(cobraCommand.Flags())

	return cobraCommand, nil
}

// longDescription returns the long version of the command description.
func (c *DiscoverCmd) longDescription() string {
	return `Lists registered servers together with servers found by scanning the filesystem and by listening
for multicast announcements. Without --filesystem or --network both channels are used.

Registered servers always take precedence over discovered servers with the same name. A channel that
fails is reported as a warning; the command only fails when every requested channel fails.`
}

// request builds the discovery request from the command flags.
func (c *DiscoverCmd) request() discovery.Request {
	fs, network := c.Filesystem, c.Network
	if !fs && !network {
		fs, network = true, true
	}

	return discovery.Request{
		Filesystem:   fs,
		Network:      network,
		Timeout:      c.Timeout,
		SearchPaths:  c.Paths,
		AutoRegister: c.AutoRegister,
	}
}

// textOutput reports whether the summary lines follow the table.
func (c *DiscoverCmd) textOutput() bool {
	return c.Format == "" || c.Format == cmd.FormatText
}

// run is configured (via NewDiscoverCmd) to be called by the Cobra framework when the command is executed.
func (c *DiscoverCmd) run(cmd *cobra.Command, _ []string) error {
	logger, err := c.Logger()
	if err != nil {
		return err
	}

	store, err := c.OpenRegistry(c.cmdOpts.RegistryPath)
	if err != nil {
		return err
	}

	d, err := discovery.New(logger, store, c.cmdOpts.DiscoveryOptions...)
	if err != nil {
		return err
	}

	res, err := d.Discover(cmd.Context(), c.request())
	if err != nil {
		return err
	}

	for _, w := range res.Warnings {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}

	servers, err := c.Filters.apply(res.Servers)
	if err != nil {
		return err
	}

	entries := printer.NewServerEntries(
		servers,
		c.cmdOpts.Clock(),
		announce.ExpiryWindow(announce.DefaultInterval),
	)

	handler, err := formatHandlerFor(cmd, c.Format, printer.NewServerTablePrinter())
	if err != nil {
		return err
	}
	if err := handler.HandleResults(entries...); err != nil {
		return err
	}

	if !c.textOutput() {
		return nil
	}

	req := c.request()
	if req.Network {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Received %s\n", printer.Count(res.RawAnnouncements, "announcement"))
	}
	if req.AutoRegister {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Registered %s\n", printer.Count(res.AutoRegistered, "server"))
	}

	return nil
}
