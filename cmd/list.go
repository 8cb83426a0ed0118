package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/quickmcp/internal/announce"
	"github.com/mozilla-ai/quickmcp/internal/cmd"
	cmdopts "github.com/mozilla-ai/quickmcp/internal/cmd/options"
	"github.com/mozilla-ai/quickmcp/internal/printer"
	"github.com/mozilla-ai/quickmcp/internal/registry"
)

// ListCmd represents the 'list' command.
type ListCmd struct {
	*cmd.BaseCmd
	Format  cmd.OutputFormat
	Watch   bool
	Filters serverFilters
	cmdOpts cmdopts.CmdOptions
}

// NewListCmd creates a newly configured (Cobra) command.
func NewListCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ListCmd{
		BaseCmd: baseCmd,
		Format:  cmd.FormatText,
		cmdOpts: opts,
	}

	cobraCommand := &cobra.Command{
		Use:   "list",
		Short: "Lists the registered MCP servers",
		Long:  c.longDescription(),
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}

	allowed := cmd.AllowedOutputFormats()
	cobraCommand.Flags().Var(
		&c.Format,
		"format",
		fmt.Sprintf("Specify the output format (one of: %s)", allowed.String()),
	)

	cobraCommand.Flags().BoolVar(
		&c.Watch,
		"watch",
		false,
		"Keep running and list the servers again whenever the registry changes",
	)

	c.Filters.bind(cobraCommand.Flags())

	return cobraCommand, nil
}

// longDescription returns the long version of the command description.
func (c *ListCmd) longDescription() string {
	return `Lists the registered MCP servers in the order they were registered.
The --name, --transport, --source and --tool flags narrow the list down, every given filter must match.
With --watch the list is printed again every time the registry file changes, until interrupted.`
}

// run is configured (via NewListCmd) to be called by the Cobra framework when the command is executed.
func (c *ListCmd) run(cmd *cobra.Command, _ []string) error {
	store, err := c.OpenRegistry(c.cmdOpts.RegistryPath)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if err := c.print(w, store); err != nil {
		return err
	}

	if !c.Watch {
		return nil
	}

	logger, err := c.Logger()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	return store.Watch(ctx, func() {
		if err := c.print(w, store); err != nil {
			logger.Warn("Failed to list servers after registry change", "error", err)
		}
	})
}

func (c *ListCmd) print(w io.Writer, store *registry.Store) error {
	seq, err := store.List()
	if err != nil {
		return err
	}

	servers, err := c.Filters.apply(slices.Collect(seq))
	if err != nil {
		return err
	}
	entries := printer.NewServerEntries(servers, c.cmdOpts.Clock(), announce.ExpiryWindow(announce.DefaultInterval))

	if len(entries) == 0 && (c.Format == cmd.FormatText || c.Format == "") {
		msg := "No servers registered"
		if c.Filters.active() {
			msg = "No registered servers match the given filters"
		}
		_, err := fmt.Fprintln(w, msg)
		return err
	}

	handler, err := cmd.FormatHandler[printer.ServerEntry](w, c.Format, printer.NewServerTablePrinter())
	if err != nil {
		return err
	}

	return handler.HandleResults(entries...)
}
