package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/quickmcp/internal/announce"
	"github.com/mozilla-ai/quickmcp/internal/cmd"
	cmdopts "github.com/mozilla-ai/quickmcp/internal/cmd/options"
	"github.com/mozilla-ai/quickmcp/internal/descriptor"
	"github.com/mozilla-ai/quickmcp/internal/printer"
)

// AnnounceCmd represents the 'announce' command.
type AnnounceCmd struct {
	*cmd.BaseCmd
	Name      string
	Host      string
	Port      int
	Version   string
	Tools     int
	Resources int
	Prompts   int
	Interval  time.Duration
	Duration  time.Duration
	cmdOpts   cmdopts.CmdOptions
}

// NewAnnounceCmd creates a newly configured (Cobra) command.
func NewAnnounceCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &AnnounceCmd{
		BaseCmd: baseCmd,
		cmdOpts: opts,
	}

	cobraCommand := &cobra.Command{
		Use:   "announce",
		Short: "Announces a network MCP server on the local network",
		Long:  c.longDescription(),
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}

	cobraCommand.Flags().StringVar(&c.Name, "name", "", "Name of the server to announce")
	cobraCommand.Flags().StringVar(&c.Host, flagHost, "", "Host the server is reachable at")
	cobraCommand.Flags().IntVar(&c.Port, flagPort, 0, "Port the server is reachable at")
	cobraCommand.Flags().StringVar(&c.Version, "version", "", "Optional, version of the server")
	cobraCommand.Flags().IntVar(&c.Tools, "tools", 0, "Number of tools the server exposes")
	cobraCommand.Flags().IntVar(&c.Resources, "resources", 0, "Number of resources the server exposes")
	cobraCommand.Flags().IntVar(&c.Prompts, "prompts", 0, "Number of prompts the server exposes")

	cobraCommand.Flags().DurationVar(
		&c.Interval,
		"interval",
		announce.DefaultInterval,
		"Time between announcements",
	)

	cobraCommand.Flags().DurationVar(
		&c.Duration,
		"duration",
		0,
		"Stop announcing after this long (announces until interrupted when zero)",
	)

	_ = cobraCommand.MarkFlagRequired("name")
	_ = cobraCommand.MarkFlagRequired(flagHost)
	_ = cobraCommand.MarkFlagRequired(flagPort)

	return cobraCommand, nil
}

// longDescription returns the long version of the command description.
func (c *AnnounceCmd) longDescription() string {
	return `Announces a server that is already serving elsewhere, for example one not built with quickmcp,
so that 'quickmcp discover' finds it. Announcements are multicast every interval until the command
is interrupted.`
}

// run is configured (via NewAnnounceCmd) to be called by the Cobra framework when the command is executed.
func (c *AnnounceCmd) run(cmd *cobra.Command, _ []string) error {
	if c.Duration < 0 {
		return fmt.Errorf("duration cannot be negative, got %v", c.Duration)
	}

	logger, err := c.Logger()
	if err != nil {
		return err
	}

	a, err := announce.NewAnnouncer(logger, announce.Announcement{
		Name:      strings.TrimSpace(c.Name),
		Host:      strings.TrimSpace(c.Host),
		Port:      c.Port,
		Transport: descriptor.TransportNetwork,
		Version:   strings.TrimSpace(c.Version),
		Tools:     c.Tools,
		Resources: c.Resources,
		Prompts:   c.Prompts,
	}, append([]announce.AnnouncerOption{announce.WithInterval(c.Interval)}, c.cmdOpts.AnnouncerOptions...)...)
	if err != nil {
		return err
	}

	// Create the signal handling context for the announcement loop.
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if c.Duration > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, c.Duration)
		defer cancelTimeout()
	}

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("failed to start announcing '%s': %w", c.Name, err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Announcing '%s' at %s:%d every %v, press Ctrl+C to stop.\n",
		c.Name, c.Host, c.Port, a.Interval())

	<-ctx.Done()
	a.Stop()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stopped after %s\n", printer.Count(int(a.Sent()), "announcement"))

	return nil
}
