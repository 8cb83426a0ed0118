package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/quickmcp/internal/cmd"
	cmdopts "github.com/mozilla-ai/quickmcp/internal/cmd/options"
	"github.com/mozilla-ai/quickmcp/internal/descriptor"
	"github.com/mozilla-ai/quickmcp/internal/info"
)

const (
	flagHost = "host"
	flagPort = "port"
)

// RegisterCmd represents the 'register' command.
type RegisterCmd struct {
	*cmd.BaseCmd
	Cwd          string
	Description  string
	ToolPrefix   string
	Transport    string
	Host         string
	Port         int
	Probe        bool
	ProbeTimeout time.Duration
	cmdOpts      cmdopts.CmdOptions
}

// NewRegisterCmd creates a newly configured (Cobra) command.
func NewRegisterCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &RegisterCmd{
		BaseCmd: baseCmd,
		cmdOpts: opts,
	}

	cobraCommand := &cobra.Command{
		Use:   "register <server-name> [-- <command> [args...]]",
		Short: "Adds an MCP server to the registry",
		Long:  c.longDescription(),
		Args:  cobra.MinimumNArgs(1),
		RunE:  c.run,
	}

	cobraCommand.Flags().StringVar(
		&c.Cwd,
		"cwd",
		"",
		"Working directory the server is launched in (defaults to the current directory)",
	)

	cobraCommand.Flags().StringVar(
		&c.Description,
		"description",
		"",
		"Optional, human readable description of the server",
	)

	cobraCommand.Flags().StringVar(
		&c.ToolPrefix,
		"tool-prefix",
		"",
		"Optional, prefix applied to the server's tool names when aggregated",
	)

	cobraCommand.Flags().StringVar(
		&c.Transport,
		"transport",
		string(descriptor.TransportStdio),
		fmt.Sprintf("How clients reach the server (%s, %s)", descriptor.TransportStdio, descriptor.TransportNetwork),
	)

	cobraCommand.Flags().StringVar(
		&c.Host,
		flagHost,
		"",
		"Host a network server is reachable at",
	)

	cobraCommand.Flags().IntVar(
		&c.Port,
		flagPort,
		0,
		"Port a network server is reachable at",
	)

	cobraCommand.Flags().BoolVar(
		&c.Probe,
		"probe",
		false,
		fmt.Sprintf("Run the command with %s to record the server's capabilities", info.Flag),
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
func (c *RegisterCmd) longDescription() string {
	return `Adds an MCP server to the registry, replacing any server already registered under the same name.

Stdio servers are registered with the command that launches them, given after '--':

  quickmcp register calc -- python3 calc.py

Network servers are registered with the address they serve on:

  quickmcp register weather --transport network --host 10.0.0.5 --port 8080

With --probe the command is run once with '--info' and the capabilities it reports are stored.`
}

// run is configured (via NewRegisterCmd) to be called by the Cobra framework when the command is executed.
func (c *RegisterCmd) run(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	if name == "" {
		return fmt.Errorf("server name cannot be empty")
	}

	if err := c.RequireTogether(cmd, flagHost, flagPort); err != nil {
		return err
	}

	transport, err := descriptor.ParseTransportKind(c.Transport)
	if err != nil {
		return err
	}

	logger, err := c.Logger()
	if err != nil {
		return err
	}

	d := descriptor.Descriptor{
		Name:        name,
		Command:     args[1:],
		Description: strings.TrimSpace(c.Description),
		ToolPrefix:  strings.TrimSpace(c.ToolPrefix),
		Transport:   transport,
		Host:        strings.TrimSpace(c.Host),
		Port:        c.Port,
	}

	if len(d.Command) > 0 {
		if d.WorkingDir, err = resolveDir(c.Cwd); err != nil {
			return err
		}
	}

	if c.Probe {
		doc, err := c.cmdOpts.Probe(cmd.Context(), d.Command, d.WorkingDir, c.ProbeTimeout)
		if err != nil {
			return fmt.Errorf("failed to probe server '%s': %w", name, err)
		}
		logger.Debug("Probed server", "name", name, "reported", doc.Name, "tools", len(doc.Tools))
		d = doc.Apply(d)
	}

	if err := d.Validate(); err != nil {
		return err
	}

	store, err := c.OpenRegistry(c.cmdOpts.RegistryPath)
	if err != nil {
		return err
	}

	stored, err := store.Register(cmd.Context(), d)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "✓ Registered server '%s' (%s)\n", stored.Name, stored.Transport); err != nil {
		return err
	}

	return nil
}

// resolveDir returns dir as an absolute path, defaulting to the current directory.
func resolveDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return os.Getwd()
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory '%s': %w", dir, err)
	}

	return abs, nil
}
