package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/quickmcp/internal/cmd"
	cmdopts "github.com/mozilla-ai/quickmcp/internal/cmd/options"
	"github.com/mozilla-ai/quickmcp/internal/errors"
)

// UnregisterCmd represents the 'unregister' command.
type UnregisterCmd struct {
	*cmd.BaseCmd
	cmdOpts cmdopts.CmdOptions
}

// NewUnregisterCmd creates a newly configured (Cobra) command.
func NewUnregisterCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &UnregisterCmd{
		BaseCmd: baseCmd,
		cmdOpts: opts,
	}

	cobraCommand := &cobra.Command{
		Use:   "unregister <server-name>",
		Short: "Removes an MCP server from the registry",
		Long:  "Removes an MCP server from the registry. Fails when no server is registered under the name.",
		Args:  cobra.ExactArgs(1),
		RunE:  c.run,
	}

	return cobraCommand, nil
}

// run is configured (via NewUnregisterCmd) to be called by the Cobra framework when the command is executed.
func (c *UnregisterCmd) run(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	if name == "" {
		return fmt.Errorf("server name cannot be empty")
	}

	store, err := c.OpenRegistry(c.cmdOpts.RegistryPath)
	if err != nil {
		return err
	}

	removed, err := store.Unregister(cmd.Context(), name)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: '%s'", errors.ErrNotFound, name)
	}

	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "✓ Unregistered server '%s'\n", name); err != nil {
		return err
	}

	return nil
}
