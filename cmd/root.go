package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/quickmcp/internal/cmd"
	cmdopts "github.com/mozilla-ai/quickmcp/internal/cmd/options"
	"github.com/mozilla-ai/quickmcp/internal/flags"
)

var version = "dev" // Set at build time using -ldflags

// RootCmd represents the top level 'quickmcp' command.
type RootCmd struct {
	*cmd.BaseCmd
}

// Execute runs the quickmcp CLI, exiting non-zero on failure.
func Execute() {
	rootCmd, err := NewRootCmd(&cmd.BaseCmd{})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error creating root command: %s\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates the root command with every subcommand attached.
// The options are handed to each subcommand.
func NewRootCmd(c *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	rc := &RootCmd{BaseCmd: c}

	rootCmd := &cobra.Command{
		Use:          "quickmcp <command> [args]",
		Short:        "Registers, discovers and exports MCP servers.",
		Long:         rc.longDescription(),
		SilenceUsage: true,
		Version:      version,
	}

	// Global flags
	flags.InitFlags(rootCmd.PersistentFlags())

	fns := []func(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error){
		NewRegisterCmd,
		NewUnregisterCmd,
		NewListCmd,
		NewInfoCmd,
		NewDiscoverCmd,
		NewExportCmd,
		NewAnnounceCmd,
	}

	for _, fn := range fns {
		sub, err := fn(c, opt...)
		if err != nil {
			return nil, err
		}
		rootCmd.AddCommand(sub)
	}

	return rootCmd, nil
}

func (c *RootCmd) longDescription() string {
	return `The 'quickmcp' CLI keeps a per-user registry of MCP servers, finds servers on the local
filesystem and on the local network, and exports connection details for orchestrators.`
}
