// Package cli assembles the nexo command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nexosim/nexosim-go/internal/nexo/common"
	"github.com/nexosim/nexosim-go/internal/nexo/sim"
	"github.com/nexosim/nexosim-go/pkg/config"
)

// commands that run without a loaded configuration
var noConfig = map[string]bool{
	"version":     true,
	"config-help": true,
	"help":        true,
	"completion":  true,
}

// NewRootCmd builds the nexo command tree. Flags are bound to the package
// variables of common, which are reset each time the tree is built.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nexo",
		Short: "nexo - command line client for NeXosim simulation servers",
		Long: `nexo drives a discrete-event simulation hosted by a NeXosim gRPC server.

Events, queries and configurations are given as JSON and sent CBOR-encoded;
replies are printed as JSON.

Quick Examples:
  nexo start '{"start_secs": 0}'          # initialize the bench
  nexo schedule input 42 --in 1s           # schedule an event
  nexo step                                # advance to the next event
  nexo read output                         # drain a sink
  nexo watch output --time                 # stream sink events
  nexo --server=lab time                   # use the 'lab' server

Use 'nexo <command> --help' for detailed information about any command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noConfig[cmd.Name()] {
				return nil
			}
			if err := common.LoadConfig(); err != nil {
				return err
			}
			return common.SetupLogging(os.Stderr)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&common.ConfigPath, "config", "",
		"Path to client configuration file (searches common locations if not specified)")
	flags.StringVar(&common.ServerName, "server", config.DefaultServerName,
		"Server name from configuration file")
	flags.StringVar(&common.Address, "address", "",
		"Server address, overriding the configuration (host:port, unix:///path)")
	flags.BoolVar(&common.JSONOutput, "json", false, "Output in JSON format")
	flags.StringVar(&common.LogLevel, "log-level", "",
		"Log level: DEBUG, INFO, WARN, ERROR (default from configuration)")
	flags.DurationVar(&common.Timeout, "timeout", 0,
		"Per-call timeout (default from configuration, else 10s)")

	rootCmd.AddCommand(sim.NewStartCmd())
	rootCmd.AddCommand(sim.NewTerminateCmd())
	rootCmd.AddCommand(sim.NewHaltCmd())
	rootCmd.AddCommand(sim.NewSaveCmd())
	rootCmd.AddCommand(sim.NewRestoreCmd())
	rootCmd.AddCommand(sim.NewTimeCmd())
	rootCmd.AddCommand(sim.NewStepCmd())
	rootCmd.AddCommand(sim.NewStepUnboundedCmd())
	rootCmd.AddCommand(sim.NewStepUntilCmd())
	rootCmd.AddCommand(sim.NewScheduleCmd())
	rootCmd.AddCommand(sim.NewCancelCmd())
	rootCmd.AddCommand(sim.NewProcessCmd())
	rootCmd.AddCommand(sim.NewQueryCmd())
	rootCmd.AddCommand(sim.NewReadCmd())
	rootCmd.AddCommand(sim.NewAwaitCmd())
	rootCmd.AddCommand(sim.NewSinkCmd())
	rootCmd.AddCommand(sim.NewWatchCmd())
	rootCmd.AddCommand(sim.NewRecordCmd())
	rootCmd.AddCommand(NewServersCmd())
	rootCmd.AddCommand(NewVersionCmd())
	rootCmd.AddCommand(NewHelpConfigCmd())

	AddVersionFlag(rootCmd)

	return rootCmd
}

func Execute() error {
	return NewRootCmd().Execute()
}
