package sim

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexosim/nexosim-go/internal/nexo/common"
)

// NewStartCmd creates the command that initializes the simulation bench.
func NewStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start [cfg-json]",
		Short: "Initialize (or reset) the simulation bench",
		Long: `Initialize the simulation with an optional bench configuration given as JSON.
The configuration is sent CBOR-encoded; omit it to send null.

Examples:
  nexo start
  nexo start '{"start_secs": 10}'`,
		Args: cobra.MaximumNArgs(1),
		RunE: runStart,
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := common.ParsePayload(args, 0)
	if err != nil {
		return err
	}

	sim, err := common.NewSimulation()
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer sim.Close()

	if err := sim.Start(common.Context(cmd.Context()), cfg); err != nil {
		return fmt.Errorf("failed to start simulation: %w", err)
	}
	return printDone(cmd, "Simulation started")
}

func NewTerminateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "terminate",
		Short: "Terminate the running simulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := common.NewSimulation()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}
			defer sim.Close()

			if err := sim.Terminate(common.Context(cmd.Context())); err != nil {
				return fmt.Errorf("failed to terminate simulation: %w", err)
			}
			return printDone(cmd, "Simulation terminated")
		},
	}
}

func NewHaltCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "halt",
		Short: "Halt a running step-unbounded or step-until at the next opportunity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := common.NewSimulation()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}
			defer sim.Close()

			if err := sim.Halt(common.Context(cmd.Context())); err != nil {
				return fmt.Errorf("failed to halt simulation: %w", err)
			}
			return printDone(cmd, "Halt requested")
		},
	}
}

// NewSaveCmd creates the command that writes a state snapshot to a file.
func NewSaveCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "save --out FILE",
		Short: "Save the simulation state to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := common.NewSimulation()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}
			defer sim.Close()

			state, err := sim.Save(common.Context(cmd.Context()))
			if err != nil {
				return fmt.Errorf("failed to save simulation: %w", err)
			}
			if err := os.WriteFile(out, state, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			return printDone(cmd, fmt.Sprintf("Saved %d bytes to %s", len(state), out))
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "File to write the state to")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

// NewRestoreCmd creates the command that restores a snapshot from a file.
func NewRestoreCmd() *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "restore --in FILE",
		Short: "Restore the simulation state from a file written by save",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := os.ReadFile(in)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", in, err)
			}

			sim, err := common.NewSimulation()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}
			defer sim.Close()

			if err := sim.Restore(common.Context(cmd.Context()), state); err != nil {
				return fmt.Errorf("failed to restore simulation: %w", err)
			}
			return printDone(cmd, fmt.Sprintf("Restored state from %s", in))
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "File to read the state from")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}
