package sim

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexosim/nexosim-go/internal/nexo/common"
	"github.com/nexosim/nexosim-go/pkg/client"
	"github.com/nexosim/nexosim-go/pkg/simtime"
)

type timeCall func(*client.Simulation, context.Context) (simtime.MonotonicTime, error)

func timeCommand(use, short, failure string, call timeCall) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := common.NewSimulation()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}
			defer sim.Close()

			t, err := call(sim, common.Context(cmd.Context()))
			if err != nil {
				return fmt.Errorf("%s: %w", failure, err)
			}
			return printTime(cmd, t)
		},
	}
}

func NewTimeCmd() *cobra.Command {
	return timeCommand("time", "Print the current simulation time",
		"failed to read simulation time", (*client.Simulation).Time)
}

func NewStepCmd() *cobra.Command {
	return timeCommand("step", "Advance to the next scheduled event and print the new time",
		"failed to step simulation", (*client.Simulation).Step)
}

func NewStepUnboundedCmd() *cobra.Command {
	return timeCommand("step-unbounded", "Run until no event is scheduled or the simulation is halted",
		"failed to step simulation", (*client.Simulation).StepUnbounded)
}

// NewStepUntilCmd creates the command that advances to a deadline.
func NewStepUntilCmd() *cobra.Command {
	var at, in string

	cmd := &cobra.Command{
		Use:   "step-until (--at TIME | --in DURATION)",
		Short: "Advance to an absolute time or by a duration",
		Long: `Advance the simulation, processing every event up to and including the deadline.

TIME is "YYYY-MM-DD HH:MM:SS[.fraction]" or seconds since the epoch.
DURATION is Go syntax (1.5s, 2m) or a number of seconds.

Examples:
  nexo step-until --in 5s
  nexo step-until --at "2025-01-01 12:00:00"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deadline, err := parseDeadline(at, in)
			if err != nil {
				return err
			}

			sim, err := common.NewSimulation()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}
			defer sim.Close()

			t, err := sim.StepUntil(common.Context(cmd.Context()), deadline)
			if err != nil {
				return fmt.Errorf("failed to step simulation: %w", err)
			}
			return printTime(cmd, t)
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Absolute simulation time")
	cmd.Flags().StringVar(&in, "in", "", "Duration relative to the current time")

	return cmd
}
