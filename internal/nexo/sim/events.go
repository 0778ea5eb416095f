package sim

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexosim/nexosim-go/internal/nexo/common"
	"github.com/nexosim/nexosim-go/pkg/client"
	"github.com/nexosim/nexosim-go/pkg/simtime"
)

// NewScheduleCmd creates the command that schedules an event on a source.
func NewScheduleCmd() *cobra.Command {
	var (
		at, in  string
		period  string
		withKey bool
	)

	cmd := &cobra.Command{
		Use:   "schedule <source> [event-json] (--at TIME | --in DURATION)",
		Short: "Schedule an event on an event source",
		Long: `Schedule an event at an absolute time or after a delay.

With --period the event repeats; with --with-key the returned event key is
printed and can later be passed to cancel.

Examples:
  nexo schedule input 42 --in 1s
  nexo schedule counter --in 1s --period 500ms --with-key`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deadline, err := parseDeadline(at, in)
			if err != nil {
				return err
			}
			event, err := common.ParsePayload(args, 1)
			if err != nil {
				return err
			}

			var opts []client.ScheduleOption
			if period != "" {
				p, err := simtime.ParseDuration(period)
				if err != nil {
					return fmt.Errorf("invalid --period: %w", err)
				}
				opts = append(opts, client.WithPeriod(p))
			}
			if withKey {
				opts = append(opts, client.WithKey())
			}

			sim, err := common.NewSimulation()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}
			defer sim.Close()

			key, err := sim.ScheduleEvent(common.Context(cmd.Context()), deadline, args[0], event, opts...)
			if err != nil {
				return fmt.Errorf("failed to schedule event: %w", err)
			}

			if key == nil {
				return printDone(cmd, "Event scheduled")
			}
			if common.JSONOutput {
				return common.PrintJSON(cmd.OutOrStdout(), map[string]string{"key": key.String()})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), key.String())
			return err
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Absolute simulation time")
	cmd.Flags().StringVar(&in, "in", "", "Delay relative to the current time")
	cmd.Flags().StringVar(&period, "period", "", "Repeat the event with this period")
	cmd.Flags().BoolVar(&withKey, "with-key", false, "Return a key that can cancel the event")

	return cmd
}

func NewCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <key>",
		Short: "Cancel an event scheduled with --with-key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := client.ParseEventKey(args[0])
			if err != nil {
				return err
			}

			sim, err := common.NewSimulation()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}
			defer sim.Close()

			if err := sim.CancelEvent(common.Context(cmd.Context()), key); err != nil {
				return fmt.Errorf("failed to cancel event: %w", err)
			}
			return printDone(cmd, fmt.Sprintf("Event %s cancelled", key))
		},
	}
}

func NewProcessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process <source> [event-json]",
		Short: "Broadcast an event to a source immediately and wait for it to be processed",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := common.ParsePayload(args, 1)
			if err != nil {
				return err
			}

			sim, err := common.NewSimulation()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}
			defer sim.Close()

			if err := sim.ProcessEvent(common.Context(cmd.Context()), args[0], event); err != nil {
				return fmt.Errorf("failed to process event: %w", err)
			}
			return printDone(cmd, "Event processed")
		},
	}
}
