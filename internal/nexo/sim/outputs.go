package sim

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nexosim/nexosim-go/internal/nexo/common"
	"github.com/nexosim/nexosim-go/pkg/simtime"
)

func NewQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <source> [request-json]",
		Short: "Send a request to a query source and print the replies",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			request, err := common.ParsePayload(args, 1)
			if err != nil {
				return err
			}

			sim, err := common.NewSimulation()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}
			defer sim.Close()

			replies, err := sim.ProcessQueryRaw(common.Context(cmd.Context()), args[0], request)
			if err != nil {
				return fmt.Errorf("failed to process query: %w", err)
			}
			return printPayloads(cmd, replies)
		},
	}
}

func NewReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <sink>",
		Short: "Drain and print the events buffered in a sink",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := common.NewSimulation()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}
			defer sim.Close()

			events, err := sim.ReadEventsRaw(common.Context(cmd.Context()), args[0])
			if err != nil {
				return fmt.Errorf("failed to read events: %w", err)
			}
			return printPayloads(cmd, events)
		},
	}
}

// NewAwaitCmd creates the command that blocks until a sink yields an event.
func NewAwaitCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "await <sink>",
		Short: "Wait for the next event of a sink",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := common.NewSimulation()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}
			defer sim.Close()

			event, err := sim.AwaitEventRaw(common.Context(cmd.Context()), args[0], simtime.DurationOf(wait))
			if err != nil {
				return fmt.Errorf("failed to await event: %w", err)
			}
			return printPayloads(cmd, [][]byte{event})
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 5*time.Second, "Wall-clock time to wait for an event")

	return cmd
}

// NewSinkCmd groups the commands that open and close sinks.
func NewSinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sink",
		Short: "Open or close event sinks",
	}

	cmd.AddCommand(sinkStateCmd("open", "Start buffering events in a sink", "opened"))
	cmd.AddCommand(sinkStateCmd("close", "Stop buffering events in a sink", "closed"))

	return cmd
}

func sinkStateCmd(action, short, done string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <sink>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := common.NewSimulation()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}
			defer sim.Close()

			ctx := common.Context(cmd.Context())
			if action == "open" {
				err = sim.OpenSink(ctx, args[0])
			} else {
				err = sim.CloseSink(ctx, args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to %s sink: %w", action, err)
			}
			return printDone(cmd, fmt.Sprintf("Sink %s %s", args[0], done))
		},
	}
}
