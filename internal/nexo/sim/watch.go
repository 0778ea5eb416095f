package sim

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"

	"github.com/nexosim/nexosim-go/internal/nexo/common"
	"github.com/nexosim/nexosim-go/internal/recorder"
	"github.com/nexosim/nexosim-go/pkg/client"
	"github.com/nexosim/nexosim-go/pkg/logger"
)

type pollFlags struct {
	rate     float64
	duration time.Duration
}

func (f *pollFlags) register(fs *pflag.FlagSet) {
	fs.Float64Var(&f.rate, "rate", 0, "Polling rounds per second (default from configuration)")
	fs.DurationVar(&f.duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
}

func (f *pollFlags) pollerConfig(sinks []string, stamp bool) client.PollerConfig {
	cfg := client.PollerConfig{
		Sinks:     sinks,
		Rate:      f.rate,
		StampTime: stamp,
		Logger:    logger.Global(),
	}
	if common.ClientConfig != nil {
		if cfg.Rate == 0 {
			cfg.Rate = common.ClientConfig.Polling.Rate
		}
		cfg.Burst = common.ClientConfig.Polling.Burst
	}
	return cfg
}

// context returns a context cancelled on SIGINT, SIGTERM, or after
// --duration.
func (f *pollFlags) context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(common.Context(parent), os.Interrupt, syscall.SIGTERM)
	if f.duration <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, f.duration)
	return ctx, func() {
		cancel()
		stop()
	}
}

type batchOutput struct {
	Sink   string `json:"sink"`
	Seq    uint64 `json:"seq"`
	Time   string `json:"time,omitempty"`
	Events []any  `json:"events"`
}

// NewWatchCmd creates the command that streams sink events to stdout.
func NewWatchCmd() *cobra.Command {
	var (
		flags     pollFlags
		stampTime bool
	)

	cmd := &cobra.Command{
		Use:   "watch <sink>...",
		Short: "Poll sinks and print their events until interrupted",
		Long: `Repeatedly drain one or more sinks at a bounded rate and print each event.

The simulation is not advanced by this command; drive it from another
terminal or program.

Examples:
  nexo watch output
  nexo watch output count --rate 20 --time
  nexo watch output --duration 30s --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := common.NewSimulation()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}
			defer sim.Close()

			poller, err := client.NewSinkPoller(sim, flags.pollerConfig(args, stampTime))
			if err != nil {
				return err
			}

			ctx, cancel := flags.context(cmd.Context())
			defer cancel()

			out := cmd.OutOrStdout()
			err = poller.Run(ctx, func(b client.SinkBatch) error {
				if common.JSONOutput {
					events, err := common.DecodePayloads(b.Events)
					if err != nil {
						return err
					}
					o := batchOutput{Sink: b.Sink, Seq: b.Seq, Events: events}
					if stampTime {
						o.Time = b.Time.String()
					}
					return common.PrintJSON(out, o)
				}
				for i, data := range b.Events {
					prefix := fmt.Sprintf("[%s #%d]", b.Sink, b.Seq+uint64(i))
					if stampTime {
						prefix = fmt.Sprintf("[%s #%d @ %s]", b.Sink, b.Seq+uint64(i), b.Time)
					}
					if _, err := fmt.Fprintf(out, "%s %s\n", prefix, common.FormatPayload(data)); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to watch sinks: %w", err)
			}
			return nil
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().BoolVar(&stampTime, "time", false, "Read the simulation time each round and print it with the events")

	return cmd
}

// NewRecordCmd creates the command that stores sink events in SQLite.
func NewRecordCmd() *cobra.Command {
	var (
		flags pollFlags
		db    string
		batch int
	)

	cmd := &cobra.Command{
		Use:   "record <sink>... --db PATH",
		Short: "Poll sinks and store their events in a SQLite database",
		Long: `Repeatedly drain one or more sinks and append every event to a SQLite
database. When --db names a directory, a new file is created inside it.

Examples:
  nexo record output --db ./runs/
  nexo record output count --db events.sqlite3 --duration 1m`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchSize := batch
			if batchSize == 0 && common.ClientConfig != nil {
				batchSize = common.ClientConfig.Polling.BatchSize
			}

			rec, err := recorder.NewSQLiteRecorder(db, batchSize, logger.Global())
			if err != nil {
				return fmt.Errorf("failed to open recorder: %w", err)
			}
			atexit.Register(func() { _ = rec.Close() })
			defer rec.Close()

			sim, err := common.NewSimulation()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}
			defer sim.Close()

			poller, err := client.NewSinkPoller(sim, flags.pollerConfig(args, true))
			if err != nil {
				return err
			}

			ctx, cancel := flags.context(cmd.Context())
			defer cancel()

			var count int
			err = poller.Run(ctx, func(b client.SinkBatch) error {
				count += len(b.Events)
				return rec.Record(b)
			})
			if err != nil {
				return fmt.Errorf("failed to record sinks: %w", err)
			}
			if err := rec.Close(); err != nil {
				return fmt.Errorf("failed to close recorder: %w", err)
			}

			if common.JSONOutput {
				return common.PrintJSON(cmd.OutOrStdout(), map[string]any{"path": rec.Path(), "events": count})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d events to %s\n", count, rec.Path())
			return err
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().StringVar(&db, "db", "", "Database file or directory")
	cmd.Flags().IntVar(&batch, "batch", 0, "Events buffered before each write (default from configuration)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}
