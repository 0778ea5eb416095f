// Package sim holds the nexo commands that drive a simulation.
package sim

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexosim/nexosim-go/internal/nexo/common"
	"github.com/nexosim/nexosim-go/pkg/simtime"
)

type timeOutput struct {
	Time  string `json:"time"`
	Secs  int64  `json:"secs"`
	Nanos uint32 `json:"nanos"`
}

func printTime(cmd *cobra.Command, t simtime.MonotonicTime) error {
	if common.JSONOutput {
		return common.PrintJSON(cmd.OutOrStdout(), timeOutput{Time: t.String(), Secs: t.Secs, Nanos: t.Nanos})
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), t.String())
	return err
}

func printDone(cmd *cobra.Command, message string) error {
	if common.JSONOutput {
		return common.PrintJSON(cmd.OutOrStdout(), map[string]string{"status": "ok", "message": message})
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), message)
	return err
}

func printPayloads(cmd *cobra.Command, raw [][]byte) error {
	if common.JSONOutput {
		values, err := common.DecodePayloads(raw)
		if err != nil {
			return err
		}
		return common.PrintJSON(cmd.OutOrStdout(), values)
	}
	for _, data := range raw {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), common.FormatPayload(data)); err != nil {
			return err
		}
	}
	return nil
}

// parseDeadline reads the mutually exclusive --at and --in flags.
func parseDeadline(at, in string) (simtime.Deadline, error) {
	switch {
	case at != "" && in != "":
		return nil, fmt.Errorf("--at and --in are mutually exclusive")
	case at != "":
		t, err := simtime.ParseMonotonicTime(at)
		if err != nil {
			return nil, fmt.Errorf("invalid --at: %w", err)
		}
		return t, nil
	case in != "":
		d, err := simtime.ParseDuration(in)
		if err != nil {
			return nil, fmt.Errorf("invalid --in: %w", err)
		}
		return d, nil
	}
	return nil, fmt.Errorf("one of --at or --in is required")
}
