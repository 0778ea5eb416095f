package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexosim/nexosim-go/internal/nexo/common"
	"github.com/nexosim/nexosim-go/pkg/version"
)

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showVersion(cmd)
		},
	}
}

func showVersion(cmd *cobra.Command) error {
	if common.JSONOutput {
		return common.PrintJSON(cmd.OutOrStdout(), version.GetBuildInfo())
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), version.GetLongVersion())
	return err
}

// AddVersionFlag adds a --version flag to the root command
func AddVersionFlag(rootCmd *cobra.Command) {
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			return showVersion(cmd)
		}
		return cmd.Help()
	}
}
