package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexosim/nexosim-go/internal/nexo/common"
	"github.com/nexosim/nexosim-go/pkg/config"
)

func NewServersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "servers",
		Short: "List the servers defined in the configuration",
		Args:  cobra.NoArgs,
		RunE:  runServers,
	}
}

type serverOutput struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	CallTimeout  string `json:"call_timeout,omitempty"`
	WaitForReady bool   `json:"wait_for_ready"`
	TLS          bool   `json:"tls"`
	Default      bool   `json:"default"`
}

func runServers(cmd *cobra.Command, args []string) error {
	if common.ClientConfig == nil {
		return fmt.Errorf("no client configuration loaded")
	}

	names := common.ClientConfig.ListServers()
	if len(names) == 0 {
		return fmt.Errorf("no servers configured")
	}

	servers := make([]serverOutput, 0, len(names))
	for _, name := range names {
		s, err := common.ClientConfig.GetServer(name)
		if err != nil {
			return err
		}
		o := serverOutput{
			Name:         name,
			Address:      s.Address,
			WaitForReady: s.WaitForReady,
			TLS:          s.TLS != nil,
			Default:      name == config.DefaultServerName,
		}
		if s.CallTimeout > 0 {
			o.CallTimeout = s.CallTimeout.String()
		}
		servers = append(servers, o)
	}

	if common.JSONOutput {
		return common.PrintJSON(cmd.OutOrStdout(), servers)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Available servers from configuration:\n\n")
	for _, s := range servers {
		marker := "  "
		if s.Default {
			marker = "* "
		}
		fmt.Fprintf(out, "%s%s\n", marker, s.Name)
		fmt.Fprintf(out, "   Address: %s\n", s.Address)
		if s.CallTimeout != "" {
			fmt.Fprintf(out, "   Timeout: %s\n", s.CallTimeout)
		}
		tls := "-"
		if s.TLS {
			tls = "enabled"
		}
		fmt.Fprintf(out, "   TLS:     %s\n\n", tls)
	}
	return nil
}
