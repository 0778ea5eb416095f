package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const exampleConfig = `version: "1.0"

logging:
  level: INFO          # DEBUG, INFO, WARN, ERROR
  format: text         # text or json

polling:
  rate: 10             # rounds per second for watch and record
  burst: 1
  batch_size: 256      # events per SQLite transaction

servers:
  default:
    address: "localhost:41633"
    call_timeout: 10s

  local-socket:
    address: "unix:///tmp/nexosim.sock"

  lab:
    address: "sim.lab.example:41633"
    call_timeout: 1m
    wait_for_ready: true
    max_message_size: 16777216
    rate_limit: 50     # calls per second
    burst: 10
    tls:
      ca_file: /etc/nexo/ca.pem
      cert_file: /etc/nexo/client.pem
      key_file: /etc/nexo/client-key.pem
      # ca, cert and key also accept inline PEM blocks
      server_name: sim.lab.example`

func NewHelpConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config-help",
		Short: "Show a configuration file example",
		Args:  cobra.NoArgs,
		RunE:  runConfigHelp,
	}
}

func runConfigHelp(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "nexo Configuration Help")
	fmt.Fprintln(out, "=======================")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Example nexo-config.yml:")
	fmt.Fprintln(out, "------------------------")
	fmt.Fprintln(out, exampleConfig)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "File locations searched (in order):")
	fmt.Fprintln(out, "1. $NEXO_CONFIG")
	fmt.Fprintln(out, "2. ./nexo-config.yml")
	fmt.Fprintln(out, "3. ./config/nexo-config.yml")
	fmt.Fprintln(out, "4. ~/.nexo/nexo-config.yml")
	fmt.Fprintln(out, "5. /etc/nexo/nexo-config.yml")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Without a configuration file nexo connects to localhost:41633.")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage examples:")
	fmt.Fprintln(out, "  nexo time                          # uses 'default' server")
	fmt.Fprintln(out, "  nexo --server=lab time             # uses 'lab' server")
	fmt.Fprintln(out, "  nexo --address=unix:///tmp/s time  # bypasses the configuration")
	fmt.Fprintln(out, "  nexo --config=my-config.yml time   # uses custom config file")
	return nil
}
