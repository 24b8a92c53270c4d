// Package commands implements the pldmtool CLI: the root cobra command plus
// the pdr and effecter subcommand groups.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	socketPath      string
	localSocketPath string
	targetEID       uint8
)

var rootCmd = &cobra.Command{
	Use:   "pldmtool",
	Short: "pldmtool - inspect and drive a PLDM terminus over MCTP",
	Long: `pldmtool talks PLDM/MCTP directly to a running terminus: it walks a
PDR repository, prints the effecter-mapping JSON schema, and can drive a
numeric effecter for manual testing.

Use "pldmtool [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "/run/pldmd/mctp.sock", "pldmd's MCTP datagram socket")
	rootCmd.PersistentFlags().StringVar(&localSocketPath, "local-socket", "/tmp/pldmtool.sock", "ephemeral local socket pldmtool binds for replies")
	rootCmd.PersistentFlags().Uint8Var(&targetEID, "eid", 0, "MCTP EID of the terminus to query")

	rootCmd.AddCommand(pdrCmd)
	rootCmd.AddCommand(effecterCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
