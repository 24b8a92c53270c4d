// Command pldmd is the PLDM/MCTP terminus daemon: it answers base-discovery
// and PDR-repository requests over a local MCTP datagram socket,
// synchronizes a managed host's PDR repository (spec §4.3), and exposes
// terminus status plus numeric-effecter control over a REST management
// surface (spec §4.4, §6.5-6.7).
package main

import (
	"fmt"
	"os"

	"github.com/openbmc-go/pldmd/cmd/pldmd/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
