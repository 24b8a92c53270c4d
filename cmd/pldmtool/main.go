// Command pldmtool is an operator CLI for interrogating a running terminus
// over the same MCTP engine pldmd itself uses: walking a PDR repository,
// printing the effecter-mapping JSON schema, and driving a numeric effecter
// directly, without going through pldmd's REST control API.
package main

import (
	"fmt"
	"os"

	"github.com/openbmc-go/pldmd/cmd/pldmtool/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
