// Command rspstubd runs a standalone GDB Remote Serial Protocol daemon
// fronting the in-memory demo target, plus a small admin HTTP surface for
// health checks, session listing, and metrics.
package main

import (
	"fmt"
	"os"

	"github.com/nervctl/rspstub/cmd/rspstubd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
