// Command hub runs a single Farcaster hub replica: message ingestion,
// identity tracking, p2p gossip, gRPC submission/sync, and peer
// reconciliation, wired together per SPEC_FULL.
package main

import (
	"fmt"
	"os"

	"github.com/meridianhub/hub/cmd/hub/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
