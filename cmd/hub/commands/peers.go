package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/meridianhub/hub/pkg/rpc"
)

var peersCmd = &cobra.Command{
	Use:   "peers [addr...]",
	Short: "Check reachability and replica size of one or more peers",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPeers,
}

func init() {
	rootCmd.AddCommand(peersCmd)
}

func runPeers(cmd *cobra.Command, args []string) error {
	for _, addr := range args {
		reportPeer(addr)
	}
	return nil
}

func reportPeer(addr string) {
	client, err := rpc.Dial(addr)
	if err != nil {
		fmt.Printf("%s\tunreachable: %v\n", addr, err)
		return
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := client.GetSnapshot(ctx, "")
	if err != nil {
		fmt.Printf("%s\tunreachable: %v\n", addr, err)
		return
	}
	fmt.Printf("%s\tok\tmessages=%d\n", addr, snap.NumMessages)
}
