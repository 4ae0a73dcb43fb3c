package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/meridianhub/hub/pkg/rpc"
)

var statusRPCAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a running hub's replica size",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusRPCAddr, "rpc-addr", "127.0.0.1:2283", "hub RPC address to query")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := rpc.Dial(statusRPCAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := client.GetSnapshot(ctx, "")
	if err != nil {
		return err
	}
	fmt.Printf("messages: %d\n", snap.NumMessages)
	return nil
}
