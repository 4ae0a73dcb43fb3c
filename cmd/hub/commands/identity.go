package commands

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/meridianhub/hub/pkg/message"
	"github.com/meridianhub/hub/pkg/rpc"
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Submit IdRegistry events to a running hub",
}

var (
	idRPCAddr     string
	idFid         string
	idFrom        string
	idTo          string
	idBlockNumber uint64
	idLogIndex    uint64
	idBlockHash   string
	idTxHash      string
)

var identityRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Submit a Register event establishing custody of an fid",
	RunE:  runIdentityRegister,
}

var identityTransferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Submit a Transfer event moving custody of an fid",
	RunE:  runIdentityTransfer,
}

func init() {
	for _, c := range []*cobra.Command{identityRegisterCmd, identityTransferCmd} {
		c.Flags().StringVar(&idRPCAddr, "rpc-addr", "127.0.0.1:2283", "hub RPC address to submit against")
		c.Flags().StringVar(&idFid, "fid", "", "fid, hex-encoded (required)")
		c.Flags().StringVar(&idTo, "to", "", "new custody address, hex-encoded (required)")
		c.Flags().Uint64Var(&idBlockNumber, "block-number", 0, "on-chain block number (required)")
		c.Flags().Uint64Var(&idLogIndex, "log-index", 0, "on-chain log index within the block")
		c.Flags().StringVar(&idBlockHash, "block-hash", "", "block hash, hex-encoded")
		c.Flags().StringVar(&idTxHash, "tx-hash", "", "transaction hash, hex-encoded")
		c.MarkFlagRequired("fid")
		c.MarkFlagRequired("to")
		c.MarkFlagRequired("block-number")
	}
	identityTransferCmd.Flags().StringVar(&idFrom, "from", "", "previous custody address, hex-encoded (required)")
	identityTransferCmd.MarkFlagRequired("from")

	identityCmd.AddCommand(identityRegisterCmd, identityTransferCmd)
	rootCmd.AddCommand(identityCmd)
}

func runIdentityRegister(cmd *cobra.Command, args []string) error {
	ev, err := buildIdRegistryEvent(message.IdRegistryRegister)
	if err != nil {
		return err
	}
	return submitIdRegistryEvent(ev)
}

func runIdentityTransfer(cmd *cobra.Command, args []string) error {
	ev, err := buildIdRegistryEvent(message.IdRegistryTransfer)
	if err != nil {
		return err
	}
	from, err := hex.DecodeString(idFrom)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	ev.From = from
	return submitIdRegistryEvent(ev)
}

func buildIdRegistryEvent(kind message.IdRegistryEventType) (*message.IdRegistryEvent, error) {
	fid, err := hex.DecodeString(idFid)
	if err != nil {
		return nil, fmt.Errorf("--fid: %w", err)
	}
	to, err := hex.DecodeString(idTo)
	if err != nil {
		return nil, fmt.Errorf("--to: %w", err)
	}
	blockHash, err := hex.DecodeString(idBlockHash)
	if err != nil {
		return nil, fmt.Errorf("--block-hash: %w", err)
	}
	txHash, err := hex.DecodeString(idTxHash)
	if err != nil {
		return nil, fmt.Errorf("--tx-hash: %w", err)
	}
	return &message.IdRegistryEvent{
		Type:            kind,
		BlockNumber:     idBlockNumber,
		LogIndex:        idLogIndex,
		BlockHash:       blockHash,
		TransactionHash: txHash,
		Fid:             fid,
		To:              to,
	}, nil
}

func submitIdRegistryEvent(ev *message.IdRegistryEvent) error {
	client, err := rpc.Dial(idRPCAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.SubmitIdRegistryEvent(ctx, ev); err != nil {
		return err
	}
	fmt.Printf("submitted fid=%s block=%d log=%d\n", idFid, idBlockNumber, idLogIndex)
	return nil
}
