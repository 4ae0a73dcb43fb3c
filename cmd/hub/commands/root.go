// Package commands implements the hub CLI's subcommands over cobra, the
// teacher's convention for every executable under cmd/.
package commands

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "hub",
	Short: "A Farcaster hub replica",
	Long:  "hub runs or drives a single Farcaster hub replica: message ingestion, identity tracking, p2p gossip, and peer reconciliation.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a TOML config file (defaults applied where unset)")
}

// Execute runs the CLI's entry point.
func Execute() error {
	return rootCmd.Execute()
}
