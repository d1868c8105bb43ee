// Package main implements the pharos CLI.
package main

import (
	"fmt"
	"os"

	"pharos/internal/logging"

	"github.com/spf13/cobra"
)

var (
	flagDebug  bool
	flagConfig string
)

var rootCmd = &cobra.Command{
	Use:   "pharos",
	Short: "Drive an instrumented page-load session and collect artifacts",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Init(flagDebug); err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a YAML run configuration")
	rootCmd.AddCommand(collectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
