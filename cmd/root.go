// Package cmd wires the CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "storesage",
	Short: "StoreSage retail assistant",
	Long:  "StoreSage answers customer questions about products, stores, stock and promotions,\ngrounded in the retail catalog and personalised per shopper.",
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
}
