package cmd

import (
	"github.com/spf13/cobra"

	"github.com/storesage/storesage/internal/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(configFile)
		if err != nil {
			return err
		}
		defer func() { _ = a.logger.Sync() }()

		s := server.New(a.cfg, a.pipe, a.history, a.db, a.cache, a.logger)
		return s.Run()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
