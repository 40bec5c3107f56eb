// Package cmd 提供命令行入口.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/khaznati/chunkvault/pkg/app"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "chunkvault",
		Short: "A chunked personal cloud storage backend",
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.NewApp(configPath).Run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")

	rootCmd.AddCommand(serveCmd)
	registerConfigsCommands()
	registerDBCommands()
	registerKVCommands()
	registerMQCommands()
	registerBackendCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
