package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khaznati/chunkvault/pkg/configs"
	"github.com/khaznati/chunkvault/pkg/internal/backend"
)

var (
	backendCmd = &cobra.Command{
		Use:   "backend",
		Short: "Object storage backend related commands",
	}

	backendListCmd = &cobra.Command{
		Use:     "ls",
		Short:   "list all registered backend types",
		Aliases: []string{"list", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered backend types:")
			for _, t := range backend.GetRegisteredBackendTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), " - "+string(t))
			}
		},
	}

	backendCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "connect to the configured backend and report status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := configs.InitConfig(configPath); err != nil {
				return err
			}

			be, err := backend.New(configs.GetConfig())
			if err != nil {
				return fmt.Errorf("create backend: %w", err)
			}
			defer be.Close()

			if err := be.Connect(cmd.Context()); err != nil {
				return fmt.Errorf("backend %s unreachable: %w", be.Name(), err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "backend %s is reachable\n", be.Name())

			return nil
		},
	}
)

// registerBackendCommands 注册后端相关命令.
func registerBackendCommands() {
	rootCmd.AddCommand(backendCmd)

	backendCmd.AddCommand(backendListCmd)
	backendCmd.AddCommand(backendCheckCmd)
}
