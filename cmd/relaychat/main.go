package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dev-dami/relaychat/internal/config"
)

var (
	configPath string
	logLevel   string
	logFile    string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:          "relaychat",
	Short:        "relaychat is a chat relay and terminal chat client",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			loaded.Log.Level = logLevel
		}
		if cmd.Flags().Changed("log-file") {
			loaded.Log.File = logFile
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file")

	rootCmd.AddCommand(newServeCommand(), newChatCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
