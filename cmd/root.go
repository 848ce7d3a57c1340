// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"

	"firestige.xyz/strix/internal/config"
	"firestige.xyz/strix/internal/log"
)

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "strix",
	Short: "Strix - export-object engine for dissected network traffic",
	Long: `Strix lets protocol dissectors expose files reconstructed from network
traffic ("export objects") through a process-wide registry, and derives
filesystem-safe names for them.

Built-in dissectors: http, tftp.`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing or broken config is not fatal here; the logger falls
		// back to its defaults and commands that need the config report
		// the load error themselves.
		if cfg, err := config.Load(configFile); err == nil {
			if err := log.Init(cfg.Log); err != nil {
				exitWithError("failed to initialize logging", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once from main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/strix/config.yml",
		"config file path")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(validateCmd)
}
