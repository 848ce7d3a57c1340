// Package cmd implements CLI commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/strix/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate a strix configuration file without running anything.

Examples:
  strix validate -c /etc/strix/config.yml`,
	Run: func(cmd *cobra.Command, args []string) {
		runValidateCommand()
	},
}

func runValidateCommand() {
	cfg, err := config.Load(configFile)
	if err != nil {
		exitWithError(fmt.Sprintf("INVALID: %s", configFile), err)
	}

	fmt.Printf("VALID: log level %q, %d dissector(s) configured\n",
		cfg.Log.Level, len(cfg.Dissectors))
}
