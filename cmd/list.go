// Package cmd implements CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/strix/internal/export"
	"firestige.xyz/strix/internal/proto"
	"firestige.xyz/strix/internal/tap"
	"firestige.xyz/strix/plugins"
)

var listOutput string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered export-object protocols",
	Long: `List every protocol offering export objects, in registry order
(case-insensitive by filter name).

Examples:
  strix list
  strix list -o yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		runListCommand()
	},
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "text",
		"output format: text or yaml")
}

type listItem struct {
	Protocol   string `yaml:"protocol"`
	FilterName string `yaml:"filter_name"`
	TapName    string `yaml:"tap_name"`
}

func runListCommand() {
	protos := proto.Default()
	taps := tap.Default()
	registry := export.Default()

	if err := plugins.Setup(protos, taps, registry, nil, nil); err != nil {
		exitWithError("failed to register dissectors", err)
	}

	items := make([]listItem, 0, registry.Count())
	registry.Iterate(func(reg *export.Registration) {
		items = append(items, listItem{
			Protocol:   protos.Name(reg.ProtoID()),
			FilterName: protos.FilterName(reg.ProtoID()),
			TapName:    reg.TapListenerName(),
		})
	})

	switch listOutput {
	case "yaml":
		out, err := yaml.Marshal(items)
		if err != nil {
			exitWithError("failed to format output", err)
		}
		fmt.Print(string(out))
	case "text":
		for _, item := range items {
			fmt.Printf("%-40s %-10s %s\n", item.Protocol, item.FilterName, item.TapName)
		}
	default:
		exitWithError(fmt.Sprintf("unknown output format '%s'", listOutput), nil)
	}
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
