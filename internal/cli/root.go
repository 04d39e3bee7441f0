package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// version can be overridden at build time via:
// go build -ldflags "-X github.com/weavebench/fanout/internal/cli.version=1.2.3"
var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "fanout",
	Short: "Bounded-time parallel search against Weaviate",
	Long: color.CyanString("fanout") + "\nFans one search out across many Weaviate collections under a single deadline,\n" +
		"either as an HTTP relay or by replaying query-set fixtures.",
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "fanout %s\n", version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(relayCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(generateCmd)
}
