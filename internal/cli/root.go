package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "resurfaced",
	Short: "Relationship graph and resurfacing engine for captured content",
	Long: "resurfaced maintains the relationship graph over captured content and\n" +
		"decides which items to resurface, in what order, and when.",
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rebuildCmd)
}
