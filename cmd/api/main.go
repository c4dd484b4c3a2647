// Command api serves the itinerary HTTP API and hosts its maintenance commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "api",
	Short: "Trip itinerary planner API",
	Long: `Trip itinerary planner API.

Available subcommands:
  serve   - run the HTTP server
  migrate - apply database migrations for the configured storage
  project - print the timeline of a trip snapshot file`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, projectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
