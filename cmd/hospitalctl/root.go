package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command all subcommands attach to.
var rootCmd = &cobra.Command{
	Use:   "hospitalctl",
	Short: "Manage the hospital records server",
	Long: `hospitalctl manages the hospital records server.

Use the subcommands to run the API server, manage the database schema,
create users, and load clinical catalogs.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
