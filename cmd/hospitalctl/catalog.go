package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage clinical catalogs and the vademecum",
	Long:  `Manage clinical catalog entries and the medication vademecum from YAML seed files.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'catalog' requires a subcommand (load, watch)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}
