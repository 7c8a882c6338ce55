package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/hospitaldigital/hospital-api/pkg/catalog"
	"github.com/hospitaldigital/hospital-api/pkg/db"
	gormstore "github.com/hospitaldigital/hospital-api/pkg/server/store/gorm"
)

// catalogLoadCmd represents the catalog load command
var catalogLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Load a catalog seed file",
	Long: `Load a YAML seed file of catalog entries and medications.

Entries are matched by code and upserted, so loading the same file
twice is safe.

Example:
  hospitalctl catalog load seeds/vademecum.yml`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		filename := args[0]

		database, err := db.Connect(db.Config{})
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to connect to DB:", err)
			os.Exit(1)
		}

		if err := loadCatalogFile(database, filename); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load catalog: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	catalogCmd.AddCommand(catalogLoadCmd)
}

func loadCatalogFile(database *gorm.DB, filename string) error {
	loader := catalog.NewLoader(
		gormstore.NewCatalogsStore(database),
		gormstore.NewMedicationsStore(database),
	)

	result, err := loader.LoadFile(filename)
	if err != nil {
		return err
	}

	fmt.Printf("Loaded %d catalog entries and %d medications from %s\n",
		result.Catalogs, result.Medications, filename)
	return nil
}
