package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/hospitaldigital/hospital-api/pkg/db"
)

// catalogWatchCmd represents the catalog watch command
var catalogWatchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Watch a seed file and reload catalogs when it changes",
	Long: `Watch a YAML seed file and reload catalogs and medications when it
is modified. Useful while curating the vademecum.

Example:
  hospitalctl catalog watch seeds/vademecum.yml`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		filename := args[0]

		if err := watchCatalog(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to watch catalog: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	catalogCmd.AddCommand(catalogWatchCmd)
}

func watchCatalog(filename string) error {
	database, err := db.Connect(db.Config{})
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filename); err != nil {
		return fmt.Errorf("failed to watch file %s: %w", filename, err)
	}

	fmt.Printf("Watching %s for catalog changes\n", filename)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				fmt.Printf("[%s] File modified, reloading catalogs...\n", time.Now().Format(time.RFC3339))

				if err := loadCatalogFile(database, filename); err != nil {
					fmt.Fprintf(os.Stderr, "Error loading catalog: %v\n", err)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
		case <-sigChan:
			fmt.Println("\nShutting down...")
			return nil
		}
	}
}
