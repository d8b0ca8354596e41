package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"glanced/internal/registry"
	"glanced/internal/store"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List persisted devices",
	Long:  "List the devices in the last persisted snapshot. The running server may hold newer state; use GET /api/devices for the live view.",
	RunE:  runDevices,
}

func runDevices(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	devices, err := db.LoadDevices()
	if err != nil {
		return fmt.Errorf("load devices: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No devices persisted. Register one via POST /api/devices/register.")
		return nil
	}

	fmt.Printf("## Devices (%d)\n\n", len(devices))
	for _, d := range devices {
		fmt.Printf("  %s\n", registry.Redact(d.Token))
		if d.UserID != "" {
			fmt.Printf("    user: %s\n", d.UserID)
		}
		if d.LastIslandType != "" {
			fmt.Printf("    last shown: %s at %s\n", d.LastIslandType, d.LastIslandShownAt.Format("2006-01-02 15:04:05"))
		}
		if !d.LastPushAt.IsZero() {
			fmt.Printf("    last push: %s\n", d.LastPushAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("    registered: %s\n", d.RegisteredAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}

// openDB is a helper that opens the database for CLI commands.
func openDB() (*store.DB, error) {
	dbPath := os.Getenv("GLANCED_DB")
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(dbPath)
}
