package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache and lock state for a sync request.",
	Long: `status fingerprints the sync request described by the path selection
flags and reports whether a usable entry exists, how old it is, and whether
a lock currently guards its slot.`,
	Run: func(cmd *cobra.Command, args []string) {
		request, err := BuildRequest()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			cmd.Usage()
			os.Exit(1)
		}

		cfg := InitConfig(cacheDir)
		service := newService(cfg)

		result, lookupErr := service.Lookup(request)
		if lookupErr != nil {
			fmt.Fprintf(os.Stderr, "Error: lookup failed: %s\n", lookupErr)
			os.Exit(1)
		}

		fmt.Printf("Fingerprint: %s\n", result.Fingerprint())
		fmt.Printf("Entry Path: %s\n", result.Path())
		fmt.Printf("Cache Hit: %t\n", result.Hit())
		if result.AgeHours() > 0 {
			fmt.Printf("Entry Age: %.1fh\n", result.AgeHours())
		}
		fmt.Printf("Lock State: %s\n", service.LockState(request))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
