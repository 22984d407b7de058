package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var invalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Remove a sync request's entry from the cache.",
	Long: `invalidate removes the request's entry directory so the next lookup
misses and forces a fresh remote sync. Removal is refused while a sync holds
the entry's lock.`,
	Run: func(cmd *cobra.Command, args []string) {
		request, err := BuildRequest()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			cmd.Usage()
			os.Exit(1)
		}

		cfg := InitConfig(cacheDir)
		service := newService(cfg)

		fingerprint := service.Fingerprint(request)
		if cfg.DryRun() {
			fmt.Printf("Dry run: would invalidate entry %s\n", fingerprint)
			return
		}

		if invErr := service.Invalidate(request); invErr != nil {
			fmt.Fprintf(os.Stderr, "Error: invalidate failed: %s\n", invErr)
			os.Exit(1)
		}
		fmt.Printf("Invalidated entry %s\n", fingerprint)
	},
}

func init() {
	rootCmd.AddCommand(invalidateCmd)
}
