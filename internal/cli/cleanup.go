package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cleanupMaxAgeHours float64

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Reclaim cache entries older than the freshness window.",
	Long: `cleanup enumerates the cache root and removes every unlocked entry
whose age exceeds the threshold. Entries locked by an in-progress sync are
skipped and picked up by a later pass. Per-entry failures are reported but
do not abort the pass.

With --max-age-hours unset the configured TTL is used as the threshold.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := InitConfig(cacheDir)
		service := newService(cfg)

		if cfg.DryRun() {
			fmt.Printf("Dry run: would remove unlocked entries older than %g hours under %s\n",
				effectiveCleanupThreshold(cfg.TTLHours()), cfg.CacheDir())
			return
		}

		report, err := service.CleanupExpired(cleanupMaxAgeHours)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cleanup failed: %s\n", err)
			os.Exit(1)
		}

		for _, removed := range report.RemovedEntries() {
			fmt.Printf("Removed %s (age %.1fh, %d bytes, %d files)\n",
				removed.Fingerprint(), removed.AgeHours(), removed.SizeBytes(), removed.FileCount())
		}
		for _, entryErr := range report.Errors() {
			fmt.Fprintf(os.Stderr, "Entry %s: %s\n", entryErr.Fingerprint(), entryErr.Message())
		}
		fmt.Printf("Removed %d entries, reclaimed %d bytes across %d files\n",
			len(report.RemovedEntries()), report.TotalBytesReclaimed(), report.TotalFilesReclaimed())
	},
}

func effectiveCleanupThreshold(defaultTTLHours float64) float64 {
	if cleanupMaxAgeHours < 0 {
		return defaultTTLHours
	}
	return cleanupMaxAgeHours
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().Float64Var(&cleanupMaxAgeHours, "max-age-hours", -1, "age threshold in hours (negative for the configured TTL)")
}
