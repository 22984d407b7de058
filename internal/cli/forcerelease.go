package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var forceReleaseCmd = &cobra.Command{
	Use:   "force-release [fingerprint]",
	Args:  cobra.MaximumNArgs(1),
	Short: "Remove the lock guarding a cache slot.",
	Long: `force-release removes the lock file for a slot regardless of holder
or age. The slot is named either by an explicit fingerprint argument or by
the path selection flags describing the request. Use it when a crashed sync
left a lock behind and the staleness window has not yet elapsed. The holder,
if still alive, will fail its release without harm.`,
	Run: func(cmd *cobra.Command, args []string) {
		fingerprint, err := resolveFingerprint(args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			cmd.Usage()
			os.Exit(1)
		}

		cfg := InitConfig(cacheDir)
		service := newService(cfg)

		if cfg.DryRun() {
			fmt.Printf("Dry run: would force-release lock for %s (currently %s)\n",
				fingerprint, service.LockStateForKey(fingerprint))
			return
		}

		if service.ForceReleaseKey(fingerprint) {
			fmt.Printf("Released lock for %s\n", fingerprint)
		} else {
			fmt.Printf("No lock held for %s\n", fingerprint)
		}
	},
}

func init() {
	rootCmd.AddCommand(forceReleaseCmd)
}
