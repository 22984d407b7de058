package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/sync-cache/pkg/hashutil"
)

var digestAlgo string

var statsCmd = &cobra.Command{
	Use:   "stats [fingerprint]",
	Args:  cobra.MaximumNArgs(1),
	Short: "Report size and file count of a cache entry.",
	Long: `stats walks an entry directory and reports its total size and file
count. The entry is named either by an explicit fingerprint argument or by
the path selection flags describing the request. With --digest-algo a
content digest over the entry tree is computed as well, useful for comparing
entries across machines.`,
	Run: func(cmd *cobra.Command, args []string) {
		fingerprint, err := resolveFingerprint(args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			cmd.Usage()
			os.Exit(1)
		}

		cfg := InitConfig(cacheDir)
		service := newService(cfg)

		entryStats, statsErr := service.EntryStatsForKey(fingerprint)
		if statsErr != nil {
			fmt.Fprintf(os.Stderr, "Error: stats failed: %s\n", statsErr)
			os.Exit(1)
		}

		fmt.Printf("Fingerprint: %s\n", fingerprint)
		fmt.Printf("Size: %d bytes\n", entryStats.SizeBytes())
		fmt.Printf("Files: %d\n", entryStats.FileCount())

		if digestAlgo != "" {
			digest, digestErr := service.EntryDigestForKey(fingerprint, hashutil.HashAlgo(digestAlgo))
			if digestErr != nil {
				fmt.Fprintf(os.Stderr, "Error: digest failed: %s\n", digestErr)
				os.Exit(1)
			}
			fmt.Printf("Digest (%s): %s\n", digestAlgo, digest)
		}
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVar(&digestAlgo, "digest-algo", "", "content digest algorithm (sha256 or blake3)")
}
