package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rohmanhakim/sync-cache/internal/build"
	"github.com/rohmanhakim/sync-cache/internal/config"
	"github.com/rohmanhakim/sync-cache/internal/keygen"
	"github.com/rohmanhakim/sync-cache/internal/syncer"
)

var (
	cfgFile            string
	cacheDir           string
	ttlHours           float64
	lockMaxAge         time.Duration
	remoteHost         string
	remotePort         int
	remoteUser         string
	directory          string
	directories        []string
	files              []string
	recursive          bool
	excludePatterns    []string
	excludeExtensions  []string
	excludeDirectories []string
	maxAttempt         int
	backoffInitial     time.Duration
	backoffMultiplier  float64
	backoffMax         time.Duration
	jitter             time.Duration
	randomSeed         int64
	dryRun             bool
)

// BuildRequest converts the path selection flags into a sync request.
// A bare --directory with no --directories/--files selects the legacy
// single-directory form; anything else selects the multi-path form.
func BuildRequest() (keygen.SyncRequest, error) {
	if remoteHost == "" {
		return keygen.SyncRequest{}, fmt.Errorf("--remote-host is required")
	}

	if directory != "" && len(directories) == 0 && len(files) == 0 {
		return keygen.NewLegacyRequest(
			remoteHost,
			remotePort,
			remoteUser,
			directory,
			recursive,
			excludePatterns,
			excludeExtensions,
			excludeDirectories,
		), nil
	}

	if directory != "" {
		return keygen.SyncRequest{}, fmt.Errorf("--directory cannot be combined with --directories or --files")
	}
	if len(directories) == 0 && len(files) == 0 {
		return keygen.SyncRequest{}, fmt.Errorf("at least one of --directory, --directories or --files is required")
	}

	return keygen.NewMultiPathRequest(
		remoteHost,
		remotePort,
		remoteUser,
		directories,
		files,
		recursive,
		excludePatterns,
		excludeExtensions,
		excludeDirectories,
	), nil
}

// resolveFingerprint yields the fingerprint a subcommand should act on:
// an explicit positional argument wins, otherwise the request described by
// the path selection flags is fingerprinted.
func resolveFingerprint(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	request, err := BuildRequest()
	if err != nil {
		return "", err
	}
	return keygen.Fingerprint(request), nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sync-cache",
	Short: "A local result cache for remote directory syncs.",
	Long: `sync-cache maintains a local cache of results from expensive remote
directory synchronization operations. Each distinct sync request maps to a
fingerprinted entry directory under the cache root; advisory file locks keep
concurrent syncs of the same request from colliding, and an age-based cleanup
reclaims entries past their freshness window.

Run a subcommand to inspect or manage the cache, or run without a subcommand
to verify the resolved configuration.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := InitConfig(cacheDir)

		// Display configuration for verification
		fmt.Printf("Configuration initialized successfully\n")
		fmt.Printf("Cache Directory: %s\n", cfg.CacheDir())
		fmt.Printf("TTL Hours: %g\n", cfg.TTLHours())
		fmt.Printf("Lock Max Age: %v\n", cfg.LockMaxAge())
		if cfg.RemoteHost() != "" {
			fmt.Printf("Remote Host: %s\n", cfg.RemoteHost())
			fmt.Printf("Remote Port: %d\n", cfg.RemotePort())
		}
		if cfg.RemoteUser() != "" {
			fmt.Printf("Remote User: %s\n", cfg.RemoteUser())
		}
		fmt.Printf("Max Attempt: %d\n", cfg.MaxAttempt())
		fmt.Printf("Backoff Initial Duration: %v\n", cfg.BackoffInitialDuration())
		fmt.Printf("Backoff Multiplier: %g\n", cfg.BackoffMultiplier())
		fmt.Printf("Backoff Max Duration: %v\n", cfg.BackoffMaxDuration())
		fmt.Printf("Jitter: %v\n", cfg.Jitter())
		fmt.Printf("Random Seed: %d\n", cfg.RandomSeed())
		fmt.Printf("Dry Run: %t\n", cfg.DryRun())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = build.FullVersion()

	// Here you will define your flags and configuration settings.
	// Cobra supports persistent flags, which, if defined here,
	// will be available to all subcommands in the sync-cache application.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (e.g., /home/myuser/config.json)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "root directory holding cache entries")
	rootCmd.PersistentFlags().Float64Var(&ttlHours, "ttl-hours", 0, "default entry freshness window in hours")
	rootCmd.PersistentFlags().DurationVar(&lockMaxAge, "lock-max-age", 0, "age beyond which a lock is treated as abandoned")
	rootCmd.PersistentFlags().StringVar(&remoteHost, "remote-host", "", "remote host the sync request targets")
	rootCmd.PersistentFlags().IntVar(&remotePort, "remote-port", 22, "remote port the sync request targets")
	rootCmd.PersistentFlags().StringVar(&remoteUser, "remote-user", "", "remote user the sync request runs as")
	rootCmd.PersistentFlags().StringVar(&directory, "directory", "", "single remote directory to sync (legacy form)")
	rootCmd.PersistentFlags().StringArrayVar(&directories, "directories", []string{}, "remote directories to sync (can be repeated)")
	rootCmd.PersistentFlags().StringArrayVar(&files, "files", []string{}, "individual remote files to sync (can be repeated)")
	rootCmd.PersistentFlags().BoolVar(&recursive, "recursive", true, "sync directories recursively")
	rootCmd.PersistentFlags().StringArrayVar(&excludePatterns, "exclude-pattern", []string{}, "glob patterns to exclude (can be repeated)")
	rootCmd.PersistentFlags().StringArrayVar(&excludeExtensions, "exclude-extension", []string{}, "file extensions to exclude (can be repeated)")
	rootCmd.PersistentFlags().StringArrayVar(&excludeDirectories, "exclude-directory", []string{}, "directory names to exclude (can be repeated)")
	rootCmd.PersistentFlags().IntVar(&maxAttempt, "max-attempt", 0, "maximum lock acquisition attempts when waiting")
	rootCmd.PersistentFlags().DurationVar(&backoffInitial, "backoff-initial-duration", 0, "initial delay between lock acquisition attempts")
	rootCmd.PersistentFlags().Float64Var(&backoffMultiplier, "backoff-multiplier", 0, "multiplier applied to the backoff delay")
	rootCmd.PersistentFlags().DurationVar(&backoffMax, "backoff-max-duration", 0, "cap on the backoff delay")
	rootCmd.PersistentFlags().DurationVar(&jitter, "jitter", 0, "random jitter added to the backoff delay")
	rootCmd.PersistentFlags().Int64Var(&randomSeed, "random-seed", 0, "seed for random number generation (0 for current time)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "report what would change without performing it")
}

// InitConfig reads in config file and flag values.
// cacheDir is a mandatory parameter and must not be empty.
func InitConfig(cacheDir string) config.Config {
	cfg, err := InitConfigWithError(cacheDir)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

// InitConfigWithError reads in config file and flag values, returning any errors.
// cacheDir is a mandatory parameter and must not be empty.
// This makes it easier to test error cases.
func InitConfigWithError(cacheDir string) (config.Config, error) {
	if cfgFile != "" {
		fmt.Printf("Initializing config from file: %s\n", cfgFile)
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("error initializing config from file: %w", err)
		}
		return cfg, nil
	}

	if cacheDir == "" {
		return config.Config{}, fmt.Errorf("%w: cacheDir cannot be empty", config.ErrInvalidConfig)
	}

	// Build config from CLI flags using the With... functions with method chaining
	fmt.Println("No config file specified. Using default flag values")

	// Start with default config using the provided cache directory and apply
	// overrides using method chaining
	configBuilder := config.WithDefault(cacheDir)

	// Override with CLI flag values where provided
	if ttlHours > 0 {
		configBuilder = configBuilder.WithTTLHours(ttlHours)
	}

	if lockMaxAge > 0 {
		configBuilder = configBuilder.WithLockMaxAge(lockMaxAge)
	}

	if remoteHost != "" {
		configBuilder = configBuilder.WithRemoteHost(remoteHost)
	}

	if remotePort > 0 && remotePort != 22 {
		configBuilder = configBuilder.WithRemotePort(remotePort)
	}

	if remoteUser != "" {
		configBuilder = configBuilder.WithRemoteUser(remoteUser)
	}

	if maxAttempt > 0 {
		configBuilder = configBuilder.WithMaxAttempt(maxAttempt)
	}

	if backoffInitial > 0 {
		configBuilder = configBuilder.WithBackoffInitialDuration(backoffInitial)
	}

	if backoffMultiplier > 0 {
		configBuilder = configBuilder.WithBackoffMultiplier(backoffMultiplier)
	}

	if backoffMax > 0 {
		configBuilder = configBuilder.WithBackoffMaxDuration(backoffMax)
	}

	if jitter > 0 {
		configBuilder = configBuilder.WithJitter(jitter)
	}

	if randomSeed != 0 {
		configBuilder = configBuilder.WithRandomSeed(randomSeed)
	}

	if dryRun {
		configBuilder = configBuilder.WithDryRun(dryRun)
	}

	cfg, err := configBuilder.Build()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newService builds the cache service from the resolved configuration.
func newService(cfg config.Config) syncer.Service {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	return syncer.NewService(cfg, logger)
}

func ResetFlags() {
	cfgFile = ""
	cacheDir = ""
	ttlHours = 0
	lockMaxAge = 0
	remoteHost = ""
	remotePort = 22
	remoteUser = ""
	directory = ""
	directories = []string{}
	files = []string{}
	recursive = true
	excludePatterns = []string{}
	excludeExtensions = []string{}
	excludeDirectories = []string{}
	maxAttempt = 0
	backoffInitial = 0
	backoffMultiplier = 0
	backoffMax = 0
	jitter = 0
	randomSeed = 0
	dryRun = false
	cleanupMaxAgeHours = -1
	digestAlgo = ""
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetCacheDirForTest(dir string) {
	cacheDir = dir
}

func SetTTLHoursForTest(hours float64) {
	ttlHours = hours
}

func SetLockMaxAgeForTest(age time.Duration) {
	lockMaxAge = age
}

func SetRemoteHostForTest(host string) {
	remoteHost = host
}

func SetRemotePortForTest(port int) {
	remotePort = port
}

func SetRemoteUserForTest(user string) {
	remoteUser = user
}

func SetDirectoryForTest(dir string) {
	directory = dir
}

func SetDirectoriesForTest(dirs []string) {
	directories = dirs
}

func SetFilesForTest(fileList []string) {
	files = fileList
}

func SetRecursiveForTest(r bool) {
	recursive = r
}

func SetMaxAttemptForTest(attempts int) {
	maxAttempt = attempts
}

func SetJitterForTest(j time.Duration) {
	jitter = j
}

func SetRandomSeedForTest(seed int64) {
	randomSeed = seed
}

func SetDryRunForTest(dry bool) {
	dryRun = dry
}
