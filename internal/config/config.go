package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type Config struct {
	//===============
	//  Cache layout
	//===============
	// Root directory holding one subdirectory per fingerprint
	cacheDir string
	// Default max entry age (hours) used by cleanup when no threshold is given
	ttlHours float64
	// Age beyond which a lock record is abandoned and treated as absent
	lockMaxAge time.Duration

	//===============
	// Remote defaults
	//===============
	// Default remote endpoint for sync requests built from flags
	remoteHost string
	remotePort int
	remoteUser string

	//===============
	// Lock waiting
	//===============
	// Maximum acquisition attempts when a caller chooses to wait on a held lock
	maxAttempt int
	// Initial delay for backoff between acquisition attempts
	backoffInitialDuration time.Duration
	// Multiplier during exponential backoff
	backoffMultiplier float64
	// Capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration
	// Randomized variation added on top of the backoff delay
	jitter time.Duration
	// Controls the random number generator
	randomSeed int64

	//===============
	// Output
	//===============
	// Whether the program simulates what it would do without
	// actually performing any irreversible or side-effecting actions
	dryRun bool
}

type configDTO struct {
	CacheDir               string        `json:"cacheDir"`
	TTLHours               float64       `json:"ttlHours,omitempty"`
	LockMaxAge             time.Duration `json:"lockMaxAge,omitempty"`
	RemoteHost             string        `json:"remoteHost,omitempty"`
	RemotePort             int           `json:"remotePort,omitempty"`
	RemoteUser             string        `json:"remoteUser,omitempty"`
	MaxAttempt             int           `json:"maxAttempt,omitempty"`
	BackoffInitialDuration time.Duration `json:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64       `json:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     time.Duration `json:"backoffMaxDuration,omitempty"`
	Jitter                 time.Duration `json:"jitter,omitempty"`
	RandomSeed             int64         `json:"randomSeed,omitempty"`
	DryRun                 bool          `json:"dryRun,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {

	// Start with default config
	cfg, err := WithDefault(dto.CacheDir).Build()
	if err != nil {
		return Config{}, err
	}

	// For other fields, only override if non-zero value is provided
	if dto.TTLHours != 0 {
		cfg.ttlHours = dto.TTLHours
	}
	if dto.LockMaxAge != 0 {
		cfg.lockMaxAge = dto.LockMaxAge
	}
	if dto.RemoteHost != "" {
		cfg.remoteHost = dto.RemoteHost
	}
	if dto.RemotePort != 0 {
		cfg.remotePort = dto.RemotePort
	}
	if dto.RemoteUser != "" {
		cfg.remoteUser = dto.RemoteUser
	}
	if dto.MaxAttempt != 0 {
		cfg.maxAttempt = dto.MaxAttempt
	}
	if dto.BackoffInitialDuration != 0 {
		cfg.backoffInitialDuration = dto.BackoffInitialDuration
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		cfg.backoffMaxDuration = dto.BackoffMaxDuration
	}
	if dto.Jitter != 0 {
		cfg.jitter = dto.Jitter
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	// DryRun is a boolean, we use the DTO value as-is since bool zero value is false
	cfg.dryRun = dto.DryRun

	return cfg, nil
}

func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	err = json.Unmarshal(configContent, &cfgDTO)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	cfg, err := newConfigFromDTO(cfgDTO)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithDefault creates a new Config with the provided cache directory and
// default values for all other fields. cacheDir is mandatory and must not
// be empty - an error will be returned from Build if it is.
func WithDefault(cacheDir string) *Config {
	defaultConfig := Config{
		cacheDir:               cacheDir,
		ttlHours:               24,
		lockMaxAge:             30 * time.Minute,
		remoteHost:             "",
		remotePort:             22,
		remoteUser:             "",
		maxAttempt:             10,
		backoffInitialDuration: 100 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     10 * time.Second,
		jitter:                 time.Millisecond * 500,
		randomSeed:             time.Now().UnixNano(),
		dryRun:                 false,
	}
	return &defaultConfig
}

func (c *Config) WithCacheDir(dir string) *Config {
	c.cacheDir = dir
	return c
}

func (c *Config) WithTTLHours(hours float64) *Config {
	c.ttlHours = hours
	return c
}

func (c *Config) WithLockMaxAge(age time.Duration) *Config {
	c.lockMaxAge = age
	return c
}

func (c *Config) WithRemoteHost(host string) *Config {
	c.remoteHost = host
	return c
}

func (c *Config) WithRemotePort(port int) *Config {
	c.remotePort = port
	return c
}

func (c *Config) WithRemoteUser(user string) *Config {
	c.remoteUser = user
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithDryRun(dryRun bool) *Config {
	c.dryRun = dryRun
	return c
}

func (c *Config) Build() (Config, error) {
	if c.cacheDir == "" {
		return Config{}, fmt.Errorf("%w: cacheDir cannot be empty", ErrInvalidConfig)
	}
	if c.ttlHours <= 0 {
		return Config{}, fmt.Errorf("%w: ttlHours must be positive", ErrInvalidConfig)
	}
	if c.lockMaxAge <= 0 {
		return Config{}, fmt.Errorf("%w: lockMaxAge must be positive", ErrInvalidConfig)
	}
	if c.remotePort < 1 || c.remotePort > 65535 {
		return Config{}, fmt.Errorf("%w: remotePort out of range", ErrInvalidConfig)
	}

	return *c, nil
}

func (c Config) CacheDir() string {
	return c.cacheDir
}

func (c Config) TTLHours() float64 {
	return c.ttlHours
}

// TTL is the default entry max age as a duration.
func (c Config) TTL() time.Duration {
	return time.Duration(c.ttlHours * float64(time.Hour))
}

func (c Config) LockMaxAge() time.Duration {
	return c.lockMaxAge
}

func (c Config) RemoteHost() string {
	return c.remoteHost
}

func (c Config) RemotePort() int {
	return c.remotePort
}

func (c Config) RemoteUser() string {
	return c.remoteUser
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) DryRun() bool {
	return c.dryRun
}
