// Package config loads the lockpid configuration. Values resolve in the
// order CLI flag > env var > config file > default; the engine itself only
// ever sees an explicit Options value, never this ambient state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/snapbak/lockpid/internal/fileutil"
	"github.com/snapbak/lockpid/internal/timeparse"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for lockpid.
type Config struct {
	LockDir      string        `yaml:"lock_dir"`
	WaitInterval time.Duration `yaml:"wait_interval"`
	WaitTimeout  time.Duration `yaml:"wait_timeout"`
	Quiet        bool          `yaml:"quiet"`
}

// knownKeys lists every valid configuration key.
var knownKeys = map[string]bool{
	"lock_dir":      true,
	"wait_interval": true,
	"wait_timeout":  true,
	"quiet":         true,
}

// DefaultLockDir is where lock files live unless configured otherwise.
const DefaultLockDir = "/var/lock"

// defaults returns a Config with all default values applied.
func defaults() Config {
	return Config{
		LockDir:      DefaultLockDir,
		WaitInterval: 50 * time.Millisecond,
	}
}

// configFileRaw is the on-disk representation. Durations are kept as
// strings so the YAML accepts the same spellings the CLI does
// ("50.0" milliseconds for the interval, "30s"/"5m"/"1d" for the timeout).
type configFileRaw struct {
	LockDir      *string `yaml:"lock_dir,omitempty"`
	WaitInterval *string `yaml:"wait_interval,omitempty"`
	WaitTimeout  *string `yaml:"wait_timeout,omitempty"`
	Quiet        *bool   `yaml:"quiet,omitempty"`
}

// BaseDir returns the root configuration directory: ~/.lockpid/
func BaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fall back to HOME env var.
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".lockpid")
}

// configFilePath returns the path to the main config file.
func configFilePath() string {
	return filepath.Join(BaseDir(), "config.yaml")
}

// Load reads configuration from disk and applies the resolution order:
//
//	CLI flag > env var > config file > default
//
// CLI flag overrides are passed via the overrides map (key -> string value).
func Load(overrides map[string]string) (Config, error) {
	cfg := defaults()

	// --- Layer 1: config file ---
	raw, err := loadRawFile()
	if err != nil {
		return cfg, err
	}
	if err := applyFileToConfig(raw, &cfg); err != nil {
		return cfg, err
	}

	// --- Layer 2: environment variables ---
	if err := applyEnvToConfig(&cfg); err != nil {
		return cfg, err
	}

	// --- Layer 3: CLI flag overrides ---
	if err := applyOverrides(overrides, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// loadRawFile reads and parses the YAML config file. If the file does not
// exist the returned struct is zero-valued (all pointers nil).
func loadRawFile() (configFileRaw, error) {
	var raw configFileRaw
	data, err := os.ReadFile(configFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return raw, nil
		}
		return raw, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return raw, fmt.Errorf("parse config file: %w", err)
	}
	return raw, nil
}

func applyFileToConfig(raw configFileRaw, cfg *Config) error {
	if raw.LockDir != nil {
		cfg.LockDir = *raw.LockDir
	}
	if raw.WaitInterval != nil {
		d, err := timeparse.ParseIntervalMS(*raw.WaitInterval)
		if err != nil {
			return fmt.Errorf("config wait_interval: %w", err)
		}
		cfg.WaitInterval = d
	}
	if raw.WaitTimeout != nil {
		d, err := timeparse.ParseTimeout(*raw.WaitTimeout)
		if err != nil {
			return fmt.Errorf("config wait_timeout: %w", err)
		}
		cfg.WaitTimeout = d
	}
	if raw.Quiet != nil {
		cfg.Quiet = *raw.Quiet
	}
	return nil
}

// applyEnvToConfig reads LOCKPID_<UPPER_SNAKE_KEY> env vars.
func applyEnvToConfig(cfg *Config) error {
	if v, ok := lookupEnv("lock_dir"); ok {
		cfg.LockDir = v
	}
	if v, ok := lookupEnv("wait_interval"); ok {
		d, err := timeparse.ParseIntervalMS(v)
		if err != nil {
			return fmt.Errorf("env wait_interval: %w", err)
		}
		cfg.WaitInterval = d
	}
	if v, ok := lookupEnv("wait_timeout"); ok {
		d, err := timeparse.ParseTimeout(v)
		if err != nil {
			return fmt.Errorf("env wait_timeout: %w", err)
		}
		cfg.WaitTimeout = d
	}
	if v, ok := lookupEnv("quiet"); ok {
		cfg.Quiet = parseBool(v)
	}
	return nil
}

// lookupEnv checks for LOCKPID_<UPPER_SNAKE_KEY>.
func lookupEnv(key string) (string, bool) {
	envKey := "LOCKPID_" + strings.ToUpper(key)
	return os.LookupEnv(envKey)
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// applyOverrides applies CLI flag overrides.
func applyOverrides(overrides map[string]string, cfg *Config) error {
	for k, v := range overrides {
		if !knownKeys[k] {
			return fmt.Errorf("unknown config key: %s", k)
		}
		switch k {
		case "lock_dir":
			cfg.LockDir = v
		case "wait_interval":
			d, err := timeparse.ParseIntervalMS(v)
			if err != nil {
				return err
			}
			cfg.WaitInterval = d
		case "wait_timeout":
			d, err := timeparse.ParseTimeout(v)
			if err != nil {
				return err
			}
			cfg.WaitTimeout = d
		case "quiet":
			cfg.Quiet = parseBool(v)
		}
	}
	return nil
}

// ValidateKey returns an error if key is not a known configuration key.
func ValidateKey(key string) error {
	if !knownKeys[key] {
		return fmt.Errorf("unknown config key %q; known keys: %s", key, knownKeysList())
	}
	return nil
}

func knownKeysList() string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	return strings.Join(keys, ", ")
}

// SetConfigValue writes a key-value pair to the config file. The file is
// created if it does not exist. Uses atomic write for crash safety.
func SetConfigValue(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	// Reject malformed values before they land in the file.
	switch key {
	case "wait_interval":
		if _, err := timeparse.ParseIntervalMS(value); err != nil {
			return err
		}
	case "wait_timeout":
		if _, err := timeparse.ParseTimeout(value); err != nil {
			return err
		}
	}

	raw, err := loadRawFile()
	if err != nil {
		return err
	}

	setRawValue(&raw, key, value)

	data, err := yaml.Marshal(&raw)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return fileutil.AtomicWrite(configFilePath(), data, 0644)
}

func setRawValue(raw *configFileRaw, key, value string) {
	switch key {
	case "lock_dir":
		raw.LockDir = &value
	case "wait_interval":
		raw.WaitInterval = &value
	case "wait_timeout":
		raw.WaitTimeout = &value
	case "quiet":
		b := parseBool(value)
		raw.Quiet = &b
	}
}

// GetConfigValue returns the current effective value of a config key as a
// string, after applying the full resolution order (file + env; no CLI flags).
func GetConfigValue(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}

	cfg, err := Load(nil)
	if err != nil {
		return "", err
	}

	switch key {
	case "lock_dir":
		return cfg.LockDir, nil
	case "wait_interval":
		return cfg.WaitInterval.String(), nil
	case "wait_timeout":
		return cfg.WaitTimeout.String(), nil
	case "quiet":
		return fmt.Sprintf("%t", cfg.Quiet), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// ListConfig returns all config keys and their current effective values.
func ListConfig() (map[string]string, error) {
	cfg, err := Load(nil)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"lock_dir":      cfg.LockDir,
		"wait_interval": cfg.WaitInterval.String(),
		"wait_timeout":  cfg.WaitTimeout.String(),
		"quiet":         fmt.Sprintf("%t", cfg.Quiet),
	}, nil
}
