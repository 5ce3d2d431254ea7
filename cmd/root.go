// Package cmd is the CLI surface of lockpid. It parses flags into an
// explicit lockfile.Options and maps the engine's errors onto the exit
// status contract shell callers depend on.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/snapbak/lockpid/internal/config"
	"github.com/snapbak/lockpid/internal/liveness"
	"github.com/snapbak/lockpid/internal/lockfile"
	"github.com/spf13/cobra"
)

// Flag values for the root (acquire) command.
var (
	flagDir          string
	flagPID          int
	flagNewPID       int
	flagWait         bool
	flagWaitInterval string
	flagWaitTimeout  string
	flagQuiet        bool
	flagVerbose      bool
	flagRelease      bool
	flagForce        bool
	flagErrIfHeld    bool
)

// rootCmd acquires (or with --release, releases) a named lock. The long
// help doubles as the protocol summary for shell callers.
var rootCmd = &cobra.Command{
	Use:   "lockpid [flags] FILE",
	Short: "Race-free PID lock files for serializing independent processes",
	Long: `lockpid puts a PID (default: the caller's parent) into FILE under the
lock directory and exits 0; if FILE already holds the PID of another
live process it exits ` + fmt.Sprint(lockfile.ExitLockBusy) + `. Any other error exits with the errno where
one is available.

FILE is flock'd before the PID is checked or written, so competing
invocations cannot race. A recorded PID whose process has died is
stale and is reclaimed automatically. To avoid a symlink attack,
lockpid refuses to operate on a FILE that is a symbolic link.

This is only suitable for local locks, not networked locks.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

// SetVersion sets the CLI version string shown by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

func runRoot(cmd *cobra.Command, args []string) error {
	name := args[0]
	if _, err := strconv.Atoi(name); err == nil {
		// An all-digits FILE is almost always a forgotten filename with a
		// PID in its place (the tool's historical two-argument syntax).
		return usageErrorf("lock filename can't be an integer")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return usageErrorf("%v", err)
	}

	path := lockPath(cfg.LockDir, name)
	quiet := flagQuiet || cfg.Quiet

	if flagRelease {
		return runRelease(path, quiet)
	}

	wait := flagWait || cmd.Flags().Changed("wait-interval") || cfg.WaitTimeout > 0

	res, err := lockfile.Acquire(path, lockfile.Options{
		OwnerPID:     flagPID,
		NewPID:       flagNewPID,
		Wait:         wait,
		PollInterval: cfg.WaitInterval,
		WaitTimeout:  cfg.WaitTimeout,
		ErrIfHeld:    flagErrIfHeld,
		Fixer:        lockfile.DefaultOwnershipFixer,
	})
	if err != nil {
		return reportAcquireError(path, err, quiet, wait)
	}

	switch res.Status {
	case lockfile.StatusAlreadyHeld:
		// Stdout on purpose: callers that don't care can ignore it
		// without parsing stderr.
		fmt.Printf("lockpid %s: already hold lock\n", path)
	case lockfile.StatusAcquired:
		if flagVerbose {
			fmt.Printf("caller successfully acquired lock '%s' for pid %d\n", path, res.HolderPID)
		}
	}
	return nil
}

// runRelease handles the --release flag on the root command.
func runRelease(path string, quiet bool) error {
	var err error
	if flagForce {
		err = lockfile.ForceRelease(path)
	} else {
		err = lockfile.Release(path, flagPID)
	}
	if err != nil {
		if errors.Is(err, lockfile.ErrNotOwner) {
			if !quiet {
				fmt.Fprintf(os.Stderr, "lockpid %s: %v\n", path, err)
			}
			return &exitError{code: lockfile.ExitLockBusy}
		}
		return systemError(path, "release", err)
	}
	if flagVerbose {
		fmt.Printf("released lock '%s'\n", path)
	}
	return nil
}

// reportAcquireError prints the user-facing message for a failed acquire
// and converts the error to the exit status contract.
func reportAcquireError(path string, err error, quiet, wait bool) error {
	var busy *lockfile.BusyError
	if errors.As(err, &busy) {
		if !quiet && !wait {
			// Busy announcements go to stdout, like the already-held one.
			fmt.Println(busy.Error())
		}
		return &exitError{code: lockfile.ExitLockBusy}
	}
	if errors.Is(err, lockfile.ErrWaitExpired) {
		if !quiet {
			fmt.Fprintf(os.Stderr, "lockpid %s: timed out waiting for lock\n", path)
		}
		return &exitError{code: lockfile.ExitLockBusy}
	}
	if errors.Is(err, lockfile.ErrAlreadyHeld) {
		fmt.Fprintf(os.Stderr, "lockpid %s: already hold lock\n", path)
		return &exitError{code: lockfile.ExitAlreadyHeld}
	}
	return systemError(path, "acquire", err)
}

// systemError reports an I/O failure, naming the path and operation, and
// exits with the underlying errno where one is available.
func systemError(path, op string, err error) error {
	fmt.Fprintf(os.Stderr, "lockpid %s: %s: %v\n", path, op, err)
	return &exitError{code: lockfile.ExitCode(err)}
}

// lockPath resolves dir + name into the lock file path. An absolute or
// path-qualified name bypasses the lock directory.
func lockPath(dir, name string) string {
	if filepath.IsAbs(name) || filepath.Dir(name) != "." {
		return name
	}
	return filepath.Join(dir, name)
}

// loadConfig layers the config file, environment, and command-line flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	overrides := map[string]string{}
	if cmd.Flags().Changed("directory") {
		overrides["lock_dir"] = flagDir
	}
	if cmd.Flags().Changed("wait-interval") {
		overrides["wait_interval"] = flagWaitInterval
	}
	if cmd.Flags().Changed("wait-timeout") {
		overrides["wait_timeout"] = flagWaitTimeout
	}
	return config.Load(overrides)
}

// ── status ──────────────────────────────────────────────────────────────

var statusCmd = &cobra.Command{
	Use:   "status FILE",
	Short: "Report who holds a lock, without acquiring it",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return usageErrorf("%v", err)
	}
	path := lockPath(cfg.LockDir, args[0])

	pid, verdict, err := lockfile.Inspect(path, nil)
	if err != nil {
		if errors.Is(err, lockfile.ErrNotLocked) {
			fmt.Printf("lock '%s' is not held (no lock file)\n", path)
			return nil
		}
		return systemError(path, "status", err)
	}

	if pid == 0 {
		fmt.Printf("lock '%s' is not held (empty lock file)\n", path)
		return nil
	}
	if verdict == liveness.Dead {
		fmt.Printf("lock '%s' is stale: recorded process %d is dead\n", path, pid)
		return nil
	}
	fmt.Printf("process %d holds lock '%s'\n", pid, path)
	return nil
}

// ── clean ───────────────────────────────────────────────────────────────

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove stale lock files from the lock directory",
	RunE:  runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return usageErrorf("%v", err)
	}

	n, err := lockfile.SweepStale(cfg.LockDir, nil)
	if err != nil {
		return systemError(cfg.LockDir, "clean", err)
	}
	fmt.Printf("removed %d stale lock files from %s\n", n, cfg.LockDir)
	return nil
}

// ── config ──────────────────────────────────────────────────────────────

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	if err := config.SetConfigValue(key, value); err != nil {
		return usageErrorf("%v", err)
	}

	fmt.Printf("Set %s = %s\n", key, value)
	return nil
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	val, err := config.GetConfigValue(key)
	if err != nil {
		return usageErrorf("%v", err)
	}

	fmt.Printf("%s = %s\n", key, val)
	return nil
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration values",
	RunE:  runConfigList,
}

func runConfigList(cmd *cobra.Command, args []string) error {
	values, err := config.ListConfig()
	if err != nil {
		return usageErrorf("%v", err)
	}

	// Sort keys for deterministic output.
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Printf("%-15s = %s\n", k, values[k])
	}

	return nil
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(filepath.Join(config.BaseDir(), "config.yaml"))
	},
}

// ── init & execute ──────────────────────────────────────────────────────

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagDir, "directory", "d", config.DefaultLockDir, "directory holding lock files")
	pf.StringVarP(&flagWaitInterval, "wait-interval", "W", "50.0", "poll interval in milliseconds (implies --wait)")
	pf.StringVar(&flagWaitTimeout, "wait-timeout", "", "give up waiting after this long (e.g. 30s, 5m, 2h, 1d)")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "don't announce when the lock is busy")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "announce when the lock is acquired or released")

	f := rootCmd.Flags()
	f.IntVarP(&flagPID, "pid", "p", 0, "PID to record as owner (default: parent PID)")
	f.IntVarP(&flagNewPID, "new-pid", "P", 0, "transfer an already-held lock to this PID")
	f.BoolVarP(&flagWait, "wait", "w", false, "wait for the lock to become available")
	f.BoolVarP(&flagRelease, "release", "r", false, "release the lock instead of acquiring it")
	f.BoolVar(&flagForce, "force", false, "with --release, skip the ownership check")
	f.BoolVarP(&flagErrIfHeld, "err-if-held", "e", false, "treat already holding the lock as an error")

	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configPathCmd)

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute runs the root command and exits the process with the status the
// contract demands: distinguished codes for busy/usage/already-held, the
// errno for I/O failures, ExitUnknown otherwise.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.msg != "" {
			fmt.Fprintln(os.Stderr, exitErr.msg)
		}
		os.Exit(exitErr.code)
	}

	// Anything cobra itself rejected (unknown flag, wrong arg count) is a
	// usage error.
	fmt.Fprintln(os.Stderr, err)
	os.Exit(lockfile.ExitUsage)
}

// exitError carries an exit code (and optional message) out of a RunE
// handler to Execute.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return fmt.Sprintf("exit code %d", e.code)
}

func usageErrorf(format string, args ...interface{}) error {
	return &exitError{
		code: lockfile.ExitUsage,
		msg:  "lockpid: " + fmt.Sprintf(format, args...),
	}
}
