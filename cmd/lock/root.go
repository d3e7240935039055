package lock

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/jhartmann-dev/dLock/cmd/util"
	"github.com/jhartmann-dev/dLock/lib/lock"
	"github.com/jhartmann-dev/dLock/lib/store"
	"github.com/spf13/cobra"
)

var (
	rpcStore store.ICoordinationStore

	acquireTimeoutMS   uint64
	lockTimeoutSeconds uint64
	keyPattern         string

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:               "lock",
		Short:             "Perform distributed lock operations",
		PersistentPreRunE: setupLockClient,
	}

	// acquireCmd represents the acquire command
	acquireCmd = &cobra.Command{
		Use:   "acquire [key]",
		Short: "Acquire an ephemeral lock",
		Long:  "Acquire an ephemeral lock on a key. On success the id of the backing session is printed. The lock stays held until the session is destroyed (see 'lock release') or its TTL expires.",
		Args:  cobra.ExactArgs(1),
		RunE:  runAcquire,
	}

	// releaseCmd represents the release command
	releaseCmd = &cobra.Command{
		Use:   "release [sessionID]",
		Short: "Release a previously acquired lock",
		Long:  "Release a lock by destroying its backing session. The session id is the hex string printed by the acquire command.",
		Args:  cobra.ExactArgs(1),
		RunE:  runRelease,
	}

	// runCmd represents the run command
	runCmd = &cobra.Command{
		Use:   "run [key] -- [command...]",
		Short: "Run a command while holding a lock",
		Long:  "Acquire a lock on the key, run the given command, and release the lock when the command exits. The lock is released even if the command fails.",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runWithLock,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add subcommands to lock command
	LockCommands.AddCommand(acquireCmd)
	LockCommands.AddCommand(releaseCmd)
	LockCommands.AddCommand(runCmd)

	// Add common RPC flags to the lock command
	util.SetupRPCClientFlags(LockCommands)

	// Set default shard ID for lock operations
	LockCommands.PersistentFlags().Int("shard", 100, util.WrapString("ID of the shard to connect to"))

	// Add lock specific flags
	LockCommands.PersistentFlags().Uint64Var(&lockTimeoutSeconds, "lock-timeout", lock.DefaultLockTimeoutSeconds, util.WrapString("Session TTL in seconds. The lock is invalidated when the TTL expires without the session being destroyed"))
	LockCommands.PersistentFlags().Uint64Var(&acquireTimeoutMS, "acquire-timeout", 0, util.WrapString("How long to wait for a contended lock in milliseconds (0 means a single attempt)"))
	LockCommands.PersistentFlags().StringVar(&keyPattern, "key-pattern", lock.DefaultKeyPattern, util.WrapString("Pattern used to derive the store key from the lock key, must contain %s"))
}

// setupLockClient initializes the remote coordination store client
func setupLockClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	rpcStore, err = util.GetStore()
	return err
}

// lockConfig builds the lock configuration from the command line flags
func lockConfig() lock.Config {
	return lock.NewConfig(rpcStore).
		WithLockTimeout(lockTimeoutSeconds).
		WithAcquireTimeout(time.Duration(acquireTimeoutMS) * time.Millisecond).
		WithKeyPattern(keyPattern)
}

// runAcquire handles the acquire lock command
func runAcquire(_ *cobra.Command, args []string) error {
	l, err := lock.New(args[0], lockConfig())
	if err != nil {
		return err
	}

	acquired, err := l.Acquire(false)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %v", err)
	}

	if !acquired {
		// The session created for the attempt is no longer needed
		if _, err := l.Release(); err != nil {
			return fmt.Errorf("failed to clean up session: %v", err)
		}
		fmt.Printf("acquired=false\n")
		return nil
	}

	fmt.Printf("acquired=true, key=%s, sessionId=%s\n", l.FullKey(), l.SessionID())
	return nil
}

// runRelease handles the release lock command
func runRelease(_ *cobra.Command, args []string) error {
	found, err := rpcStore.DestroySession(args[0])
	if err != nil {
		return fmt.Errorf("failed to release lock: %v", err)
	}

	fmt.Printf("released=%v\n", found)
	return nil
}

// runWithLock handles the run command
func runWithLock(_ *cobra.Command, args []string) error {
	l, err := lock.New(args[0], lockConfig())
	if err != nil {
		return err
	}

	return l.Hold(func() error {
		subCmd := exec.Command(args[1], args[2:]...)
		subCmd.Stdin = os.Stdin
		subCmd.Stdout = os.Stdout
		subCmd.Stderr = os.Stderr
		return subCmd.Run()
	})
}
