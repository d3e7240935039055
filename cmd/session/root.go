package session

import (
	"fmt"

	"github.com/jhartmann-dev/dLock/cmd/util"
	"github.com/jhartmann-dev/dLock/lib/db"
	"github.com/jhartmann-dev/dLock/lib/store"
	"github.com/spf13/cobra"
)

var (
	rpcStore store.ICoordinationStore

	ttlSeconds       uint64
	lockDelaySeconds uint64
	behaviorName     string

	// SessionCommands represents the session command group
	SessionCommands = &cobra.Command{
		Use:               "session",
		Short:             "Perform session operations",
		PersistentPreRunE: setupSessionClient,
	}

	// createCmd represents the create command
	createCmd = &cobra.Command{
		Use:   "create",
		Short: "Create an ephemeral session",
		Long:  "Create an ephemeral session with a TTL. Keys acquired under the session are invalidated according to the session behavior when the session is destroyed or its TTL expires.",
		Args:  cobra.NoArgs,
		RunE:  runCreate,
	}

	// destroyCmd represents the destroy command
	destroyCmd = &cobra.Command{
		Use:   "destroy [sessionID]",
		Short: "Destroy a session",
		Long:  "Destroy a session, applying its behavior to all keys it holds.",
		Args:  cobra.ExactArgs(1),
		RunE:  runDestroy,
	}

	// infoCmd represents the info command
	infoCmd = &cobra.Command{
		Use:   "info [sessionID]",
		Short: "Show information about a session",
		Args:  cobra.ExactArgs(1),
		RunE:  runInfo,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add subcommands to session command
	SessionCommands.AddCommand(createCmd)
	SessionCommands.AddCommand(destroyCmd)
	SessionCommands.AddCommand(infoCmd)

	// Add common RPC flags to the session command
	util.SetupRPCClientFlags(SessionCommands)

	// Set default shard ID for session operations
	SessionCommands.PersistentFlags().Int("shard", 100, util.WrapString("ID of the shard to connect to"))

	// Add flags specific to create
	createCmd.Flags().Uint64Var(&ttlSeconds, "ttl", 180, util.WrapString(fmt.Sprintf("Session TTL in seconds (between %d and %d)", store.SessionTTLMinSeconds, store.SessionTTLMaxSeconds)))
	createCmd.Flags().Uint64Var(&lockDelaySeconds, "lock-delay", 0, util.WrapString("Re-acquisition block in seconds applied to the session's keys after a TTL invalidation (only with release behavior)"))
	createCmd.Flags().StringVar(&behaviorName, "behavior", "delete", util.WrapString("What happens to the session's keys on invalidation (delete, release)"))
}

// setupSessionClient initializes the remote coordination store client
func setupSessionClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	rpcStore, err = util.GetStore()
	return err
}

// runCreate handles the session create command
func runCreate(_ *cobra.Command, _ []string) error {
	behavior, ok := db.ParseBehavior(behaviorName)
	if !ok {
		return fmt.Errorf("invalid behavior %s (expected delete or release)", behaviorName)
	}

	sessionID, err := rpcStore.CreateSession(ttlSeconds, lockDelaySeconds, behavior)
	if err != nil {
		return fmt.Errorf("failed to create session: %v", err)
	}

	fmt.Printf("sessionId=%s\n", sessionID)
	return nil
}

// runDestroy handles the session destroy command
func runDestroy(_ *cobra.Command, args []string) error {
	found, err := rpcStore.DestroySession(args[0])
	if err != nil {
		return fmt.Errorf("failed to destroy session: %v", err)
	}

	fmt.Printf("destroyed=%v\n", found)
	return nil
}

// runInfo handles the session info command
func runInfo(_ *cobra.Command, args []string) error {
	session, found, err := rpcStore.GetSession(args[0])
	if err != nil {
		return fmt.Errorf("failed to look up session: %v", err)
	}

	if !found {
		fmt.Printf("sessionId=%s, found=false\n", args[0])
		return nil
	}

	fmt.Printf("sessionId=%s, found=true\n", session.ID)
	fmt.Printf("  ttl:        %d ms\n", session.TTLMillis)
	fmt.Printf("  lock delay: %d ms\n", session.LockDelayMillis)
	fmt.Printf("  behavior:   %s\n", session.Behavior)
	fmt.Printf("  created at: %d\n", session.CreatedAt)
	fmt.Printf("  expires at: %d\n", session.ExpiresAt)
	return nil
}
