package kv

import (
	"fmt"

	"github.com/jhartmann-dev/dLock/lib/store"
	"github.com/spf13/cobra"
)

var (
	acquireSessionID string

	acquireCmd = &cobra.Command{
		Use:   "acquire [key] [value]",
		Short: "Acquires a key for a session",
		Long:  "Acquires a key for a session, storing the value. The acquisition fails without an error if another session already holds the key.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			result, err := rpcStore.AcquireKey(key, []byte(value), acquireSessionID)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, acquired=%v\n", key, result == store.AcquireResultAcquired)
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if resp, ok, err := rpcStore.GetKey(key); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%v, resp=%s\n", key, ok, resp)
			}
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if found, err := rpcStore.HasKey(key); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%t\n", key, found)
			}
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Long:  "Deletes a key value pair regardless of any session holding the key. The holding session stays alive.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := rpcStore.DeleteKey(key); err != nil {
				return err
			} else {
				fmt.Println("delete successfully")
			}
			return nil
		},
	}
)

func init() {
	acquireCmd.Flags().StringVar(&acquireSessionID, "session", "", "ID of the session that should hold the key (required)")
	_ = acquireCmd.MarkFlagRequired("session")
}
