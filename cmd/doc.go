// Package cmd implements the command-line interface for the dLock
// distributed lock service. It provides a hierarchical command structure with
// operations for running the server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - lock: Commands for lock operations (acquire, release, run)
//   - session: Commands for session operations (create, destroy, info)
//   - kv: Commands for inspecting the underlying key-value store (acquire, get, has, del)
//   - serve: Commands for starting and configuring the dLock server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dlock -help for a list of all commands.
package cmd
