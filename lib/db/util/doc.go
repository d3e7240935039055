// Package util provides utility components for
// engine implementations that satisfy the db.SessionKV interface.
//
// The package contains:
//   - deadlineheap: A deadline-ordered priority queue with key-based access, used to track session deadlines
//   - functions: Hash functions and other utility functions
//   - statistics: Tools for analyzing engine characteristics and a SizeHistogram for tracking value size distribution
//
// Each component is engine-agnostic and can be reused by any implementation
// of the db.SessionKV interface.
package util
