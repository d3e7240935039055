package lock

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jhartmann-dev/dLock/lib/store"
)

const (
	// DefaultKeyPattern is the pattern the logical key is substituted into to
	// form the full store key. The prefix keeps lock keys grouped together in
	// the store's key space.
	DefaultKeyPattern = "locks/ephemeral/%s"

	// DefaultLockTimeoutSeconds is the session TTL used when no explicit lock
	// timeout is configured.
	DefaultLockTimeoutSeconds = 3 * 60
)

// ValueGenerator produces the payload written to the lock key. The payload is
// never used for correctness, only for observability of who locked a key and
// when.
type ValueGenerator func() []byte

// DefaultValueGenerator is the default payload: a small JSON document
// recording the acquisition timestamp.
func DefaultValueGenerator() []byte {
	payload := struct {
		LockedAt string `json:"locked_at"`
	}{LockedAt: time.Now().Format(time.RFC3339Nano)}

	b, _ := json.Marshal(payload)
	return b
}

// Config carries everything an EphemeralLock needs besides its key. A Config
// is an immutable value: the With* methods return modified copies and the
// original is never changed, so a single Config can safely be shared across
// goroutines and lock instances.
//
// Construct one with NewConfig and adjust it via the With* methods:
//
//	cfg := lock.NewConfig(st).
//		WithAcquireTimeout(5 * time.Second).
//		WithLockTimeout(30)
type Config struct {
	store              store.ICoordinationStore
	acquireTimeout     time.Duration
	lockTimeoutSeconds uint64
	keyPattern         string
	generateValue      ValueGenerator
	clock              Clock
}

// NewConfig creates a Config with the given store backend and all other
// fields set to their defaults: no acquire waiting (one attempt), a session
// TTL of DefaultLockTimeoutSeconds, DefaultKeyPattern and the JSON timestamp
// payload.
func NewConfig(st store.ICoordinationStore) Config {
	return Config{
		store:              st,
		acquireTimeout:     0,
		lockTimeoutSeconds: DefaultLockTimeoutSeconds,
		keyPattern:         DefaultKeyPattern,
		generateValue:      DefaultValueGenerator,
		clock:              realClock{},
	}
}

// WithAcquireTimeout returns a copy of the Config with the given acquire
// timeout. The timeout bounds how long Acquire blocks waiting for a held
// lock; zero means a single attempt without waiting.
func (c Config) WithAcquireTimeout(d time.Duration) Config {
	c.acquireTimeout = d
	return c
}

// WithLockTimeout returns a copy of the Config with the given session TTL in
// seconds. The TTL bounds how long an unreleased lock stays alive and must
// lie within the store's session TTL range.
func (c Config) WithLockTimeout(seconds uint64) Config {
	c.lockTimeoutSeconds = seconds
	return c
}

// WithKeyPattern returns a copy of the Config with the given key pattern.
// The pattern must contain exactly one %s verb for the logical key.
func (c Config) WithKeyPattern(pattern string) Config {
	c.keyPattern = pattern
	return c
}

// WithValueGenerator returns a copy of the Config with the given payload
// generator.
func (c Config) WithValueGenerator(fn ValueGenerator) Config {
	c.generateValue = fn
	return c
}

// WithClock returns a copy of the Config with the given Clock. Intended for
// tests that need deterministic backoff timing.
func (c Config) WithClock(clk Clock) Config {
	c.clock = clk
	return c
}

// validate checks the Config for use by a lock instance. All violations are
// reported as ErrConfiguration.
func (c Config) validate() error {
	if c.store == nil {
		return fmt.Errorf("%w: a store is required for locking", ErrConfiguration)
	}
	if c.keyPattern == "" || !strings.Contains(c.keyPattern, "%s") {
		return fmt.Errorf("%w: key pattern %q must contain a %%s verb", ErrConfiguration, c.keyPattern)
	}
	if c.generateValue == nil {
		return fmt.Errorf("%w: a value generator is required", ErrConfiguration)
	}
	if c.clock == nil {
		return fmt.Errorf("%w: a clock is required", ErrConfiguration)
	}
	if err := store.ValidateSessionTTL(c.lockTimeoutSeconds); err != nil {
		return fmt.Errorf("%w: lock timeout must be between %d and %d seconds, got %d",
			ErrConfiguration, store.SessionTTLMinSeconds, store.SessionTTLMaxSeconds, c.lockTimeoutSeconds)
	}
	return nil
}

// --------------------------------------------------------------------------
// Process-wide default configuration
// --------------------------------------------------------------------------

var (
	defaultsMu sync.RWMutex
	defaults   *Config
)

// SetDefaults installs a process-wide default Config used by NewFromDefaults.
// This is a convenience for applications that create locks in many places and
// do not want to thread a Config through all of them; passing an explicit
// Config to New is the primary API.
func SetDefaults(cfg Config) {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	defaults = &cfg
}

// NewFromDefaults creates an EphemeralLock from the process-wide default
// Config. It returns ErrConfiguration if SetDefaults was never called.
func NewFromDefaults(key string) (*EphemeralLock, error) {
	defaultsMu.RLock()
	cfg := defaults
	defaultsMu.RUnlock()

	if cfg == nil {
		return nil, fmt.Errorf("%w: no process-wide default configuration set", ErrConfiguration)
	}
	return New(key, *cfg)
}
