package engine

import "errors"

var (
	// ErrNoCapability rejects a withdrawal by an owner holding no supplier
	// capability for the pool. A position cannot be created by withdrawing.
	ErrNoCapability = errors.New("engine: no supplier capability for pool")

	// ErrExecutionFailed is the generic fallback when the ledger reports a
	// failed execution without a reason string.
	ErrExecutionFailed = errors.New("engine: transaction failed")
)
