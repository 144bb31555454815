package core

import "errors"

// Sentinel errors surfaced by the Planner, ConflictResolver, and the
// ingestion boundary. Callers use errors.Is to discriminate; the Supervisor
// recovers from all of these locally (skip or retry next tick) per the
// error-handling policy.
var (
	// ErrNoPathFound means the goal is unreachable given current walkability
	// plus any transient blocks.
	ErrNoPathFound = errors.New("core: no path found")

	// ErrSearchExhausted means the Planner's expansion cap was hit before a
	// path was found. Treated identically to ErrNoPathFound by callers, but
	// logged at warn level.
	ErrSearchExhausted = errors.New("core: search exhausted")

	// ErrResolutionExhausted means ConflictResolver stopped with conflicts
	// still outstanding, either at its recursion-depth cap or after a pass
	// in which no conflict had a valid scenario.
	ErrResolutionExhausted = errors.New("core: conflict resolution exhausted")

	// ErrMalformedInput means an ingested message failed to parse or did not
	// match the expected schema.
	ErrMalformedInput = errors.New("core: malformed input")

	// ErrUnknownReference means an ingested message named an agent or target
	// the Supervisor does not recognize.
	ErrUnknownReference = errors.New("core: unknown reference")
)
