package types

import "errors"

// Sentinel errors components branch on with errors.Is. Everything else is
// plain fmt.Errorf("%w", ...) wrapping
// of not introducing a custom error package.
var (
	// ErrSequenceGap means a delta's FromSeq did not chain onto the book's
	// current sequence; the Synchronizer buffers the delta and requests a
	// fresh snapshot. Recoverable.
	ErrSequenceGap = errors.New("orderbook: sequence gap detected")

	// ErrStaleSnapshot means a REST snapshot's sequence was already
	// superseded by buffered deltas by the time it arrived. The
	// Synchronizer discards it and retries. Recoverable.
	ErrStaleSnapshot = errors.New("orderbook: snapshot superseded before install")

	// ErrSnapshotUnavailable means the exchange's snapshot endpoint could
	// not produce a usable book after the configured retry budget.
	// Fatal for that symbol until the next reconciliation attempt.
	ErrSnapshotUnavailable = errors.New("orderbook: snapshot unavailable")

	// ErrSymbolUnknown means an event referenced a symbol not present in
	// the loaded symbol universe.
	ErrSymbolUnknown = errors.New("symbols: unknown symbol")

	// ErrBudgetExceeded means the Gatekeeper rejected a chance because
	// admitting it would exceed the global in-flight notional budget.
	ErrBudgetExceeded = errors.New("gatekeeper: in-flight budget exceeded")

	// ErrCycleInFlight means the Gatekeeper rejected a chance because its
	// cycle already has an unacknowledged order in flight.
	ErrCycleInFlight = errors.New("gatekeeper: cycle already in flight")

	// ErrCycleCooldown means the Gatekeeper rejected a chance because its
	// cycle is still within its post-ack cooldown window.
	ErrCycleCooldown = errors.New("gatekeeper: cycle in cooldown")

	// ErrChanceStale means the chance's top-of-book sequence numbers are
	// older than the freshness window by the time the Gatekeeper evaluated
	// it.
	ErrChanceStale = errors.New("gatekeeper: chance stale")

	// ErrQuiesced means the Gatekeeper is not currently admitting chances
	// (private stream reconnecting, open-orders reconciliation pending).
	ErrQuiesced = errors.New("gatekeeper: quiesced")
)
