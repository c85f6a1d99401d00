// Package settler implements a recursive settlement vault: an accounting
// engine that pools liquidity, settles micropayments against the pool with
// per-reference idempotency, and redistributes fees across geometrically
// decaying layers.
//
// The package is transport-agnostic. External collaborators plug in through
// the LedgerStore, TransferExecutor, Clock and EventSink interfaces; the
// http subpackage exposes the boundary operations over JSON, and the
// manifold subpackage grows the bounded recursive tile trees used for
// telemetry scoring.
package settler
