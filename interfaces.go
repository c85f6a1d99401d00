package settler

import (
	"context"
	"time"
)

// LedgerStore persists vault state. The ledger serializes writers per vault,
// so implementations only need to be safe for concurrent use across vaults.
type LedgerStore interface {
	// Create stores a new vault. Returns a vault error with code
	// already_initialized when the identity already exists.
	Create(ctx context.Context, vault *Vault) error

	// Get returns the vault for an identity, or vault_not_found.
	Get(ctx context.Context, id VaultID) (*Vault, error)

	// Update replaces the stored vault. Returns vault_not_found when the
	// identity does not exist. Updates are atomic per vault.
	Update(ctx context.Context, vault *Vault) error
}

// TransferExecutor moves value out of ledger-controlled funds. It either
// completes the transfer or fails atomically; a failed call must not move
// value. The ledger bounds the call with the caller-supplied timeout.
type TransferExecutor interface {
	Transfer(ctx context.Context, req TransferRequest) error
}

// Clock is the ledger's wall-time source, injectable for tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// EventSink is the append-only notification channel for off-process
// observers. Publish failures are logged by the caller and never surfaced
// to the originating operation.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Publish(context.Context, Event) error { return nil }
