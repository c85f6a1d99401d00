package settler

import (
	"context"
	"time"
)

// ============================================================================
// Ledger Hook Context Types
// ============================================================================

// SettleContext contains information passed to settle hooks
type SettleContext struct {
	Ctx       context.Context
	VaultID   VaultID
	Params    SettleParams
	Timestamp time.Time
}

// SettleResultContext contains settle operation result and context
type SettleResultContext struct {
	SettleContext
	Record   *SettlementRecord
	Duration time.Duration
}

// SettleFailureContext contains settle operation failure and context
type SettleFailureContext struct {
	SettleContext
	Error    error
	Duration time.Duration
}

// RebalanceContext contains information passed to rebalance hooks
type RebalanceContext struct {
	Ctx       context.Context
	VaultID   VaultID
	FeeAmount uint64
	Timestamp time.Time
}

// RebalanceResultContext contains rebalance result and context
type RebalanceResultContext struct {
	RebalanceContext
	Allocations []uint64
	Duration    time.Duration
}

// ============================================================================
// Ledger Hook Result Types
// ============================================================================

// BeforeHookResult represents the result of a "before" hook
// If Abort is true, the operation will be aborted with the given Reason
type BeforeHookResult struct {
	Abort  bool
	Reason string
}

// SettleFailureHookResult represents the result of a settle failure hook
// If Recovered is true, the hook has recovered from the failure with the
// given record
type SettleFailureHookResult struct {
	Recovered bool
	Record    *SettlementRecord
}

// ============================================================================
// Ledger Hook Function Types
// ============================================================================

// BeforeSettleHook is called before the liquidity check and transfer.
// If it returns a result with Abort=true, settlement is rejected with an
// unauthorized error carrying the provided reason and no state changes.
type BeforeSettleHook func(SettleContext) (*BeforeHookResult, error)

// AfterSettleHook is called after a settlement has been applied.
// Any error returned is logged but does not affect the settlement result.
type AfterSettleHook func(SettleResultContext) error

// OnSettleFailureHook is called when settlement fails.
// If it returns a result with Recovered=true, the provided record is
// returned instead of the error. The ledger state is NOT mutated on
// recovery; the hook vouches for the settlement having been applied
// elsewhere.
type OnSettleFailureHook func(SettleFailureContext) (*SettleFailureHookResult, error)

// BeforeRebalanceHook is called before the layer distribution is computed.
// If it returns a result with Abort=true, the rebalance is rejected.
type BeforeRebalanceHook func(RebalanceContext) (*BeforeHookResult, error)

// AfterRebalanceHook is called after a successful rebalance.
// Any error returned is logged but does not affect the rebalance result.
type AfterRebalanceHook func(RebalanceResultContext) error

// ============================================================================
// Ledger Hook Registration Options
// ============================================================================

// WithBeforeSettleHook registers a hook to execute before settlement
func WithBeforeSettleHook(hook BeforeSettleHook) LedgerOption {
	return func(l *VaultLedger) {
		l.beforeSettleHooks = append(l.beforeSettleHooks, hook)
	}
}

// WithAfterSettleHook registers a hook to execute after successful settlement
func WithAfterSettleHook(hook AfterSettleHook) LedgerOption {
	return func(l *VaultLedger) {
		l.afterSettleHooks = append(l.afterSettleHooks, hook)
	}
}

// WithOnSettleFailureHook registers a hook to execute when settlement fails
func WithOnSettleFailureHook(hook OnSettleFailureHook) LedgerOption {
	return func(l *VaultLedger) {
		l.onSettleFailureHooks = append(l.onSettleFailureHooks, hook)
	}
}

// WithBeforeRebalanceHook registers a hook to execute before a rebalance
func WithBeforeRebalanceHook(hook BeforeRebalanceHook) LedgerOption {
	return func(l *VaultLedger) {
		l.beforeRebalanceHooks = append(l.beforeRebalanceHooks, hook)
	}
}

// WithAfterRebalanceHook registers a hook to execute after a successful rebalance
func WithAfterRebalanceHook(hook AfterRebalanceHook) LedgerOption {
	return func(l *VaultLedger) {
		l.afterRebalanceHooks = append(l.afterRebalanceHooks, hook)
	}
}
