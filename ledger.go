package settler

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MaxConfigDepth is the upper bound on a vault's configured layer depth.
// It keeps the rebalance fan-out (and any tile growth keyed to the same
// bound) small.
const MaxConfigDepth = 16

// defaultSettlementTTL is the deduplication window for retried settlements.
const defaultSettlementTTL = 15 * time.Minute

// VaultLedger is the state machine over vault records. All mutating
// operations against one vault are serialized behind a per-vault lock;
// operations on different vaults proceed in parallel. Every mutation is
// all-or-nothing: a failed call leaves the vault exactly as it was.
type VaultLedger struct {
	store       LedgerStore
	executor    TransferExecutor
	clock       Clock
	sink        EventSink
	settlements *SettlementCache
	logger      zerolog.Logger

	mu    sync.Mutex
	locks map[VaultID]*sync.Mutex

	beforeSettleHooks    []BeforeSettleHook
	afterSettleHooks     []AfterSettleHook
	onSettleFailureHooks []OnSettleFailureHook
	beforeRebalanceHooks []BeforeRebalanceHook
	afterRebalanceHooks  []AfterRebalanceHook
}

// LedgerOption configures the ledger
type LedgerOption func(*VaultLedger)

// WithClock sets the wall-time source
func WithClock(clock Clock) LedgerOption {
	return func(l *VaultLedger) {
		l.clock = clock
	}
}

// WithEventSink sets the event sink for domain events
func WithEventSink(sink EventSink) LedgerOption {
	return func(l *VaultLedger) {
		l.sink = sink
	}
}

// WithLogger sets the ledger logger
func WithLogger(logger zerolog.Logger) LedgerOption {
	return func(l *VaultLedger) {
		l.logger = logger
	}
}

// WithSettlementTTL sets the idempotency window for retried settlements
func WithSettlementTTL(ttl time.Duration) LedgerOption {
	return func(l *VaultLedger) {
		l.settlements = NewSettlementCache(ttl)
	}
}

// NewVaultLedger creates a ledger over the given store and transfer executor.
func NewVaultLedger(store LedgerStore, executor TransferExecutor, opts ...LedgerOption) *VaultLedger {
	l := &VaultLedger{
		store:       store,
		executor:    executor,
		clock:       SystemClock{},
		sink:        NopSink{},
		settlements: NewSettlementCache(defaultSettlementTTL),
		logger:      zerolog.Nop(),
		locks:       make(map[VaultID]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Initialize creates a vault for an owner with zero liquidity. The vault
// identity derives from the owner key, so a second call for the same owner
// fails with already_initialized.
func (l *VaultLedger) Initialize(ctx context.Context, config VaultConfig) (VaultID, error) {
	if config.Owner == "" {
		return "", NewVaultError(ErrCodeInvalidOwner, "owner is required", nil)
	}
	if err := validateDecayConfig(config.DecayRatio, config.MaxDepth); err != nil {
		return "", err
	}

	vault := &Vault{
		ID:            DeriveVaultID(config.Owner),
		Owner:         config.Owner,
		DecayRatio:    config.DecayRatio,
		MaxDepth:      config.MaxDepth,
		FeeSink:       config.FeeSink,
		LastRebalance: l.clock.Now(),
	}

	if err := l.store.Create(ctx, vault); err != nil {
		return "", err
	}

	return vault.ID, nil
}

// Deposit adds liquidity to a vault.
func (l *VaultLedger) Deposit(ctx context.Context, id VaultID, amount uint64) error {
	if amount == 0 {
		return NewVaultError(ErrCodeInvalidAmount, "deposit amount must be positive", nil)
	}

	unlock := l.lockVault(id)
	defer unlock()

	vault, err := l.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if vault.TotalLiquidity > math.MaxUint64-amount {
		return NewVaultError(ErrCodeOverflow, "deposit would exceed liquidity range",
			map[string]interface{}{"totalLiquidity": vault.TotalLiquidity, "amount": amount})
	}

	vault.TotalLiquidity += amount
	if err := l.store.Update(ctx, vault); err != nil {
		return err
	}

	l.publish(ctx, LiquidityEvent{
		VaultID:   id,
		Action:    "add",
		Amount:    amount,
		Timestamp: l.clock.Now(),
	})
	return nil
}

// Settle debits a vault and moves value to the recipient via the transfer
// executor. Settlements are idempotent per paymentRef: a retry with the
// same reference returns the original record without re-applying the
// debit. A settlement exceeding the vault's liquidity is rejected with
// insufficient_liquidity; the executor is never invoked for it.
func (l *VaultLedger) Settle(ctx context.Context, id VaultID, params SettleParams) (*SettlementRecord, error) {
	if params.Amount == 0 {
		return nil, NewVaultError(ErrCodeInvalidAmount, "settlement amount must be positive", nil)
	}
	if params.PaymentRef == "" {
		return nil, NewVaultError(ErrCodeInvalidAmount, "paymentRef is required", nil)
	}
	if params.Recipient == "" {
		return nil, NewVaultError(ErrCodeInvalidAmount, "recipient is required", nil)
	}

	started := l.clock.Now()
	sctx := SettleContext{Ctx: ctx, VaultID: id, Params: params, Timestamp: started}

	for _, hook := range l.beforeSettleHooks {
		result, err := hook(sctx)
		if err != nil {
			return nil, err
		}
		if result != nil && result.Abort {
			return nil, NewVaultError(ErrCodeUnauthorized, result.Reason, nil)
		}
	}

	key := GenerateSettlementKey(id, params.PaymentRef)

	var done chan struct{}
	for {
		status, cached, ch := l.settlements.CheckAndMark(key)
		if status == StatusCached {
			return cached, nil
		}
		if status == StatusInFlight {
			record, err := l.settlements.WaitForResult(ctx, key, ch)
			if err != nil {
				return nil, err
			}
			if record != nil {
				return record, nil
			}
			// In-flight attempt failed; retry with our own marker.
			continue
		}
		done = ch
		break
	}

	record, err := l.applySettlement(ctx, id, params, key, done)
	if err != nil {
		failure := SettleFailureContext{SettleContext: sctx, Error: err, Duration: time.Since(started)}
		for _, hook := range l.onSettleFailureHooks {
			result, hookErr := hook(failure)
			if hookErr != nil {
				l.logger.Warn().Err(hookErr).Msg("settle failure hook error")
				continue
			}
			if result != nil && result.Recovered {
				return result.Record, nil
			}
		}
		return nil, err
	}

	resultCtx := SettleResultContext{SettleContext: sctx, Record: record, Duration: time.Since(started)}
	for _, hook := range l.afterSettleHooks {
		if hookErr := hook(resultCtx); hookErr != nil {
			l.logger.Warn().Err(hookErr).Msg("after settle hook error")
		}
	}

	return record, nil
}

// applySettlement performs the serialized debit. The caller holds the
// in-flight idempotency marker; this function releases it via Complete or
// Fail on every path.
func (l *VaultLedger) applySettlement(ctx context.Context, id VaultID, params SettleParams, key string, done chan struct{}) (*SettlementRecord, error) {
	unlock := l.lockVault(id)
	defer unlock()

	vault, err := l.store.Get(ctx, id)
	if err != nil {
		l.settlements.Fail(key, done)
		return nil, err
	}

	if params.Amount > vault.TotalLiquidity {
		l.settlements.Fail(key, done)
		return nil, NewVaultError(ErrCodeInsufficientLiquidity,
			fmt.Sprintf("settlement of %d exceeds liquidity %d", params.Amount, vault.TotalLiquidity),
			map[string]interface{}{"amount": params.Amount, "totalLiquidity": vault.TotalLiquidity})
	}

	// The executor call is the only suspension point; bound it by the
	// caller-supplied timeout so a hung transfer cannot wedge the vault.
	transferCtx := ctx
	if params.Timeout > 0 {
		var cancel context.CancelFunc
		transferCtx, cancel = context.WithTimeout(ctx, params.Timeout)
		defer cancel()
	}

	transferErr := l.executor.Transfer(transferCtx, TransferRequest{
		VaultID:    id,
		Recipient:  params.Recipient,
		Amount:     params.Amount,
		PaymentRef: params.PaymentRef,
		Memo:       params.Memo,
	})
	if transferErr != nil {
		l.settlements.Fail(key, done)
		return nil, NewVaultError(ErrCodeExecutorFailure, "transfer executor failed",
			map[string]interface{}{"cause": transferErr.Error()})
	}

	vault.TotalLiquidity -= params.Amount
	vault.SettlementCount++

	if err := l.store.Update(ctx, vault); err != nil {
		l.settlements.Fail(key, done)
		return nil, err
	}

	record := &SettlementRecord{
		VaultID:    id,
		Amount:     params.Amount,
		Recipient:  params.Recipient,
		PaymentRef: params.PaymentRef,
		Memo:       params.Memo,
		Depth:      vault.MaxDepth,
		Timestamp:  l.clock.Now(),
	}

	l.settlements.Complete(key, record, done)

	l.publish(ctx, SettlementEvent{
		VaultID:    record.VaultID,
		Amount:     record.Amount,
		Recipient:  record.Recipient,
		PaymentRef: record.PaymentRef,
		Memo:       record.Memo,
		Depth:      record.Depth,
		Timestamp:  record.Timestamp,
	})

	return record, nil
}

// Rebalance computes the layer allocations for a fee amount using the
// vault's decay ratio and depth, and stamps the rebalance time. Fund
// movement per layer is an external collaborator concern; this core emits
// the allocations for it.
func (l *VaultLedger) Rebalance(ctx context.Context, id VaultID, feeAmount uint64) ([]uint64, error) {
	if feeAmount == 0 {
		return nil, NewVaultError(ErrCodeInvalidAmount, "fee amount must be positive", nil)
	}

	started := l.clock.Now()
	rctx := RebalanceContext{Ctx: ctx, VaultID: id, FeeAmount: feeAmount, Timestamp: started}

	for _, hook := range l.beforeRebalanceHooks {
		result, err := hook(rctx)
		if err != nil {
			return nil, err
		}
		if result != nil && result.Abort {
			return nil, NewVaultError(ErrCodeUnauthorized, result.Reason, nil)
		}
	}

	unlock := l.lockVault(id)
	defer unlock()

	vault, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	allocations, err := Distribute(feeAmount, vault.DecayRatio, vault.MaxDepth)
	if err != nil {
		return nil, err
	}

	vault.LastRebalance = l.clock.Now()
	if err := l.store.Update(ctx, vault); err != nil {
		return nil, err
	}

	l.publish(ctx, RebalanceEvent{
		VaultID:     id,
		FeeAmount:   feeAmount,
		Allocations: allocations,
		DecayRatio:  vault.DecayRatio,
		Depth:       vault.MaxDepth,
		Timestamp:   vault.LastRebalance,
	})

	resultCtx := RebalanceResultContext{RebalanceContext: rctx, Allocations: allocations, Duration: time.Since(started)}
	for _, hook := range l.afterRebalanceHooks {
		if hookErr := hook(resultCtx); hookErr != nil {
			l.logger.Warn().Err(hookErr).Msg("after rebalance hook error")
		}
	}

	return allocations, nil
}

// UpdateConfig replaces a vault's decay ratio and depth. Only the vault
// owner may reconfigure it.
func (l *VaultLedger) UpdateConfig(ctx context.Context, id VaultID, caller string, newRatio uint64, newDepth int) error {
	if err := validateDecayConfig(newRatio, newDepth); err != nil {
		return err
	}

	unlock := l.lockVault(id)
	defer unlock()

	vault, err := l.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if caller != vault.Owner {
		return NewVaultError(ErrCodeUnauthorized, "caller is not the vault owner",
			map[string]interface{}{"caller": caller})
	}

	vault.DecayRatio = newRatio
	vault.MaxDepth = newDepth
	return l.store.Update(ctx, vault)
}

// Vault returns a copy of the current vault state.
func (l *VaultLedger) Vault(ctx context.Context, id VaultID) (*Vault, error) {
	return l.store.Get(ctx, id)
}

// lockVault serializes mutations for one vault identity.
func (l *VaultLedger) lockVault(id VaultID) func() {
	l.mu.Lock()
	lock, exists := l.locks[id]
	if !exists {
		lock = &sync.Mutex{}
		l.locks[id] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// publish sends an event to the sink without blocking the operation.
// Publication failures are logged, never surfaced.
func (l *VaultLedger) publish(ctx context.Context, event Event) {
	pctx := context.WithoutCancel(ctx)
	go func() {
		if err := l.sink.Publish(pctx, event); err != nil {
			l.logger.Warn().Str("event", event.Kind()).Err(err).Msg("event publish failed")
		}
	}()
}

func validateDecayConfig(ratioPerMille uint64, depth int) error {
	if ratioPerMille == 0 || ratioPerMille >= RatioScale {
		return NewVaultError(ErrCodeInvalidRatio,
			fmt.Sprintf("decay ratio must be in (0,%d) per-mille, got %d", RatioScale, ratioPerMille), nil)
	}
	if depth <= 0 || depth > MaxConfigDepth {
		return NewVaultError(ErrCodeInvalidDepth,
			fmt.Sprintf("depth must be in [1,%d], got %d", MaxConfigDepth, depth), nil)
	}
	return nil
}
