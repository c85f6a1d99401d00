package settler

import (
	"context"

	"github.com/rs/zerolog"
)

// VaultService is the external boundary over the ledger and distributor.
// It validates boundary inputs, forwards to the ledger and translates
// nothing else; it has no state of its own.
type VaultService struct {
	ledger *VaultLedger
	clock  Clock
	sink   EventSink
	logger zerolog.Logger
}

// ServiceOption configures the service
type ServiceOption func(*VaultService)

// WithServiceClock sets the wall-time source for telemetry timestamps
func WithServiceClock(clock Clock) ServiceOption {
	return func(s *VaultService) {
		s.clock = clock
	}
}

// WithServiceSink sets the sink for telemetry passthrough events
func WithServiceSink(sink EventSink) ServiceOption {
	return func(s *VaultService) {
		s.sink = sink
	}
}

// WithServiceLogger sets the service logger
func WithServiceLogger(logger zerolog.Logger) ServiceOption {
	return func(s *VaultService) {
		s.logger = logger
	}
}

// NewVaultService creates the boundary service over a ledger.
func NewVaultService(ledger *VaultLedger, opts ...ServiceOption) *VaultService {
	s := &VaultService{
		ledger: ledger,
		clock:  SystemClock{},
		sink:   NopSink{},
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// InitializeVault creates a vault. Re-initializing an existing owner fails
// with already_initialized.
func (s *VaultService) InitializeVault(ctx context.Context, config VaultConfig) (VaultID, error) {
	return s.ledger.Initialize(ctx, config)
}

// SettleMicropayment settles one micropayment against the vault's pooled
// liquidity. The paymentRef is the idempotency key.
func (s *VaultService) SettleMicropayment(ctx context.Context, id VaultID, params SettleParams) (*SettlementRecord, error) {
	return s.ledger.Settle(ctx, id, params)
}

// AddLiquidity deposits into the vault's pool.
func (s *VaultService) AddLiquidity(ctx context.Context, id VaultID, amount uint64) error {
	return s.ledger.Deposit(ctx, id, amount)
}

// RebalanceMandala distributes a fee amount across the vault's decay layers
// and returns the allocation sequence.
func (s *VaultService) RebalanceMandala(ctx context.Context, id VaultID, feeAmount uint64) ([]uint64, error) {
	return s.ledger.Rebalance(ctx, id, feeAmount)
}

// UpdateVaultConfig replaces the vault's decay ratio and depth. The caller
// must be the vault owner.
func (s *VaultService) UpdateVaultConfig(ctx context.Context, id VaultID, caller string, newRatio uint64, newDepth int) error {
	return s.ledger.UpdateConfig(ctx, id, caller, newRatio, newDepth)
}

// GetVault returns a copy of the vault state.
func (s *VaultService) GetVault(ctx context.Context, id VaultID) (*Vault, error) {
	return s.ledger.Vault(ctx, id)
}

// LogEmergence is a pure telemetry passthrough: it publishes an emergence
// event for off-process scorers and touches no ledger state.
func (s *VaultService) LogEmergence(ctx context.Context, recursionDepth int, noveltyScore uint64) error {
	if recursionDepth < 0 {
		return NewVaultError(ErrCodeInvalidDepth, "recursion depth must be non-negative", nil)
	}

	s.publish(ctx, EmergenceEvent{
		RecursionDepth: recursionDepth,
		NoveltyScore:   noveltyScore,
		Timestamp:      s.clock.Now(),
	})
	return nil
}

// InitiateBridge announces a cross-chain movement intent. No funds move in
// this core; the event is consumed by an external bridge collaborator.
func (s *VaultService) InitiateBridge(ctx context.Context, id VaultID, amount uint64, targetChain string) error {
	if amount == 0 {
		return NewVaultError(ErrCodeInvalidAmount, "bridge amount must be positive", nil)
	}
	if targetChain == "" {
		return NewVaultError(ErrCodeInvalidAmount, "target chain is required", nil)
	}

	s.publish(ctx, BridgeEvent{
		VaultID:     id,
		Amount:      amount,
		TargetChain: targetChain,
		Timestamp:   s.clock.Now(),
	})
	return nil
}

func (s *VaultService) publish(ctx context.Context, event Event) {
	pctx := context.WithoutCancel(ctx)
	go func() {
		if err := s.sink.Publish(pctx, event); err != nil {
			s.logger.Warn().Str("event", event.Kind()).Err(err).Msg("event publish failed")
		}
	}()
}
