package settler

import "time"

// Event kinds as they appear on the wire.
const (
	EventKindLiquidity  = "liquidity"
	EventKindSettlement = "settlement"
	EventKindRebalance  = "rebalance"
	EventKindEmergence  = "emergence"
	EventKindBridge     = "bridge"
)

// Event is a domain event published to the event sink. The sink is
// append-only; the core never reads events back.
type Event interface {
	Kind() string
}

// LiquidityEvent records a liquidity change on a vault.
type LiquidityEvent struct {
	VaultID   VaultID   `json:"vaultId"`
	Action    string    `json:"action"` // "add"
	Amount    uint64    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

func (LiquidityEvent) Kind() string { return EventKindLiquidity }

// SettlementEvent records a completed settlement.
type SettlementEvent struct {
	VaultID    VaultID   `json:"vaultId"`
	Amount     uint64    `json:"amount"`
	Recipient  string    `json:"recipient"`
	PaymentRef string    `json:"paymentRef"`
	Memo       string    `json:"memo,omitempty"`
	Depth      int       `json:"depth"`
	Timestamp  time.Time `json:"timestamp"`
}

func (SettlementEvent) Kind() string { return EventKindSettlement }

// RebalanceEvent records the layer allocations of one rebalance pass.
type RebalanceEvent struct {
	VaultID     VaultID   `json:"vaultId"`
	FeeAmount   uint64    `json:"feeAmount"`
	Allocations []uint64  `json:"allocations"`
	DecayRatio  uint64    `json:"decayRatio"`
	Depth       int       `json:"depth"`
	Timestamp   time.Time `json:"timestamp"`
}

func (RebalanceEvent) Kind() string { return EventKindRebalance }

// EmergenceEvent is pure telemetry passed through from off-process scorers.
type EmergenceEvent struct {
	RecursionDepth int       `json:"recursionDepth"`
	NoveltyScore   uint64    `json:"noveltyScore"`
	Timestamp      time.Time `json:"timestamp"`
}

func (EmergenceEvent) Kind() string { return EventKindEmergence }

// BridgeEvent announces an intent to move value to another chain. No funds
// move in this core; an external bridge collaborator consumes the event.
type BridgeEvent struct {
	VaultID     VaultID   `json:"vaultId"`
	Amount      uint64    `json:"amount"`
	TargetChain string    `json:"targetChain"`
	Timestamp   time.Time `json:"timestamp"`
}

func (BridgeEvent) Kind() string { return EventKindBridge }
