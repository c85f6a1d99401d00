package settler

import (
	"time"

	"github.com/google/uuid"
)

// VaultID identifies a single vault. IDs are derived deterministically from
// the owner key, so one owner maps to exactly one vault.
type VaultID string

// vaultNamespace seeds the deterministic owner -> VaultID derivation.
var vaultNamespace = uuid.MustParse("7e55e1e0-6a1d-5b3e-9c44-1b2a0f8d4c70")

// DeriveVaultID computes the VaultID for an owner key.
func DeriveVaultID(owner string) VaultID {
	return VaultID(uuid.NewSHA1(vaultNamespace, []byte(owner)).String())
}

// Vault is the singleton ledger record tracking pooled liquidity for one pool.
type Vault struct {
	ID              VaultID   `json:"id"`
	Owner           string    `json:"owner"`
	DecayRatio      uint64    `json:"decayRatio"` // per-mille, e.g. 618 = 0.618
	MaxDepth        int       `json:"maxDepth"`
	TotalLiquidity  uint64    `json:"totalLiquidity"`
	SettlementCount uint64    `json:"settlementCount"`
	LastRebalance   time.Time `json:"lastRebalance"`
	FeeSink         string    `json:"feeSink"`
}

// Clone returns a copy so callers can hand vaults across the store boundary
// without aliasing ledger-internal state.
func (v *Vault) Clone() *Vault {
	c := *v
	return &c
}

// SettlementRecord is the result of a single settlement. It is emitted to
// the event sink and returned to the caller; the vault never stores it.
type SettlementRecord struct {
	VaultID    VaultID   `json:"vaultId"`
	Amount     uint64    `json:"amount"`
	Recipient  string    `json:"recipient"`
	PaymentRef string    `json:"paymentRef"`
	Memo       string    `json:"memo,omitempty"`
	Depth      int       `json:"depth"`
	Timestamp  time.Time `json:"timestamp"`
}

// SettleParams carries the caller-supplied inputs for a settlement.
type SettleParams struct {
	Amount     uint64
	Recipient  string
	PaymentRef string
	Memo       string

	// Timeout bounds the transfer executor call. Zero means no bound
	// beyond the caller's context.
	Timeout time.Duration
}

// VaultConfig carries the inputs for vault initialization.
type VaultConfig struct {
	Owner      string `json:"owner"`
	DecayRatio uint64 `json:"decayRatio"` // per-mille
	MaxDepth   int    `json:"maxDepth"`
	FeeSink    string `json:"feeSink"`
}

// TransferRequest describes one value movement performed by the executor on
// the ledger's behalf.
type TransferRequest struct {
	VaultID    VaultID `json:"vaultId"`
	Recipient  string  `json:"recipient"`
	Amount     uint64  `json:"amount"`
	PaymentRef string  `json:"paymentRef"`
	Memo       string  `json:"memo,omitempty"`
}
