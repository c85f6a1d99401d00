package settler

import (
	"context"
	"sync"
)

// InMemoryLedgerStore provides an in-memory implementation of LedgerStore.
//
// Suitable for single-instance deployments and tests. For deployments that
// need durable vault state, implement LedgerStore over a shared backend.
type InMemoryLedgerStore struct {
	mu     sync.RWMutex
	vaults map[VaultID]*Vault
}

// NewInMemoryLedgerStore creates an empty in-memory ledger store.
func NewInMemoryLedgerStore() *InMemoryLedgerStore {
	return &InMemoryLedgerStore{
		vaults: make(map[VaultID]*Vault),
	}
}

func (s *InMemoryLedgerStore) Create(_ context.Context, vault *Vault) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.vaults[vault.ID]; exists {
		return NewVaultError(ErrCodeAlreadyInitialized,
			"vault already initialized for this identity",
			map[string]interface{}{"vaultId": string(vault.ID)})
	}
	s.vaults[vault.ID] = vault.Clone()
	return nil
}

func (s *InMemoryLedgerStore) Get(_ context.Context, id VaultID) (*Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vault, exists := s.vaults[id]
	if !exists {
		return nil, NewVaultError(ErrCodeVaultNotFound,
			"no vault for this identity",
			map[string]interface{}{"vaultId": string(id)})
	}
	return vault.Clone(), nil
}

func (s *InMemoryLedgerStore) Update(_ context.Context, vault *Vault) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.vaults[vault.ID]; !exists {
		return NewVaultError(ErrCodeVaultNotFound,
			"no vault for this identity",
			map[string]interface{}{"vaultId": string(vault.ID)})
	}
	s.vaults[vault.ID] = vault.Clone()
	return nil
}

// Ensure InMemoryLedgerStore implements LedgerStore
var _ LedgerStore = (*InMemoryLedgerStore)(nil)
