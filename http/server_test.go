package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	settler "github.com/mandala-foundation/settler/go"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	ledger := settler.NewVaultLedger(
		settler.NewInMemoryLedgerStore(),
		&acceptAllExecutor{},
	)
	return NewServer(settler.NewVaultService(ledger))
}

type acceptAllExecutor struct{}

func (acceptAllExecutor) Transfer(_ context.Context, _ settler.TransferRequest) error { return nil }

func do(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func initVault(t *testing.T, server *Server, owner string) string {
	t.Helper()

	rec := do(t, server, http.MethodPost, "/v1/vaults", map[string]interface{}{
		"owner": owner, "decayRatio": 618, "maxDepth": 4, "feeSink": "fees",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		VaultID string `json:"vaultId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.VaultID)
	return resp.VaultID
}

func TestServer_InitializeVault(t *testing.T) {
	server := newTestServer(t)
	id := initVault(t, server, "owner-1")

	// Re-initializing the same owner conflicts.
	rec := do(t, server, http.MethodPost, "/v1/vaults", map[string]interface{}{
		"owner": "owner-1", "decayRatio": 618, "maxDepth": 4,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, server, http.MethodGet, "/v1/vaults/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var vault settler.Vault
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vault))
	assert.Equal(t, uint64(618), vault.DecayRatio)
	assert.Equal(t, uint64(0), vault.TotalLiquidity)
}

func TestServer_InitializeVault_InvalidRatio(t *testing.T) {
	server := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/v1/vaults", map[string]interface{}{
		"owner": "owner-bad", "decayRatio": 1000, "maxDepth": 4,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SettlementFlow(t *testing.T) {
	server := newTestServer(t)
	id := initVault(t, server, "owner-2")

	rec := do(t, server, http.MethodPost, fmt.Sprintf("/v1/vaults/%s/deposits", id),
		map[string]interface{}{"amount": 1000})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, server, http.MethodPost, fmt.Sprintf("/v1/vaults/%s/settlements", id),
		map[string]interface{}{"amount": 400, "recipient": "merchant", "paymentRef": "pay-http-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var record settler.SettlementRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, uint64(400), record.Amount)
	assert.Equal(t, "pay-http-1", record.PaymentRef)

	// Shortfall maps to 422.
	rec = do(t, server, http.MethodPost, fmt.Sprintf("/v1/vaults/%s/settlements", id),
		map[string]interface{}{"amount": 5000, "recipient": "merchant", "paymentRef": "pay-http-2"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServer_Rebalance(t *testing.T) {
	server := newTestServer(t)
	id := initVault(t, server, "owner-3")

	rec := do(t, server, http.MethodPost, fmt.Sprintf("/v1/vaults/%s/rebalances", id),
		map[string]interface{}{"feeAmount": 1000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Allocations []uint64 `json:"allocations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []uint64{382, 381, 73, 25}, resp.Allocations)
}

func TestServer_UpdateConfig(t *testing.T) {
	server := newTestServer(t)
	id := initVault(t, server, "owner-4")

	rec := do(t, server, http.MethodPut, fmt.Sprintf("/v1/vaults/%s/config", id),
		map[string]interface{}{"caller": "intruder", "newRatio": 500, "newDepth": 2})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, server, http.MethodPut, fmt.Sprintf("/v1/vaults/%s/config", id),
		map[string]interface{}{"caller": "owner-4", "newRatio": 500, "newDepth": 2})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServer_UnknownVault(t *testing.T) {
	server := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/v1/vaults/no-such-vault/deposits",
		map[string]interface{}{"amount": 10})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_LogEmergence(t *testing.T) {
	server := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/v1/emergence",
		map[string]interface{}{"recursionDepth": 3, "noveltyScore": 400})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = do(t, server, http.MethodPost, "/v1/emergence",
		map[string]interface{}{"recursionDepth": -1, "noveltyScore": 400})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Bridge(t *testing.T) {
	server := newTestServer(t)
	id := initVault(t, server, "owner-5")

	rec := do(t, server, http.MethodPost, fmt.Sprintf("/v1/vaults/%s/bridges", id),
		map[string]interface{}{"amount": 10, "targetChain": "solana"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestServer_MalformedBody(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/vaults", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
