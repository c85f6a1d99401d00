package settler

import "fmt"

// VaultError represents a vault-specific error
type VaultError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *VaultError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeInvalidRatio          = "invalid_ratio"
	ErrCodeInvalidDepth          = "invalid_depth"
	ErrCodeInvalidAmount         = "invalid_amount"
	ErrCodeInvalidOwner          = "invalid_owner"
	ErrCodeAlreadyInitialized    = "already_initialized"
	ErrCodeVaultNotFound         = "vault_not_found"
	ErrCodeInsufficientLiquidity = "insufficient_liquidity"
	ErrCodeUnauthorized          = "unauthorized"
	ErrCodeExecutorFailure       = "executor_failure"
	ErrCodeOverflow              = "overflow"
	ErrCodeManifoldOverflow      = "manifold_overflow"
)

// NewVaultError creates a new vault error
func NewVaultError(code, message string, details map[string]interface{}) *VaultError {
	return &VaultError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// ErrorCode extracts the code from an error, or "" if the error is not a
// *VaultError. Callers use it to branch on the taxonomy without type
// assertions at every call site.
func ErrorCode(err error) string {
	if ve, ok := err.(*VaultError); ok {
		return ve.Code
	}
	return ""
}
