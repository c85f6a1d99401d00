package settler

import (
	"context"

	"github.com/rs/zerolog"
)

// LoggingExecutor acknowledges transfers without moving value, logging each
// request. It stands in for a real executor in single-process deployments
// and tests; production wires a TransferExecutor backed by an actual
// payment rail.
type LoggingExecutor struct {
	logger zerolog.Logger
}

// NewLoggingExecutor creates an executor that logs and succeeds.
func NewLoggingExecutor(logger zerolog.Logger) *LoggingExecutor {
	return &LoggingExecutor{logger: logger}
}

func (e *LoggingExecutor) Transfer(ctx context.Context, req TransferRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.logger.Info().
		Str("vaultId", string(req.VaultID)).
		Str("recipient", req.Recipient).
		Uint64("amount", req.Amount).
		Str("paymentRef", req.PaymentRef).
		Msg("transfer executed")
	return nil
}

var _ TransferExecutor = (*LoggingExecutor)(nil)
