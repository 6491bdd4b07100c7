package domain

import "context"

type Service interface {
	// Ingest verifies, de-duplicates and dispatches one raw webhook
	// delivery. Signature failures return ErrInvalidSignature; redelivered
	// events that were already handled return ErrEventAlreadyProcessed.
	Ingest(ctx context.Context, payload []byte, signature string) error
}
