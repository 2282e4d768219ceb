// Package dlq dead-letters batches whose durable write exhausted all retry
// attempts. The producer already received its ack by then, so the DLQ is the
// only remaining trace of the data.
package dlq

import (
	"context"
	"time"

	"github.com/commlogs-systems/commlogs-collector/internal/models"
)

// FailedBatch captures a batch that could not be persisted, with enough
// context to replay it later.
type FailedBatch struct {
	BatchID   string          `json:"batch_id"`
	Timestamp time.Time       `json:"timestamp"`
	Records   []models.Record `json:"records"`
	Error     string          `json:"error"`
	Attempts  int             `json:"attempts"`
}

// Writer is the dead-letter sink contract. Implementations must be safe for
// concurrent use by multiple writer workers.
type Writer interface {
	Write(ctx context.Context, batch FailedBatch) error
	Close() error
}
