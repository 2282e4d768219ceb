package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	dlqStreamName = "COMMLOGS_DLQ"
	dlqSubject    = "commlogs.dlq.batch"
)

// JetStreamQueue dead-letters failed batches to NATS JetStream. Safe across
// multiple collector instances sharing one NATS cluster.
type JetStreamQueue struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	written atomic.Uint64
}

// NewJetStreamQueue connects to NATS and ensures the DLQ stream exists.
func NewJetStreamQueue(ctx context.Context, natsURL string) (*JetStreamQueue, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      dlqStreamName,
		Subjects:  []string{"commlogs.dlq.>"},
		MaxAge:    7 * 24 * time.Hour,
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create dlq stream: %w", err)
	}

	return &JetStreamQueue{conn: conn, js: js}, nil
}

// Write publishes one failed batch to the DLQ stream.
func (q *JetStreamQueue) Write(ctx context.Context, batch FailedBatch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal dlq entry: %w", err)
	}

	if _, err := q.js.Publish(ctx, dlqSubject, data); err != nil {
		return fmt.Errorf("publish dlq entry: %w", err)
	}

	q.written.Add(1)
	slog.Warn("dead-lettered batch", "batch_id", batch.BatchID, "subject", dlqSubject, "records", len(batch.Records))
	return nil
}

func (q *JetStreamQueue) Close() error {
	q.conn.Close()
	return nil
}
