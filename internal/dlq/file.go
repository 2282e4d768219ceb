package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileQueue writes failed batches to disk, one JSON file per batch. Single
// instance only; use the JetStream backend when running multiple collectors.
type FileQueue struct {
	basePath string
	mu       sync.Mutex
	written  uint64
}

// NewFileQueue creates a DLQ rooted at basePath, creating the directory if
// needed.
func NewFileQueue(basePath string) (*FileQueue, error) {
	if basePath == "" {
		basePath = "/var/lib/commlogs/dlq"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create dlq directory: %w", err)
	}
	return &FileQueue{basePath: basePath}, nil
}

// Write persists one failed batch as failed_<unix>_<seq>.json.
func (q *FileQueue) Write(ctx context.Context, batch FailedBatch) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	filename := fmt.Sprintf("failed_%d_%d.json", time.Now().Unix(), q.written)
	path := filepath.Join(q.basePath, filename)

	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dlq entry: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write dlq entry: %w", err)
	}

	q.written++
	slog.Warn("dead-lettered batch", "batch_id", batch.BatchID, "file", filename, "records", len(batch.Records))
	return nil
}

// List returns up to limit dead-lettered batches, oldest files first.
func (q *FileQueue) List(ctx context.Context, limit int) ([]FailedBatch, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	files, err := os.ReadDir(q.basePath)
	if err != nil {
		return nil, fmt.Errorf("read dlq directory: %w", err)
	}

	var batches []FailedBatch
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if limit > 0 && len(batches) >= limit {
			break
		}
		data, err := os.ReadFile(filepath.Join(q.basePath, file.Name()))
		if err != nil {
			slog.Error("failed to read dlq file", "file", file.Name(), "error", err)
			continue
		}
		var batch FailedBatch
		if err := json.Unmarshal(data, &batch); err != nil {
			slog.Error("failed to parse dlq file", "file", file.Name(), "error", err)
			continue
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

func (q *FileQueue) Close() error { return nil }
