package writer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commlogs-systems/commlogs-collector/internal/dlq"
	"github.com/commlogs-systems/commlogs-collector/internal/logging"
	"github.com/commlogs-systems/commlogs-collector/internal/models"
)

type stubInserter struct {
	mu      sync.Mutex
	calls   int
	failFor int // fail the first N calls
	block   chan struct{}
	batches [][]models.Record
}

func (s *stubInserter) InsertBatch(ctx context.Context, records []models.Record) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failFor {
		return errors.New("insert failed")
	}
	s.batches = append(s.batches, records)
	return nil
}

func (s *stubInserter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubDLQ struct {
	mu      sync.Mutex
	entries []dlq.FailedBatch
	err     error
}

func (s *stubDLQ) Write(ctx context.Context, batch dlq.FailedBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, batch)
	return nil
}

func (s *stubDLQ) Close() error { return nil }

func testRecords(n int) []models.Record {
	records := make([]models.Record, n)
	for i := range records {
		records[i] = models.Record{TS: time.Date(2025, 11, 18, 3, 30, 0, 0, time.UTC), Tags: map[string]any{}}
	}
	return records
}

func collectResults(ch chan Result) Option {
	return WithNotify(func(res Result) { ch <- res })
}

func waitResult(t *testing.T, ch chan Result) Result {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for write result")
		return Result{}
	}
}

func TestWriterPersistsBatch(t *testing.T) {
	store := &stubInserter{}
	results := make(chan Result, 1)

	w := New(store, nil, logging.Default(), Config{Workers: 1}, collectResults(results))
	defer w.Close()

	id, err := w.Enqueue(testRecords(3))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	res := waitResult(t, results)
	assert.Equal(t, id, res.BatchID)
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, 1, res.Attempts)
	assert.NoError(t, res.Err)

	require.Len(t, store.batches, 1)
	assert.Len(t, store.batches[0], 3)
}

func TestWriterEmptyBatchNoOp(t *testing.T) {
	store := &stubInserter{}
	w := New(store, nil, logging.Default(), Config{Workers: 1})
	defer w.Close()

	id, err := w.Enqueue(nil)
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Equal(t, 0, store.callCount())
}

func TestWriterRetriesThenSucceeds(t *testing.T) {
	store := &stubInserter{failFor: 2}
	results := make(chan Result, 1)

	cfg := Config{Workers: 1, MaxAttempts: 3, RetryBackoff: time.Millisecond}
	w := New(store, nil, logging.Default(), cfg, collectResults(results))
	defer w.Close()

	_, err := w.Enqueue(testRecords(1))
	require.NoError(t, err)

	res := waitResult(t, results)
	assert.NoError(t, res.Err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, store.callCount())
}

func TestWriterDeadLettersAfterExhaustedRetries(t *testing.T) {
	store := &stubInserter{failFor: 100}
	dl := &stubDLQ{}
	results := make(chan Result, 1)

	cfg := Config{Workers: 1, MaxAttempts: 2, RetryBackoff: time.Millisecond}
	w := New(store, dl, logging.Default(), cfg, collectResults(results))
	defer w.Close()

	id, err := w.Enqueue(testRecords(4))
	require.NoError(t, err)

	res := waitResult(t, results)
	assert.Error(t, res.Err)
	assert.Equal(t, 2, res.Attempts)

	require.Len(t, dl.entries, 1)
	entry := dl.entries[0]
	assert.Equal(t, id, entry.BatchID)
	assert.Len(t, entry.Records, 4)
	assert.Equal(t, 2, entry.Attempts)
	assert.Contains(t, entry.Error, "insert failed")
}

func TestWriterQueueFull(t *testing.T) {
	block := make(chan struct{})
	store := &stubInserter{block: block}

	// One worker stuck on the blocking insert plus a single queue slot.
	w := New(store, nil, logging.Default(), Config{QueueSize: 1, Workers: 1})
	defer w.Close()

	_, err := w.Enqueue(testRecords(1))
	require.NoError(t, err)

	// Give the worker time to pick up the first batch, then fill the slot.
	require.Eventually(t, func() bool {
		_, err := w.Enqueue(testRecords(1))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	_, err = w.Enqueue(testRecords(1))
	assert.ErrorIs(t, err, ErrBusy)

	close(block)
}

func TestWriterCloseDrainsQueue(t *testing.T) {
	store := &stubInserter{}
	w := New(store, nil, logging.Default(), Config{QueueSize: 10, Workers: 1})

	for i := 0; i < 5; i++ {
		_, err := w.Enqueue(testRecords(1))
		require.NoError(t, err)
	}

	w.Close()

	assert.Equal(t, 5, store.callCount())

	_, err := w.Enqueue(testRecords(1))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWriterCloseIdempotent(t *testing.T) {
	w := New(&stubInserter{}, nil, logging.Default(), Config{Workers: 1})
	w.Close()
	w.Close()
}
