// Package writer is the asynchronous persistence engine. Admitted batches are
// queued here and written to the store outside the request/response path: the
// caller is acked before durability, and a batch that ultimately cannot be
// written is retried, then dead-lettered; it is never silently dropped and
// never retro-reported to the producer.
package writer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/commlogs-systems/commlogs-collector/internal/dlq"
	"github.com/commlogs-systems/commlogs-collector/internal/logging"
	"github.com/commlogs-systems/commlogs-collector/internal/metrics"
	"github.com/commlogs-systems/commlogs-collector/internal/models"
)

var (
	// ErrBusy means the bounded queue is full. Callers see this before the
	// ack, so an acked batch is always at least enqueued.
	ErrBusy = errors.New("write queue full")

	ErrClosed = errors.New("writer is closed")
)

// BatchInserter is the slice of the store the writer needs.
type BatchInserter interface {
	InsertBatch(ctx context.Context, records []models.Record) error
}

// Result is the observable outcome of one detached write.
type Result struct {
	BatchID  string
	Records  int
	Attempts int
	Err      error
}

// Config bounds the work queue and the retry policy.
type Config struct {
	QueueSize     int
	Workers       int
	MaxAttempts   int
	RetryBackoff  time.Duration
	InsertTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	if c.InsertTimeout <= 0 {
		c.InsertTimeout = 30 * time.Second
	}
}

type job struct {
	id      string
	records []models.Record
}

// Writer runs a bounded queue of pending batches drained by worker
// goroutines that share the storage pool with concurrent query traffic.
type Writer struct {
	store  BatchInserter
	dlq    dlq.Writer // nil disables dead-lettering
	logger *logging.Logger
	cfg    Config

	jobs   chan job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool

	notify func(Result) // optional observer, used by tests
}

// Option customizes a Writer.
type Option func(*Writer)

// WithNotify registers an observer invoked after every completed write
// attempt cycle.
func WithNotify(fn func(Result)) Option {
	return func(w *Writer) { w.notify = fn }
}

// New starts the worker pool immediately.
func New(store BatchInserter, dl dlq.Writer, logger *logging.Logger, cfg Config, opts ...Option) *Writer {
	cfg.applyDefaults()

	w := &Writer{
		store:  store,
		dlq:    dl,
		logger: logger,
		cfg:    cfg,
		jobs:   make(chan job, cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(w)
	}

	for i := 0; i < cfg.Workers; i++ {
		w.wg.Add(1)
		go w.run()
	}
	return w
}

// Enqueue hands a batch to the engine and returns immediately with the batch
// ID. A full queue returns ErrBusy; once enqueued, the batch is detached and
// survives request cancellation.
func (w *Writer) Enqueue(records []models.Record) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return "", ErrClosed
	}

	id := uuid.New().String()
	select {
	case w.jobs <- job{id: id, records: records}:
		metrics.QueueDepth.Set(float64(len(w.jobs)))
		return id, nil
	default:
		return "", ErrBusy
	}
}

// Close stops intake, drains the queue, and waits for in-flight writes.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.jobs)
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *Writer) run() {
	defer w.wg.Done()
	for j := range w.jobs {
		w.process(j)
		metrics.QueueDepth.Set(float64(len(w.jobs)))
	}
}

func (w *Writer) process(j job) {
	var err error
	attempts := 0

	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		attempts = attempt
		if attempt > 1 {
			metrics.InsertRetries.Inc()
			time.Sleep(w.cfg.RetryBackoff * time.Duration(attempt-1))
		}

		// Detached from the originating request on purpose: the producer was
		// already acked, so the write gets its own deadline.
		ctx, cancel := context.WithTimeout(context.Background(), w.cfg.InsertTimeout)
		start := time.Now()
		err = w.store.InsertBatch(ctx, j.records)
		cancel()
		metrics.InsertDuration.Observe(time.Since(start).Seconds())

		if err == nil {
			metrics.BatchesTotal.WithLabelValues("persisted").Inc()
			w.emit(Result{BatchID: j.id, Records: len(j.records), Attempts: attempts})
			return
		}

		w.logger.Warn("batch insert failed",
			logging.BatchID(j.id),
			logging.Count(len(j.records)),
			"attempt", attempt,
			logging.Error(err),
		)
	}

	metrics.InsertFailures.Inc()
	metrics.BatchesTotal.WithLabelValues("failed").Inc()
	w.deadLetter(j, err, attempts)
	w.emit(Result{BatchID: j.id, Records: len(j.records), Attempts: attempts, Err: err})
}

func (w *Writer) deadLetter(j job, cause error, attempts int) {
	if w.dlq == nil {
		w.logger.Error("dropping batch after exhausting retries, no DLQ configured",
			logging.BatchID(j.id), logging.Count(len(j.records)), logging.Error(cause))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entry := dlq.FailedBatch{
		BatchID:   j.id,
		Timestamp: time.Now().UTC(),
		Records:   j.records,
		Error:     cause.Error(),
		Attempts:  attempts,
	}
	if err := w.dlq.Write(ctx, entry); err != nil {
		w.logger.Error("failed to dead-letter batch",
			logging.BatchID(j.id), logging.Error(err))
		return
	}
	metrics.DLQWrites.Inc()
}

func (w *Writer) emit(res Result) {
	if w.notify != nil {
		w.notify(res)
	}
}
