// Package store is the pooled Postgres access layer. It owns the only shared
// mutable resource in the process: a bounded pgx connection pool that ingest
// writes and metrics reads compete for equally.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commlogs-systems/commlogs-collector/internal/models"
)

type Store struct {
	pool *pgxpool.Pool
}

// New creates the connection pool and verifies the store is reachable. An
// unreachable store is a retryable connectivity failure, surfaced as an error
// rather than a degraded handle.
func New(ctx context.Context, connString string, minConns, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	cfg.MinConns = minConns
	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Ping issues a trivial round trip. Used as the liveness signal; reads and
// writes nothing.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

const insertLogSQL = `
	INSERT INTO logs
		(ts, source_host, src_ip, dst_ip, src_port, dst_port, protocol,
		 direction, status, latency_ms, bytes_in, bytes_out, service, raw, tags)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

// InsertBatch writes all records inside a single transaction. The batch is
// indivisible: either every row commits or none does.
func (s *Store) InsertBatch(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer tx.Rollback(ctx)

	b := &pgx.Batch{}
	for _, rec := range records {
		tags, err := json.Marshal(rec.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags: %w", err)
		}
		b.Queue(insertLogSQL,
			rec.TS, rec.SourceHost, rec.SrcIP, rec.DstIP, rec.SrcPort,
			rec.DstPort, rec.Protocol, rec.Direction, rec.Status,
			rec.LatencyMS, rec.BytesIn, rec.BytesOut, rec.Service, rec.Raw,
			tags,
		)
	}

	br := tx.SendBatch(ctx, b)
	for range records {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert log row: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}
