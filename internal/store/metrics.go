package store

import (
	"context"
	"fmt"

	"github.com/commlogs-systems/commlogs-collector/internal/models"
)

// VolumeByBucket counts records per truncated time unit inside the window,
// ordered ascending by bucket. Buckets with no records do not appear.
func (s *Store) VolumeByBucket(ctx context.Context, bucket models.Bucket, w models.Window) ([]models.BucketCount, error) {
	q := `
		SELECT date_trunc($1, ts) AS bucket, count(*) AS logs
		FROM logs
		WHERE ts BETWEEN $2 AND $3
		GROUP BY 1
		ORDER BY 1`

	rows, err := s.pool.Query(ctx, q, string(bucket), w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("volume query: %w", err)
	}
	defer rows.Close()

	out := make([]models.BucketCount, 0)
	for rows.Next() {
		var bc models.BucketCount
		if err := rows.Scan(&bc.Bucket, &bc.Logs); err != nil {
			return nil, fmt.Errorf("scan volume row: %w", err)
		}
		out = append(out, bc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("volume rows: %w", err)
	}
	return out, nil
}

// ErrorSummary counts total records and records with status 'error' in the
// window. The percentage is derived in Go so the zero-total policy stays
// explicit.
func (s *Store) ErrorSummary(ctx context.Context, w models.Window) (models.ErrorSummary, error) {
	q := `
		SELECT
			count(*) AS total,
			COALESCE(sum(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0) AS errors
		FROM logs
		WHERE ts BETWEEN $1 AND $2`

	var total, errCount int64
	if err := s.pool.QueryRow(ctx, q, w.Start, w.End).Scan(&total, &errCount); err != nil {
		return models.ErrorSummary{}, fmt.Errorf("error summary query: %w", err)
	}
	return models.NewErrorSummary(total, errCount), nil
}

// TopSources ranks source identifiers (src_ip, falling back to source_host)
// by record count, descending, truncated to limit. Records with neither
// identifier are excluded from the ranking.
func (s *Store) TopSources(ctx context.Context, w models.Window, limit int) ([]models.SourceCount, error) {
	q := `
		SELECT COALESCE(src_ip, source_host) AS src, count(*) AS c
		FROM logs
		WHERE ts BETWEEN $1 AND $2
		  AND COALESCE(src_ip, source_host) IS NOT NULL
		GROUP BY 1
		ORDER BY c DESC
		LIMIT $3`

	rows, err := s.pool.Query(ctx, q, w.Start, w.End, limit)
	if err != nil {
		return nil, fmt.Errorf("top sources query: %w", err)
	}
	defer rows.Close()

	out := make([]models.SourceCount, 0)
	for rows.Next() {
		var sc models.SourceCount
		if err := rows.Scan(&sc.Source, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top sources rows: %w", err)
	}
	return out, nil
}
