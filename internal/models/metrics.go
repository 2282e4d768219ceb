package models

import (
	"fmt"
	"time"
)

// Bucket is the time unit used to group volume counts.
type Bucket string

const (
	BucketMinute Bucket = "minute"
	BucketHour   Bucket = "hour"
	BucketDay    Bucket = "day"
)

// ParseBucket validates a caller-supplied bucket unit. Only minute, hour and
// day are accepted.
func ParseBucket(s string) (Bucket, error) {
	switch Bucket(s) {
	case BucketMinute, BucketHour, BucketDay:
		return Bucket(s), nil
	}
	return "", fmt.Errorf("invalid bucket %q: must be minute, hour or day", s)
}

// Window is the [start, end] time range a metrics query runs over. End is the
// query time, start is end minus the lookback, so start <= end always holds
// for a non-negative lookback.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow derives a window from now and a lookback in minutes.
func NewWindow(now time.Time, minutes int) Window {
	end := now.UTC()
	return Window{
		Start: end.Add(-time.Duration(minutes) * time.Minute),
		End:   end,
	}
}

// BucketCount is one (bucket timestamp, count) pair in a volume result.
type BucketCount struct {
	Bucket time.Time `json:"bucket"`
	Logs   int64     `json:"logs"`
}

// ErrorSummary is the error-rate aggregate over a window.
type ErrorSummary struct {
	Total    int64   `json:"total"`
	Errors   int64   `json:"errors"`
	ErrorPct float64 `json:"error_pct"`
}

// NewErrorSummary computes the percentage with the zero-total policy: an empty
// window yields 0.0, never a division fault or NaN.
func NewErrorSummary(total, errors int64) ErrorSummary {
	s := ErrorSummary{Total: total, Errors: errors}
	if total > 0 {
		s.ErrorPct = float64(errors) / float64(total) * 100
	}
	return s
}

// SourceCount is one ranked entry in a top-sources result. Source is the
// record's src_ip when present, falling back to source_host.
type SourceCount struct {
	Source string `json:"src_ip"`
	Count  int64  `json:"c"`
}
