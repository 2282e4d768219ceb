package models

import (
	"errors"
	"time"
)

// MaxBatchSize is the hard cap on events per ingestion request. Batches above
// this size are rejected outright and nothing from them is persisted.
const MaxBatchSize = 2000

var ErrMissingTimestamp = errors.New("event timestamp is required")

// LogEvent is the wire representation of one observed network/security event.
// Only the timestamp is mandatory; every other field may be absent.
type LogEvent struct {
	TS         time.Time      `json:"ts"`
	SourceHost *string        `json:"source_host,omitempty"`
	SrcIP      *string        `json:"src_ip,omitempty"`
	DstIP      *string        `json:"dst_ip,omitempty"`
	SrcPort    *int           `json:"src_port,omitempty"`
	DstPort    *int           `json:"dst_port,omitempty"`
	Protocol   *string        `json:"protocol,omitempty"`
	Direction  *string        `json:"direction,omitempty"`
	Status     *string        `json:"status,omitempty"`
	LatencyMS  *int           `json:"latency_ms,omitempty"`
	BytesIn    *int64         `json:"bytes_in,omitempty"`
	BytesOut   *int64         `json:"bytes_out,omitempty"`
	Service    *string        `json:"service,omitempty"`
	Raw        *string        `json:"raw,omitempty"`
	Tags       map[string]any `json:"tags,omitempty"`
}

// Validate checks the schema-level contract for a single event.
func (e *LogEvent) Validate() error {
	if e.TS.IsZero() {
		return ErrMissingTimestamp
	}
	return nil
}

// Record is the normalized, storage-ready form of a LogEvent. Records are
// created at admission and never mutated afterwards.
type Record struct {
	TS         time.Time      `json:"ts"`
	SourceHost *string        `json:"source_host"`
	SrcIP      *string        `json:"src_ip"`
	DstIP      *string        `json:"dst_ip"`
	SrcPort    *int           `json:"src_port"`
	DstPort    *int           `json:"dst_port"`
	Protocol   *string        `json:"protocol"`
	Direction  *string        `json:"direction"`
	Status     *string        `json:"status"`
	LatencyMS  *int           `json:"latency_ms"`
	BytesIn    *int64         `json:"bytes_in"`
	BytesOut   *int64         `json:"bytes_out"`
	Service    *string        `json:"service"`
	Raw        *string        `json:"raw"`
	Tags       map[string]any `json:"tags"`
}

// Normalize converts a validated event into a Record. Tags on the result is
// never nil; an absent map becomes an empty one so the stored column is always
// a JSON object.
func (e *LogEvent) Normalize() Record {
	tags := e.Tags
	if tags == nil {
		tags = map[string]any{}
	}
	return Record{
		TS:         e.TS.UTC(),
		SourceHost: e.SourceHost,
		SrcIP:      e.SrcIP,
		DstIP:      e.DstIP,
		SrcPort:    e.SrcPort,
		DstPort:    e.DstPort,
		Protocol:   e.Protocol,
		Direction:  e.Direction,
		Status:     e.Status,
		LatencyMS:  e.LatencyMS,
		BytesIn:    e.BytesIn,
		BytesOut:   e.BytesOut,
		Service:    e.Service,
		Raw:        e.Raw,
		Tags:       tags,
	}
}
