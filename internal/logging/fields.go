package logging

import "log/slog"

// Shared field names so log lines stay greppable across packages.
const (
	FieldService = "service"
	FieldBatchID = "batch_id"
	FieldError   = "error"
	FieldCount   = "count"
)

// Service returns the service name attribute.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// BatchID returns the batch ID attribute.
func BatchID(id string) slog.Attr {
	return slog.String(FieldBatchID, id)
}

// Error returns the error attribute.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// Count returns a record-count attribute.
func Count(n int) slog.Attr {
	return slog.Int(FieldCount, n)
}
