package domain

import "errors"

// Sentinel errors shared across the ingestion pipeline. Both are per-record
// failures: a record that trips one is reported and skipped, the batch
// continues.
var (
	// ErrUnrecognizedDateFormat is returned when a timestamp string matches
	// none of the known upstream date encodings.
	ErrUnrecognizedDateFormat = errors.New("unrecognized date format")
	// ErrSchemaMismatch is returned when an upstream payload matches no
	// known post kind.
	ErrSchemaMismatch = errors.New("payload matches no known post kind")
)
