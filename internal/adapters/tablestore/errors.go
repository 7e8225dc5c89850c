package tablestore

import "errors"

var (
	// ErrTableNotFound is returned when a requested table file is missing.
	ErrTableNotFound = errors.New("table not found")

	// ErrUnknownTable is returned for a table name outside the schema.
	ErrUnknownTable = errors.New("unknown table")

	// ErrMalformedTable is returned when a table file cannot be parsed.
	ErrMalformedTable = errors.New("malformed table")

	// ErrWriteTable is returned when a table file cannot be written.
	ErrWriteTable = errors.New("write table")
)
