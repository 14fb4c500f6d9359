package warcdb

import "errors"

// Error kinds surfaced by ingestion. Callers match them with errors.Is.
var (
	// ErrFileUnreadable means the archive could not be opened. Nothing has
	// been written for it.
	ErrFileUnreadable = errors.New("archive unreadable")

	// ErrMalformedRecord means a record could not be read or normalized.
	// Rows written before it are kept.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrStoreWrite means the database rejected a write.
	ErrStoreWrite = errors.New("store write failed")
)
