package warcdb

import (
	"context"

	"warcdb/internal/model"
)

// Database is the append-only store for archives and their records.
// There are no update or delete operations, and nothing is deduplicated:
// importing the same archive twice stores it twice.
type Database interface {
	// InsertFile registers an archive and returns its assigned primary key.
	InsertFile(ctx context.Context, file *model.File) (int64, error)

	// InsertRecord appends one record row. record.FileID must reference an
	// existing file. Returns the assigned primary key.
	InsertRecord(ctx context.Context, record *model.Record) (int64, error)

	// ListFiles returns all archives in import order.
	ListFiles(ctx context.Context) ([]*model.File, error)

	// FindRecordsByType returns records whose warc_type equals warcType,
	// in insertion order.
	FindRecordsByType(ctx context.Context, warcType string) ([]*model.Record, error)

	// Close closes the database connection.
	Close() error
}
