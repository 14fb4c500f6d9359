package model

import (
	"database/sql"
	"time"
)

// File represents one ingested archive.
type File struct {
	ID       int64     // Autoincrement primary key
	Filename string    // Base name of the archive
	Path     string    // Absolute path or s3:// URI, captured at import time
	Created  time.Time // When the archive was imported
}

// Record represents one archive record. Header-backed fields are null when
// the header was absent from the record.
type Record struct {
	ID     int64
	FileID int64 // Foreign key to File

	// WARC envelope headers
	WARCRecordID              sql.NullString
	WARCType                  sql.NullString
	WARCContentLength         int64 // 0 when the header is absent
	WARCDate                  sql.NullTime
	WARCConcurrentTo          sql.NullString
	WARCBlockDigest           sql.NullString
	WARCPayloadDigest         sql.NullString
	WARCIPAddress             sql.NullString
	WARCRefersTo              sql.NullString
	WARCRefersToTargetURI     sql.NullString
	WARCRefersToDate          sql.NullTime
	WARCTargetURI             sql.NullString
	WARCTruncated             sql.NullString
	WARCWarcinfoID            sql.NullString
	WARCFilename              sql.NullString
	WARCProfile               sql.NullString
	WARCIdentifiedPayloadType sql.NullString
	WARCSegmentNumber         sql.NullInt64
	WARCSegmentOriginID       sql.NullString
	WARCSegmentTotalLength    sql.NullInt64

	// Embedded HTTP message, all null when the record has none
	HTTPStatus        sql.NullInt64
	HTTPContentType   sql.NullString
	HTTPServer        sql.NullString
	HTTPDate          sql.NullTime
	HTTPContentLength sql.NullInt64
	HTTPHeaders       sql.NullString // JSON object of name to value
	HTTPPayload       []byte

	// Position in the archive stream
	RecordOffset int64
	RecordLength int64
}
