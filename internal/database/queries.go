package database

import (
	"database/sql"

	"warcdb/internal/model"
	"warcdb/internal/warcdb"
)

const insertFile = `
INSERT INTO files (filename, path, created)
VALUES (?, ?, ?)`

const selectFiles = `
SELECT id, filename, path, created
FROM files
ORDER BY id`

const insertRecord = `
INSERT INTO records (
	file_id,
	warc_record_id, warc_type, warc_content_length, warc_date,
	warc_concurrent_to, warc_block_digest, warc_payload_digest, warc_ip_address,
	warc_refers_to, warc_refers_to_target_uri, warc_refers_to_date,
	warc_target_uri, warc_truncated, warc_warcinfo_id, warc_filename,
	warc_profile, warc_identified_payload_type,
	warc_segment_number, warc_segment_origin_id, warc_segment_total_length,
	http_status, http_content_type, http_server, http_date,
	http_content_length, http_headers, http_payload,
	record_offset, record_length
) VALUES (
	?,
	?, ?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?,
	?, ?, ?, ?,
	?, ?,
	?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?,
	?, ?
)`

const recordColumns = `
	id, file_id,
	warc_record_id, warc_type, warc_content_length, warc_date,
	warc_concurrent_to, warc_block_digest, warc_payload_digest, warc_ip_address,
	warc_refers_to, warc_refers_to_target_uri, warc_refers_to_date,
	warc_target_uri, warc_truncated, warc_warcinfo_id, warc_filename,
	warc_profile, warc_identified_payload_type,
	warc_segment_number, warc_segment_origin_id, warc_segment_total_length,
	http_status, http_content_type, http_server, http_date,
	http_content_length, http_headers, http_payload,
	record_offset, record_length`

// Rows come back in primary key order, which is insertion order.
const selectRecordsByType = `
SELECT` + recordColumns + `
FROM records
WHERE warc_type = ?
ORDER BY id`

const selectRecordsByFile = `
SELECT` + recordColumns + `
FROM records
WHERE file_id = ?
ORDER BY id`

const countRecords = `SELECT COUNT(*) FROM records`

const countFiles = `SELECT COUNT(*) FROM files`

// recordArgs returns the insertRecord parameters for r. Timestamps are bound
// as canonical text so the stored value is exactly what FormatTimestamp
// produces.
func recordArgs(r *model.Record) []any {
	return []any{
		r.FileID,
		r.WARCRecordID, r.WARCType, r.WARCContentLength, timestampArg(r.WARCDate),
		r.WARCConcurrentTo, r.WARCBlockDigest, r.WARCPayloadDigest, r.WARCIPAddress,
		r.WARCRefersTo, r.WARCRefersToTargetURI, timestampArg(r.WARCRefersToDate),
		r.WARCTargetURI, r.WARCTruncated, r.WARCWarcinfoID, r.WARCFilename,
		r.WARCProfile, r.WARCIdentifiedPayloadType,
		r.WARCSegmentNumber, r.WARCSegmentOriginID, r.WARCSegmentTotalLength,
		r.HTTPStatus, r.HTTPContentType, r.HTTPServer, timestampArg(r.HTTPDate),
		r.HTTPContentLength, r.HTTPHeaders, payloadArg(r.HTTPPayload),
		r.RecordOffset, r.RecordLength,
	}
}

func timestampArg(t sql.NullTime) any {
	if !t.Valid {
		return nil
	}
	return warcdb.FormatTimestamp(t.Time)
}

// payloadArg keeps empty payloads as empty blobs; the driver binds a nil
// slice as NULL.
func payloadArg(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func scanRecord(rows *sql.Rows) (*model.Record, error) {
	var r model.Record
	err := rows.Scan(
		&r.ID, &r.FileID,
		&r.WARCRecordID, &r.WARCType, &r.WARCContentLength, &r.WARCDate,
		&r.WARCConcurrentTo, &r.WARCBlockDigest, &r.WARCPayloadDigest, &r.WARCIPAddress,
		&r.WARCRefersTo, &r.WARCRefersToTargetURI, &r.WARCRefersToDate,
		&r.WARCTargetURI, &r.WARCTruncated, &r.WARCWarcinfoID, &r.WARCFilename,
		&r.WARCProfile, &r.WARCIdentifiedPayloadType,
		&r.WARCSegmentNumber, &r.WARCSegmentOriginID, &r.WARCSegmentTotalLength,
		&r.HTTPStatus, &r.HTTPContentType, &r.HTTPServer, &r.HTTPDate,
		&r.HTTPContentLength, &r.HTTPHeaders, &r.HTTPPayload,
		&r.RecordOffset, &r.RecordLength,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
