package warcdb

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"warcdb/internal/model"
	"warcdb/internal/warc"
)

// headerLookup is the lookup shape shared by envelope and HTTP headers.
type headerLookup func(name string) (string, bool)

// Extract maps one archive record to a records row for the file fileID.
// It fails with ErrMalformedRecord when a present header cannot be
// normalized; absent headers become null columns.
func Extract(rec *warc.Record, fileID int64) (*model.Record, error) {
	env := headerLookup(rec.Header.Get)

	row := &model.Record{
		FileID:                    fileID,
		WARCRecordID:              lookupString(env, "WARC-Record-ID"),
		WARCType:                  lookupString(env, "WARC-Type"),
		WARCConcurrentTo:          lookupString(env, "WARC-Concurrent-To"),
		WARCBlockDigest:           lookupString(env, "WARC-Block-Digest"),
		WARCPayloadDigest:         lookupString(env, "WARC-Payload-Digest"),
		WARCIPAddress:             lookupString(env, "WARC-IP-Address"),
		WARCRefersTo:              lookupString(env, "WARC-Refers-To"),
		WARCRefersToTargetURI:     lookupString(env, "WARC-Refers-To-Target-URI"),
		WARCTargetURI:             lookupString(env, "WARC-Target-URI"),
		WARCTruncated:             lookupString(env, "WARC-Truncated"),
		WARCWarcinfoID:            lookupString(env, "WARC-Warcinfo-ID"),
		WARCFilename:              lookupString(env, "WARC-Filename"),
		WARCProfile:               lookupString(env, "WARC-Profile"),
		WARCIdentifiedPayloadType: lookupString(env, "WARC-Identified-Payload-Type"),
		WARCSegmentOriginID:       lookupString(env, "WARC-Segment-Origin-ID"),
		HTTPPayload:               rec.Payload,
		RecordOffset:              rec.Offset,
		RecordLength:              rec.Length,
	}
	if row.HTTPPayload == nil {
		row.HTTPPayload = []byte{}
	}

	contentLength, err := lookupInt(env, "Content-Length")
	if err != nil {
		return nil, err
	}
	row.WARCContentLength = contentLength.Int64 // 0 when absent

	if row.WARCDate, err = lookupTime(env, "WARC-Date"); err != nil {
		return nil, err
	}
	if row.WARCRefersToDate, err = lookupTime(env, "WARC-Refers-To-Date"); err != nil {
		return nil, err
	}
	if row.WARCSegmentNumber, err = lookupInt(env, "WARC-Segment-Number"); err != nil {
		return nil, err
	}
	if row.WARCSegmentTotalLength, err = lookupInt(env, "WARC-Segment-Total-Length"); err != nil {
		return nil, err
	}

	if rec.HTTP != nil {
		if err := extractHTTP(rec.HTTP, row); err != nil {
			return nil, err
		}
	}

	return row, nil
}

func extractHTTP(msg *warc.HTTPMessage, row *model.Record) error {
	h := headerLookup(msg.Header.Get)

	if code, ok := msg.StatusCode(); ok {
		row.HTTPStatus = sql.NullInt64{Int64: int64(code), Valid: true}
	}
	row.HTTPContentType = lookupString(h, "Content-Type")
	row.HTTPServer = lookupString(h, "Server")

	var err error
	if row.HTTPDate, err = lookupTime(h, "Date"); err != nil {
		return fmt.Errorf("http header: %w", err)
	}
	if row.HTTPContentLength, err = lookupInt(h, "Content-Length"); err != nil {
		return fmt.Errorf("http header: %w", err)
	}

	headers, err := headerJSON(msg.Header)
	if err != nil {
		return fmt.Errorf("%w: encoding HTTP headers: %w", ErrMalformedRecord, err)
	}
	row.HTTPHeaders = sql.NullString{String: headers, Valid: true}
	return nil
}

// headerJSON encodes the headers as a JSON object in first-seen name order.
// When a name repeats, the last value wins.
func headerJSON(h warc.Header) (string, error) {
	var names []string
	values := make(map[string]string, len(h))
	for _, f := range h {
		if _, seen := values[f.Name]; !seen {
			names = append(names, f.Name)
		}
		values[f.Name] = f.Value
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return "", err
		}
		v, err := json.Marshal(values[name])
		if err != nil {
			return "", err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.String(), nil
}

func lookupString(h headerLookup, name string) sql.NullString {
	v, ok := h(name)
	return sql.NullString{String: v, Valid: ok}
}

func lookupInt(h headerLookup, name string) (sql.NullInt64, error) {
	v, ok := h(name)
	if !ok {
		return sql.NullInt64{}, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("%w: %s: invalid integer %q", ErrMalformedRecord, name, v)
	}
	return sql.NullInt64{Int64: n, Valid: true}, nil
}

func lookupTime(h headerLookup, name string) (sql.NullTime, error) {
	v, ok := h(name)
	if !ok {
		return sql.NullTime{}, nil
	}
	t, err := ParseTimestamp(v)
	if err != nil {
		return sql.NullTime{}, fmt.Errorf("%w: %s: %w", ErrMalformedRecord, name, err)
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}
