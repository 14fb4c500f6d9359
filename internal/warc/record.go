package warc

import (
	"fmt"
	"strings"
)

// WARC-Type values defined by the WARC 1.1 standard.
const (
	TypeWarcinfo     = "warcinfo"
	TypeResponse     = "response"
	TypeResource     = "resource"
	TypeRequest      = "request"
	TypeMetadata     = "metadata"
	TypeRevisit      = "revisit"
	TypeConversion   = "conversion"
	TypeContinuation = "continuation"
)

// Record is one archive record with its content block read into memory.
type Record struct {
	// Version is the WARC version line, e.g. "WARC/1.0".
	Version string
	Header  Header

	// HTTP is nil unless the record carries an HTTP request or response.
	HTTP *HTTPMessage

	// Payload is the decoded HTTP body when HTTP is set, otherwise the whole
	// content block.
	Payload []byte

	// Offset and Length locate the record in the archive stream.
	Offset int64
	Length int64
}

// Type returns the WARC-Type header value, or "" when it is absent.
func (r *Record) Type() string {
	v, _ := r.Header.Get("WARC-Type")
	return v
}

func newRecord(version string, header Header, block []byte, offset, length int64) (*Record, error) {
	rec := &Record{
		Version: version,
		Header:  header,
		Payload: block,
		Offset:  offset,
		Length:  length,
	}

	if carriesHTTP(rec, block) {
		msg, err := parseHTTP(rec.Type(), block)
		if err != nil {
			return nil, fmt.Errorf("%w at offset %d: parsing HTTP message: %w", ErrMalformed, offset, err)
		}
		rec.HTTP = msg
		rec.Payload = msg.Body
	}

	return rec, nil
}

func carriesHTTP(rec *Record, block []byte) bool {
	if len(block) == 0 {
		return false
	}
	switch rec.Type() {
	case TypeResponse, TypeRequest, TypeRevisit:
	default:
		return false
	}
	uri, _ := rec.Header.Get("WARC-Target-URI")
	uri = strings.ToLower(strings.Trim(uri, "<>"))
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}
