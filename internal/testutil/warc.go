package testutil

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"warcdb/internal/warc"
)

// WARCBuilder assembles archive bytes for tests. Compressed builders write
// every record as its own gzip member.
type WARCBuilder struct {
	compressed bool
	buf        bytes.Buffer
	offsets    []int64
	lengths    []int64
	next       int
}

// NewWARCBuilder creates an empty builder.
func NewWARCBuilder(compressed bool) *WARCBuilder {
	return &WARCBuilder{compressed: compressed}
}

// AddRecord appends a WARC/1.1 record. A Content-Length field is added for
// block unless fields already carry one.
func (b *WARCBuilder) AddRecord(fields []warc.Field, block []byte) *WARCBuilder {
	var rec bytes.Buffer
	rec.WriteString("WARC/1.1\r\n")
	hasLength := false
	for _, f := range fields {
		if strings.EqualFold(f.Name, "Content-Length") {
			hasLength = true
		}
		fmt.Fprintf(&rec, "%s: %s\r\n", f.Name, f.Value)
	}
	if !hasLength {
		fmt.Fprintf(&rec, "Content-Length: %d\r\n", len(block))
	}
	rec.WriteString("\r\n")
	rec.Write(block)
	rec.WriteString("\r\n\r\n")

	return b.AddRaw(rec.Bytes())
}

// AddRaw appends data verbatim as one record, compressed into its own member
// when the builder is compressed.
func (b *WARCBuilder) AddRaw(data []byte) *WARCBuilder {
	start := int64(b.buf.Len())
	if b.compressed {
		zw := gzip.NewWriter(&b.buf)
		zw.Write(data)
		zw.Close()
	} else {
		b.buf.Write(data)
	}
	b.offsets = append(b.offsets, start)
	b.lengths = append(b.lengths, int64(b.buf.Len())-start)
	return b
}

// AddResponse appends a response record carrying an HTTP response.
func (b *WARCBuilder) AddResponse(uri, date string, status int, headers []warc.Field, body []byte) *WARCBuilder {
	msg := httpMessage(fmt.Sprintf("HTTP/1.1 %d %s", status, http.StatusText(status)), headers, body)
	return b.AddRecord([]warc.Field{
		{Name: "WARC-Type", Value: warc.TypeResponse},
		{Name: "WARC-Record-ID", Value: b.recordID()},
		{Name: "WARC-Date", Value: date},
		{Name: "WARC-Target-URI", Value: uri},
		{Name: "Content-Type", Value: "application/http; msgtype=response"},
	}, msg)
}

// AddRequest appends a GET request record for uri.
func (b *WARCBuilder) AddRequest(uri, date string, headers []warc.Field) *WARCBuilder {
	msg := httpMessage("GET "+requestTarget(uri)+" HTTP/1.1", headers, nil)
	return b.AddRecord([]warc.Field{
		{Name: "WARC-Type", Value: warc.TypeRequest},
		{Name: "WARC-Record-ID", Value: b.recordID()},
		{Name: "WARC-Date", Value: date},
		{Name: "WARC-Target-URI", Value: uri},
		{Name: "Content-Type", Value: "application/http; msgtype=request"},
	}, msg)
}

// AddWarcinfo appends a warcinfo record describing filename.
func (b *WARCBuilder) AddWarcinfo(filename, date string) *WARCBuilder {
	return b.AddRecord([]warc.Field{
		{Name: "WARC-Type", Value: warc.TypeWarcinfo},
		{Name: "WARC-Record-ID", Value: b.recordID()},
		{Name: "WARC-Date", Value: date},
		{Name: "WARC-Filename", Value: filename},
		{Name: "Content-Type", Value: "application/warc-fields"},
	}, []byte("software: warcdb-test\r\nformat: WARC File Format 1.1\r\n"))
}

// AddMetadata appends a metadata record about uri.
func (b *WARCBuilder) AddMetadata(uri, date string, block []byte) *WARCBuilder {
	return b.AddRecord([]warc.Field{
		{Name: "WARC-Type", Value: warc.TypeMetadata},
		{Name: "WARC-Record-ID", Value: b.recordID()},
		{Name: "WARC-Date", Value: date},
		{Name: "WARC-Target-URI", Value: uri},
		{Name: "Content-Type", Value: "application/warc-fields"},
	}, block)
}

// Bytes returns the archive built so far.
func (b *WARCBuilder) Bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}

// Offsets returns the stream offset of each record in the order added.
func (b *WARCBuilder) Offsets() []int64 {
	return b.offsets
}

// Lengths returns the stream length of each record in the order added.
func (b *WARCBuilder) Lengths() []int64 {
	return b.lengths
}

// WriteFile writes the archive to dir/name and returns the full path.
func (b *WARCBuilder) WriteFile(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b.Bytes(), 0644); err != nil {
		t.Fatalf("writing archive %s: %v", path, err)
	}
	return path
}

func (b *WARCBuilder) recordID() string {
	b.next++
	return fmt.Sprintf("<urn:uuid:00000000-0000-4000-8000-%012d>", b.next)
}

// Crawl dates used by CrawlArchive.
const (
	CrawlWARCDate = "2022-05-10T01:03:24Z"
	CrawlHTTPDate = "Tue, 10 May 2022 01:03:24 GMT"
)

// CrawlArchive builds an archive of 807 records: 402 response and request
// pairs, responses first, followed by three metadata records.
func CrawlArchive(compressed bool) *WARCBuilder {
	b := NewWARCBuilder(compressed)
	for i := range 402 {
		uri := fmt.Sprintf("https://example.com/page/%d", i)
		b.AddResponse(uri, CrawlWARCDate, 200, []warc.Field{
			{Name: "Date", Value: CrawlHTTPDate},
			{Name: "Server", Value: "nginx"},
			{Name: "Content-Type", Value: "text/html; charset=utf-8"},
		}, []byte(fmt.Sprintf("<html><body>page %d</body></html>", i)))
		b.AddRequest(uri, CrawlWARCDate, []warc.Field{
			{Name: "Host", Value: "example.com"},
			{Name: "User-Agent", Value: "warcdb-test/1.0"},
		})
	}
	for i := range 3 {
		b.AddMetadata("https://example.com/", CrawlWARCDate, []byte(fmt.Sprintf("fetchTimeMs: %d\r\n", 100+i)))
	}
	return b
}

func httpMessage(start string, headers []warc.Field, body []byte) []byte {
	var msg bytes.Buffer
	msg.WriteString(start + "\r\n")
	hasLength := false
	for _, f := range headers {
		if strings.EqualFold(f.Name, "Content-Length") || strings.EqualFold(f.Name, "Transfer-Encoding") {
			hasLength = true
		}
		fmt.Fprintf(&msg, "%s: %s\r\n", f.Name, f.Value)
	}
	if !hasLength && body != nil {
		msg.WriteString("Content-Length: " + strconv.Itoa(len(body)) + "\r\n")
	}
	msg.WriteString("\r\n")
	msg.Write(body)
	return msg.Bytes()
}

func requestTarget(uri string) string {
	rest := uri
	if _, after, ok := strings.Cut(uri, "://"); ok {
		rest = after
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[i:]
	}
	return "/"
}
