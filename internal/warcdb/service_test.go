package warcdb_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"warcdb/internal/database"
	"warcdb/internal/testutil"
	"warcdb/internal/warc"
	"warcdb/internal/warcdb"
)

const crawlDate = "2022-05-10T01:03:24+00:00"

func newTestService(t *testing.T, db warcdb.Database, opener warcdb.ArchiveOpener) *warcdb.Service {
	t.Helper()
	return warcdb.NewService(db, opener, warcdb.NewNopLogger(), testutil.FixedClock())
}

func TestService_AddArchive_CrawlScenario(t *testing.T) {
	for _, compressed := range []bool{true, false} {
		name := "plain"
		location := "/data/crawl.warc"
		if compressed {
			name = "gzip"
			location = "/data/crawl.warc.gz"
		}

		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			db := testutil.NewTestDatabase(t)
			opener := testutil.NewMemoryOpener()
			opener.Add(location, testutil.CrawlArchive(compressed).Bytes())
			svc := newTestService(t, db, opener)

			count, err := svc.AddArchive(ctx, location)
			if err != nil {
				t.Fatalf("AddArchive() error = %v", err)
			}
			if count != 807 {
				t.Errorf("AddArchive() = %d, want 807", count)
			}

			if n, _ := db.CountFiles(ctx); n != 1 {
				t.Errorf("files rows = %d, want 1", n)
			}
			if n, _ := db.CountRecords(ctx); n != 807 {
				t.Errorf("records rows = %d, want 807", n)
			}

			responses, err := svc.Responses(ctx)
			if err != nil {
				t.Fatalf("Responses() error = %v", err)
			}
			if len(responses) != 402 {
				t.Fatalf("Responses() returned %d rows, want 402", len(responses))
			}
			first := responses[0]
			if first.ID != 1 {
				t.Errorf("first response id = %d, want 1", first.ID)
			}
			if got := warcdb.FormatTimestamp(first.WARCDate.Time); !first.WARCDate.Valid || got != crawlDate {
				t.Errorf("first response warc_date = %q, want %q", got, crawlDate)
			}
			if got := warcdb.FormatTimestamp(first.HTTPDate.Time); !first.HTTPDate.Valid || got != crawlDate {
				t.Errorf("first response http_date = %q, want %q", got, crawlDate)
			}
			for _, r := range responses {
				if r.WARCType.String != warc.TypeResponse {
					t.Fatalf("responses view returned a %q record", r.WARCType.String)
				}
			}

			requests, err := svc.Requests(ctx)
			if err != nil {
				t.Fatalf("Requests() error = %v", err)
			}
			if len(requests) != 402 {
				t.Errorf("Requests() returned %d rows, want 402", len(requests))
			}
			if len(requests) > 0 && requests[0].ID != 2 {
				t.Errorf("first request id = %d, want 2", requests[0].ID)
			}
			for i, r := range requests {
				if r.WARCType.String != warc.TypeRequest {
					t.Fatalf("requests view returned a %q record", r.WARCType.String)
				}
				if i > 0 && r.ID <= requests[i-1].ID {
					t.Fatalf("requests not in insertion order at %d", i)
				}
			}
		})
	}
}

func TestService_AddArchive_RegistersFile(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDatabase(t)
	opener := testutil.NewMemoryOpener()
	b := testutil.NewWARCBuilder(true).
		AddWarcinfo("small.warc.gz", "2023-01-02T03:04:05Z").
		AddResponse("https://example.com/", "2023-01-02T03:04:06Z", 200, nil, []byte("hi"))
	opener.Add("/archives/small.warc.gz", b.Bytes())
	clock := testutil.FixedClock()
	svc := warcdb.NewService(db, opener, warcdb.NewNopLogger(), clock)

	if _, err := svc.AddArchive(ctx, "/archives/small.warc.gz"); err != nil {
		t.Fatalf("AddArchive() error = %v", err)
	}

	files, err := svc.Files(ctx)
	if err != nil {
		t.Fatalf("Files() error = %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("Files() returned %d rows, want 1", len(files))
	}
	f := files[0]
	if f.Filename != "small.warc.gz" || f.Path != "/archives/small.warc.gz" {
		t.Errorf("file = %q, %q", f.Filename, f.Path)
	}
	if !f.Created.Equal(clock.Now()) {
		t.Errorf("Created = %v, want %v", f.Created, clock.Now())
	}

	records, err := db.FindRecordsByFile(ctx, f.ID)
	if err != nil {
		t.Fatalf("FindRecordsByFile() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records for file = %d, want 2", len(records))
	}
	for i, r := range records {
		if r.FileID != f.ID {
			t.Errorf("record %d file_id = %d, want %d", i, r.FileID, f.ID)
		}
		if r.RecordOffset != b.Offsets()[i] || r.RecordLength != b.Lengths()[i] {
			t.Errorf("record %d offset/length = %d/%d, want %d/%d",
				i, r.RecordOffset, r.RecordLength, b.Offsets()[i], b.Lengths()[i])
		}
	}
}

func TestService_AddArchive_ReimportAppends(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewSQLiteDatabase(filepath.Join(t.TempDir(), "warc.db"))
	if err != nil {
		t.Fatalf("NewSQLiteDatabase() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	opener := testutil.NewMemoryOpener()
	opener.Add("crawl.warc.gz", testutil.CrawlArchive(true).Bytes())
	svc := newTestService(t, db, opener)

	for range 2 {
		if _, err := svc.AddArchive(ctx, "crawl.warc.gz"); err != nil {
			t.Fatalf("AddArchive() error = %v", err)
		}
	}

	if n, _ := db.CountFiles(ctx); n != 2 {
		t.Errorf("files rows = %d, want 2", n)
	}
	if n, _ := db.CountRecords(ctx); n != 1614 {
		t.Errorf("records rows = %d, want 1614", n)
	}

	second, err := db.FindRecordsByFile(ctx, 2)
	if err != nil {
		t.Fatalf("FindRecordsByFile() error = %v", err)
	}
	if len(second) != 807 {
		t.Errorf("second import records = %d, want 807", len(second))
	}
	if len(second) > 0 && second[0].ID != 808 {
		t.Errorf("second import first id = %d, want 808", second[0].ID)
	}
}

func TestService_AddArchive_MalformedKeepsPartialData(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDatabase(t)
	opener := testutil.NewMemoryOpener()

	b := testutil.NewWARCBuilder(false).
		AddResponse("https://example.com/1", "2023-01-02T03:04:05Z", 200, nil, []byte("one")).
		AddRequest("https://example.com/1", "2023-01-02T03:04:05Z", nil).
		AddRaw([]byte("WARC/1.1\r\nWARC-Type: response\r\nContent-Length: 999\r\n\r\ncut short"))
	opener.Add("broken.warc", b.Bytes())
	svc := newTestService(t, db, opener)

	count, err := svc.AddArchive(ctx, "broken.warc")
	if !errors.Is(err, warcdb.ErrMalformedRecord) {
		t.Fatalf("AddArchive() error = %v, want ErrMalformedRecord", err)
	}
	if count != 2 {
		t.Errorf("AddArchive() = %d, want 2", count)
	}
	if n, _ := db.CountFiles(ctx); n != 1 {
		t.Errorf("files rows = %d, want 1", n)
	}
	if n, _ := db.CountRecords(ctx); n != 2 {
		t.Errorf("records rows = %d, want 2", n)
	}
}

func TestService_AddArchive_IrregularHTTPMessage(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDatabase(t)
	opener := testutil.NewMemoryOpener()

	b := testutil.NewWARCBuilder(false).
		AddResponse("https://example.com/1", "2023-01-02T03:04:05Z", 200, nil, []byte("one")).
		AddRecord([]warc.Field{
			{Name: "WARC-Type", Value: warc.TypeResponse},
			{Name: "WARC-Target-URI", Value: "https://example.com/2"},
		}, []byte("HTTP/1.1 200 OK\r\nServer: nginx\r\nbogus header line\r\n\r\ntwo")).
		AddRecord([]warc.Field{
			{Name: "WARC-Type", Value: warc.TypeResponse},
			{Name: "WARC-Target-URI", Value: "https://example.com/3"},
		}, []byte("garbage\r\n\r\nthree")).
		AddResponse("https://example.com/4", "2023-01-02T03:04:05Z", 200, nil, []byte("four"))
	opener.Add("irregular.warc", b.Bytes())
	svc := newTestService(t, db, opener)

	count, err := svc.AddArchive(ctx, "irregular.warc")
	if err != nil {
		t.Fatalf("AddArchive() error = %v", err)
	}
	if count != 4 {
		t.Errorf("AddArchive() = %d, want 4", count)
	}

	responses, err := svc.Responses(ctx)
	if err != nil {
		t.Fatalf("Responses() error = %v", err)
	}
	if len(responses) != 4 {
		t.Fatalf("Responses() returned %d rows, want 4", len(responses))
	}

	stray := responses[1]
	if stray.HTTPStatus.Int64 != 200 || !stray.HTTPStatus.Valid {
		t.Errorf("http_status = %v, want 200", stray.HTTPStatus)
	}
	if stray.HTTPHeaders.String != `{"Server":"nginx"}` {
		t.Errorf("http_headers = %q, want only the Server field", stray.HTTPHeaders.String)
	}
	if string(stray.HTTPPayload) != "two" {
		t.Errorf("http_payload = %q, want two", stray.HTTPPayload)
	}

	noStatus := responses[2]
	if noStatus.HTTPStatus.Valid {
		t.Errorf("http_status = %d, want NULL", noStatus.HTTPStatus.Int64)
	}
	if string(noStatus.HTTPPayload) != "three" {
		t.Errorf("http_payload = %q, want three", noStatus.HTTPPayload)
	}
}

func TestService_AddArchive_BadDateStopsFile(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDatabase(t)
	opener := testutil.NewMemoryOpener()

	b := testutil.NewWARCBuilder(true).
		AddResponse("https://example.com/1", "2023-01-02T03:04:05Z", 200, nil, []byte("one")).
		AddResponse("https://example.com/2", "not a date", 200, nil, []byte("two")).
		AddResponse("https://example.com/3", "2023-01-02T03:04:05Z", 200, nil, []byte("three"))
	opener.Add("dates.warc.gz", b.Bytes())
	svc := newTestService(t, db, opener)

	count, err := svc.AddArchive(ctx, "dates.warc.gz")
	if !errors.Is(err, warcdb.ErrMalformedRecord) {
		t.Fatalf("AddArchive() error = %v, want ErrMalformedRecord", err)
	}
	if count != 1 {
		t.Errorf("AddArchive() = %d, want 1", count)
	}
	if n, _ := db.CountRecords(ctx); n != 1 {
		t.Errorf("records rows = %d, want 1", n)
	}
}

func TestService_AddArchive_Unreadable(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDatabase(t)
	svc := newTestService(t, db, testutil.NewMemoryOpener())

	count, err := svc.AddArchive(ctx, "missing.warc.gz")
	if !errors.Is(err, warcdb.ErrFileUnreadable) {
		t.Fatalf("AddArchive() error = %v, want ErrFileUnreadable", err)
	}
	if count != 0 {
		t.Errorf("AddArchive() = %d, want 0", count)
	}
	if n, _ := db.CountFiles(ctx); n != 0 {
		t.Errorf("files rows = %d, want 0", n)
	}
}

func TestService_AddArchive_EmptyArchive(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDatabase(t)
	opener := testutil.NewMemoryOpener()
	opener.Add("empty.warc", nil)
	svc := newTestService(t, db, opener)

	count, err := svc.AddArchive(ctx, "empty.warc")
	if err != nil {
		t.Fatalf("AddArchive() error = %v", err)
	}
	if count != 0 {
		t.Errorf("AddArchive() = %d, want 0", count)
	}
	if n, _ := db.CountFiles(ctx); n != 1 {
		t.Errorf("files rows = %d, want 1", n)
	}
}

func TestService_AddArchive_StoreWriteFailure(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDatabase(t)
	opener := testutil.NewMemoryOpener()
	opener.Add("crawl.warc.gz", testutil.CrawlArchive(true).Bytes())
	svc := newTestService(t, db, opener)

	db.Close()

	if _, err := svc.AddArchive(ctx, "crawl.warc.gz"); !errors.Is(err, warcdb.ErrStoreWrite) {
		t.Fatalf("AddArchive() error = %v, want ErrStoreWrite", err)
	}
}

func TestService_AddArchives(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDatabase(t)
	opener := testutil.NewMemoryOpener()
	one := testutil.NewWARCBuilder(false).
		AddResponse("https://example.com/", "2023-01-02T03:04:05Z", 200, nil, []byte("a"))
	opener.Add("one.warc", one.Bytes())
	opener.Add("two.warc", one.Bytes())
	svc := newTestService(t, db, opener)

	type result struct {
		location string
		count    int
	}
	var reported []result
	report := func(location string, count int) {
		reported = append(reported, result{location, count})
	}

	total, err := svc.AddArchives(ctx, []string{"one.warc", "two.warc"}, report)
	if err != nil {
		t.Fatalf("AddArchives() error = %v", err)
	}
	if total != 2 {
		t.Errorf("AddArchives() = %d, want 2", total)
	}
	want := []result{{"one.warc", 1}, {"two.warc", 1}}
	if len(reported) != len(want) || reported[0] != want[0] || reported[1] != want[1] {
		t.Errorf("reported = %+v, want %+v", reported, want)
	}
}

func TestService_AddArchives_StopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDatabase(t)
	opener := testutil.NewMemoryOpener()
	one := testutil.NewWARCBuilder(false).
		AddResponse("https://example.com/", "2023-01-02T03:04:05Z", 200, nil, []byte("a"))
	opener.Add("one.warc", one.Bytes())
	opener.Add("three.warc", one.Bytes())
	svc := newTestService(t, db, opener)

	calls := 0
	total, err := svc.AddArchives(ctx, []string{"one.warc", "two.warc", "three.warc"}, func(string, int) { calls++ })
	if !errors.Is(err, warcdb.ErrFileUnreadable) {
		t.Fatalf("AddArchives() error = %v, want ErrFileUnreadable", err)
	}
	if total != 1 {
		t.Errorf("AddArchives() = %d, want 1", total)
	}
	if calls != 1 {
		t.Errorf("report called %d times, want 1", calls)
	}
	if opened := opener.Opened(); len(opened) != 1 || opened[0] != "one.warc" {
		t.Errorf("opened = %v, want [one.warc]", opened)
	}
}
