package warcdb

import (
	"context"
	"errors"
	"fmt"
	"io"

	"warcdb/internal/model"
	"warcdb/internal/warc"
)

// Service drives archive ingestion into a Database and reads it back.
type Service struct {
	database Database
	opener   ArchiveOpener
	logger   Logger
	clock    Clock
}

// NewService creates a new Service with the provided dependencies.
// The service owns no state beyond them; one Service serves one store.
func NewService(database Database, opener ArchiveOpener, logger Logger, clock Clock) *Service {
	return &Service{
		database: database,
		opener:   opener,
		logger:   logger,
		clock:    clock,
	}
}

// AddArchive ingests one archive and returns the number of records inserted.
//
// The archive is registered in the files table before any record is read,
// then each record is extracted and inserted in archive order. The first
// error stops ingestion. Rows already written, including the file row, are
// kept.
func (s *Service) AddArchive(ctx context.Context, location string) (int, error) {
	archive, err := s.opener.Open(ctx, location)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrFileUnreadable, location, err)
	}
	defer archive.Body.Close()

	reader, err := warc.NewReader(archive.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrFileUnreadable, location, err)
	}

	fileID, err := s.database.InsertFile(ctx, &model.File{
		Filename: archive.Filename,
		Path:     archive.Path,
		Created:  s.clock.Now(),
	})
	if err != nil {
		return 0, fmt.Errorf("registering %s: %w", archive.Path, err)
	}
	s.logger.Info("archive registered", "path", archive.Path, "file_id", fileID, "compressed", reader.Compressed())

	count := 0
	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.logger.Error("reading record failed", "path", archive.Path, "inserted", count, "error", err)
			return count, fmt.Errorf("%w: %s: record %d: %w", ErrMalformedRecord, archive.Path, count+1, err)
		}

		row, err := Extract(rec, fileID)
		if err != nil {
			s.logger.Error("extracting record failed", "path", archive.Path, "offset", rec.Offset, "inserted", count, "error", err)
			return count, fmt.Errorf("%s: record at offset %d: %w", archive.Path, rec.Offset, err)
		}

		if _, err := s.database.InsertRecord(ctx, row); err != nil {
			s.logger.Error("inserting record failed", "path", archive.Path, "offset", rec.Offset, "inserted", count, "error", err)
			return count, fmt.Errorf("%s: record at offset %d: %w", archive.Path, rec.Offset, err)
		}
		count++
		s.logger.Debug("record inserted", "type", rec.Type(), "offset", rec.Offset, "length", rec.Length)
	}

	s.logger.Info("archive imported", "path", archive.Path, "file_id", fileID, "records", count)
	return count, nil
}

// AddArchives ingests archives one after another. report is called after
// each archive completes. Ingestion stops at the first failing archive;
// the returned total covers every record inserted, including those of the
// failed archive.
func (s *Service) AddArchives(ctx context.Context, locations []string, report func(location string, count int)) (int, error) {
	total := 0
	for _, location := range locations {
		count, err := s.AddArchive(ctx, location)
		total += count
		if err != nil {
			return total, err
		}
		if report != nil {
			report(location, count)
		}
	}
	return total, nil
}
