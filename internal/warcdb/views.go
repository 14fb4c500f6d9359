package warcdb

import (
	"context"
	"fmt"

	"warcdb/internal/model"
	"warcdb/internal/warc"
)

// Files returns every imported archive in import order.
func (s *Service) Files(ctx context.Context) ([]*model.File, error) {
	files, err := s.database.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return files, nil
}

// Requests returns all request records in archive insertion order.
func (s *Service) Requests(ctx context.Context) ([]*model.Record, error) {
	return s.recordsOfType(ctx, warc.TypeRequest)
}

// Responses returns all response records in archive insertion order.
func (s *Service) Responses(ctx context.Context) ([]*model.Record, error) {
	return s.recordsOfType(ctx, warc.TypeResponse)
}

func (s *Service) recordsOfType(ctx context.Context, warcType string) ([]*model.Record, error) {
	records, err := s.database.FindRecordsByType(ctx, warcType)
	if err != nil {
		return nil, fmt.Errorf("finding %s records: %w", warcType, err)
	}
	return records, nil
}
