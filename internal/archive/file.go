package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"warcdb/internal/warcdb"
)

// FileOpener opens archives on the local filesystem.
type FileOpener struct{}

var _ warcdb.ArchiveOpener = FileOpener{}

// Open opens the file at location. The recorded path is absolute.
func (FileOpener) Open(_ context.Context, location string) (*warcdb.Archive, error) {
	abs, err := filepath.Abs(location)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s is a directory", abs)
	}

	return &warcdb.Archive{
		Filename: filepath.Base(abs),
		Path:     abs,
		Body:     f,
	}, nil
}
