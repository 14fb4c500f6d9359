package warcdb

import (
	"context"
	"io"
)

// Archive is an opened archive stream plus the identity recorded for it.
type Archive struct {
	// Filename is the base name stored in the files table.
	Filename string
	// Path is the absolute path or URI stored in the files table.
	Path string
	// Body streams the raw archive bytes. The caller closes it.
	Body io.ReadCloser
}

// ArchiveOpener resolves an archive location given on the command line.
type ArchiveOpener interface {
	Open(ctx context.Context, location string) (*Archive, error)
}
