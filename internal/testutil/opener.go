package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sync"

	"warcdb/internal/warcdb"
)

// MemoryOpener serves archives from memory, keyed by location.
type MemoryOpener struct {
	mu       sync.Mutex
	archives map[string][]byte
	opened   []string
}

var _ warcdb.ArchiveOpener = (*MemoryOpener)(nil)

// NewMemoryOpener creates an opener with no archives.
func NewMemoryOpener() *MemoryOpener {
	return &MemoryOpener{archives: make(map[string][]byte)}
}

// Add makes data available at location.
func (m *MemoryOpener) Add(location string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archives[location] = data
}

// Open returns the archive stored at location. The archive path is the
// location itself.
func (m *MemoryOpener) Open(_ context.Context, location string) (*warcdb.Archive, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.archives[location]
	if !ok {
		return nil, fmt.Errorf("archive not found: %s", location)
	}
	m.opened = append(m.opened, location)

	return &warcdb.Archive{
		Filename: path.Base(location),
		Path:     location,
		Body:     io.NopCloser(bytes.NewReader(data)),
	}, nil
}

// Opened returns the locations opened so far, in order.
func (m *MemoryOpener) Opened() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.opened...)
}
