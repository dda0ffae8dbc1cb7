package segment

import (
	"sync"
)

// Memory is a heap-backed Segment for tests and non-persistent deployments.
type Memory struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemory returns an empty heap segment.
func NewMemory() *Memory {
	return &Memory{}
}

// Size implements Segment.
func (m *Memory) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.data))
}

// Grow implements Segment.
func (m *Memory) Grow(pages int64) (int64, error) {
	if pages < 0 {
		return 0, ErrInvalidGrow
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := int64(len(m.data)) / PageSize
	m.data = append(m.data, make([]byte, pages*PageSize)...)
	return prev, nil
}

// ReadAt implements io.ReaderAt.
func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := checkBounds(off, len(p), int64(len(m.data))); err != nil {
		return 0, err
	}
	return copy(p, m.data[off:]), nil
}

// WriteAt implements io.WriterAt.
func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := checkBounds(off, len(p), int64(len(m.data))); err != nil {
		return 0, err
	}
	return copy(m.data[off:], p), nil
}
