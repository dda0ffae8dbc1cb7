package segment

import (
	"fmt"
	"os"
	"sync"
)

// File is a Segment backed by a memory-mapped file.
//
// The file length is kept at a multiple of PageSize. Grow extends the file
// and remaps it. Writes become durable on Sync or Close.
type File struct {
	mu     sync.RWMutex
	f      *os.File
	data   []byte
	closed bool
}

// OpenFile opens or creates the segment file at path.
func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	size := fi.Size()
	if size%PageSize != 0 {
		// A torn grow leaves a partial page; round up so the size stays page aligned.
		size = (size/PageSize + 1) * PageSize
		if err := f.Truncate(size); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	s := &File{f: f}
	if size > 0 {
		data, err := mapFile(f, int(size))
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("map segment %s: %w", path, err)
		}
		s.data = data
	}
	return s, nil
}

// Size implements Segment.
func (s *File) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.data))
}

// Grow implements Segment.
func (s *File) Grow(pages int64) (int64, error) {
	if pages < 0 {
		return 0, ErrInvalidGrow
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	prevSize := int64(len(s.data))
	if pages == 0 {
		return prevSize / PageSize, nil
	}

	if s.data != nil {
		if err := syncMapping(s.f, s.data); err != nil {
			return 0, err
		}
	}

	// The old mapping stays live until the new one is installed.
	newSize := prevSize + pages*PageSize
	if err := s.f.Truncate(newSize); err != nil {
		_ = s.f.Truncate(prevSize)
		return 0, fmt.Errorf("grow segment to %d bytes: %w", newSize, err)
	}
	data, err := mapFile(s.f, int(newSize))
	if err != nil {
		_ = s.f.Truncate(prevSize)
		return 0, fmt.Errorf("map segment at %d bytes: %w", newSize, err)
	}

	old := s.data
	s.data = data
	if old != nil {
		if err := unmapFile(old); err != nil {
			return prevSize / PageSize, fmt.Errorf("unmap previous mapping: %w", err)
		}
	}
	return prevSize / PageSize, nil
}

// ReadAt implements io.ReaderAt.
func (s *File) ReadAt(p []byte, off int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrClosed
	}
	if err := checkBounds(off, len(p), int64(len(s.data))); err != nil {
		return 0, err
	}
	return copy(p, s.data[off:]), nil
}

// WriteAt implements io.WriterAt.
func (s *File) WriteAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	if err := checkBounds(off, len(p), int64(len(s.data))); err != nil {
		return 0, err
	}
	return copy(s.data[off:], p), nil
}

// Sync flushes dirty pages to the file.
func (s *File) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.data == nil {
		return nil
	}
	return syncMapping(s.f, s.data)
}

// Close syncs, unmaps and closes the file. It is idempotent.
func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.data != nil {
		err = syncMapping(s.f, s.data)
		if unmapErr := unmapFile(s.data); unmapErr != nil && err == nil {
			err = unmapErr
		}
		s.data = nil
	}
	if closeErr := s.f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
