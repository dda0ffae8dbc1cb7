package segment

import (
	"errors"
	"fmt"
	"io"
)

// PageSize is the growth unit of a segment.
const PageSize = 64 << 10

var (
	// ErrOutOfBounds is returned when a read or write crosses the end of the segment.
	ErrOutOfBounds = errors.New("segment: access out of bounds")

	// ErrClosed is returned by operations on a closed segment.
	ErrClosed = errors.New("segment: closed")

	// ErrInvalidGrow is returned when Grow is called with a negative page count.
	ErrInvalidGrow = errors.New("segment: invalid grow")
)

// Segment is a growable, byte-addressable region of durable storage.
//
// Size is always a multiple of PageSize. Reads and writes must stay within
// [0, Size); implementations return ErrOutOfBounds otherwise and never grow
// implicitly. Each index owns its segments exclusively.
type Segment interface {
	io.ReaderAt
	io.WriterAt

	// Size returns the current size in bytes.
	Size() int64

	// Grow extends the segment by pages pages of zeroed memory and returns
	// the previous size in pages.
	Grow(pages int64) (int64, error)
}

// EnsureSize grows seg until it holds at least size bytes.
func EnsureSize(seg Segment, size int64) error {
	current := seg.Size()
	if size <= current {
		return nil
	}
	missing := size - current
	pages := (missing + PageSize - 1) / PageSize
	if _, err := seg.Grow(pages); err != nil {
		return fmt.Errorf("grow segment by %d pages: %w", pages, err)
	}
	return nil
}

// ReadAll copies the full contents of seg.
func ReadAll(seg Segment) ([]byte, error) {
	buf := make([]byte, seg.Size())
	if len(buf) == 0 {
		return buf, nil
	}
	if _, err := seg.ReadAt(buf, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf, nil
}

// Load replaces the contents of seg with data, growing it as needed.
// seg must be empty or at least as large as data.
func Load(seg Segment, data []byte) error {
	if err := EnsureSize(seg, int64(len(data))); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	_, err := seg.WriteAt(data, 0)
	return err
}

func checkBounds(off int64, n int, size int64) error {
	if off < 0 || off+int64(n) > size {
		return fmt.Errorf("%w: [%d, %d) exceeds %d", ErrOutOfBounds, off, off+int64(n), size)
	}
	return nil
}
