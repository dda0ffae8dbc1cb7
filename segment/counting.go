package segment

import "sync/atomic"

// Counting wraps a Segment and counts the writes that reach it.
type Counting struct {
	Segment

	writes       atomic.Int64
	bytesWritten atomic.Int64
	grows        atomic.Int64
}

// NewCounting wraps seg.
func NewCounting(seg Segment) *Counting {
	return &Counting{Segment: seg}
}

// WriteAt implements io.WriterAt.
func (c *Counting) WriteAt(p []byte, off int64) (int, error) {
	n, err := c.Segment.WriteAt(p, off)
	c.writes.Add(1)
	c.bytesWritten.Add(int64(n))
	return n, err
}

// Grow implements Segment.
func (c *Counting) Grow(pages int64) (int64, error) {
	c.grows.Add(1)
	return c.Segment.Grow(pages)
}

// Writes returns the number of WriteAt calls.
func (c *Counting) Writes() int64 { return c.writes.Load() }

// BytesWritten returns the number of bytes written.
func (c *Counting) BytesWritten() int64 { return c.bytesWritten.Load() }

// Grows returns the number of Grow calls.
func (c *Counting) Grows() int64 { return c.grows.Load() }

// Reset zeroes all counters.
func (c *Counting) Reset() {
	c.writes.Store(0)
	c.bytesWritten.Store(0)
	c.grows.Store(0)
}
