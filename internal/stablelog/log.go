package stablelog

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"iter"

	"github.com/hupe1980/neuronidx/segment"
)

const (
	magic      = "NIXL"
	version    = 1
	headerSize = 32
)

var (
	// ErrCorrupt is returned when the segment does not hold a readable log.
	ErrCorrupt = errors.New("corrupt log segment")

	// ErrUnsupportedVersion is returned for logs written by a newer format.
	ErrUnsupportedVersion = errors.New("unsupported log version")
)

// Log is an append-only record log laid over one segment.
//
// Segment layout:
//
//	[Header: 32 bytes] [free space] [Records: start..tail] [free space]
//
// Header: [Magic: 4] [Version: 2] [Reserved: 2] [Start: 8] [Tail: 8] [CRC32: 4] [Pad: 4]
//
// A record becomes visible only once the header tail covers it, so a torn
// append is invisible on the next Open. Rewrite places the compacted records
// in a region disjoint from the live one and then flips the header.
//
// Not safe for concurrent use.
type Log struct {
	seg     segment.Segment
	start   int64
	tail    int64
	records int64
	scratch []byte
}

// Open opens the log stored in seg, initialising an empty log if seg is
// blank, and calls replay for every committed record in order.
func Open(seg segment.Segment, replay func(Record) error) (*Log, error) {
	l := &Log{seg: seg}

	blank, err := l.readHeader()
	if err != nil {
		return nil, err
	}
	if blank {
		if err := segment.EnsureSize(seg, headerSize); err != nil {
			return nil, err
		}
		if err := l.writeHeader(headerSize, headerSize); err != nil {
			return nil, err
		}
		l.start, l.tail = headerSize, headerSize
		return l, nil
	}

	if l.tail == l.start {
		return l, nil
	}
	buf := make([]byte, l.tail-l.start)
	if _, err := seg.ReadAt(buf, l.start); err != nil {
		return nil, fmt.Errorf("%w: read records: %w", ErrCorrupt, err)
	}
	for off := 0; off < len(buf); {
		rec, n, err := Decode(buf[off:])
		if err != nil {
			return nil, fmt.Errorf("%w: record at offset %d: %w", ErrCorrupt, l.start+int64(off), err)
		}
		off += n
		l.records++
		if replay != nil {
			if err := replay(rec); err != nil {
				return nil, err
			}
		}
	}
	return l, nil
}

// readHeader loads start and tail. It reports blank for a segment that has
// never held a log.
func (l *Log) readHeader() (blank bool, err error) {
	size := l.seg.Size()
	if size == 0 {
		return true, nil
	}
	if size < headerSize {
		return false, fmt.Errorf("%w: segment smaller than header", ErrCorrupt)
	}

	hdr := make([]byte, headerSize)
	if _, err := l.seg.ReadAt(hdr, 0); err != nil {
		return false, err
	}
	if bytes.Equal(hdr, make([]byte, headerSize)) {
		return true, nil
	}
	if string(hdr[:4]) != magic {
		return false, fmt.Errorf("%w: bad magic %q", ErrCorrupt, hdr[:4])
	}
	if binary.LittleEndian.Uint32(hdr[24:]) != crc32.ChecksumIEEE(hdr[:24]) {
		return false, fmt.Errorf("%w: header: %w", ErrCorrupt, ErrInvalidCRC)
	}
	if v := binary.LittleEndian.Uint16(hdr[4:]); v != version {
		return false, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	l.start = int64(binary.LittleEndian.Uint64(hdr[8:]))
	l.tail = int64(binary.LittleEndian.Uint64(hdr[16:]))
	if l.start < headerSize || l.tail < l.start || l.tail > size {
		return false, fmt.Errorf("%w: records [%d, %d) outside segment of %d bytes", ErrCorrupt, l.start, l.tail, size)
	}
	return false, nil
}

func (l *Log) writeHeader(start, tail int64) error {
	hdr := make([]byte, headerSize)
	copy(hdr, magic)
	binary.LittleEndian.PutUint16(hdr[4:], version)
	binary.LittleEndian.PutUint64(hdr[8:], uint64(start))
	binary.LittleEndian.PutUint64(hdr[16:], uint64(tail))
	binary.LittleEndian.PutUint32(hdr[24:], crc32.ChecksumIEEE(hdr[:24]))
	_, err := l.seg.WriteAt(hdr, 0)
	return err
}

// Append writes rec at the tail and commits it.
// On error the log is unchanged as far as Open is concerned.
func (l *Log) Append(rec Record) error {
	buf, err := rec.Encode(l.scratch[:0])
	if err != nil {
		return err
	}
	l.scratch = buf

	end := l.tail + int64(len(buf))
	if err := segment.EnsureSize(l.seg, end); err != nil {
		return err
	}
	if _, err := l.seg.WriteAt(buf, l.tail); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := l.writeHeader(l.start, end); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	l.tail = end
	l.records++
	return nil
}

// Put appends a put record.
func (l *Log) Put(key, value []byte) error {
	return l.Append(Record{Type: RecordTypePut, Key: key, Value: value})
}

// Delete appends a delete record.
func (l *Log) Delete(key []byte) error {
	return l.Append(Record{Type: RecordTypeDelete, Key: key})
}

// Rewrite replaces the log contents with records. It is used to compact a
// log down to its live entries.
func (l *Log) Rewrite(records iter.Seq[Record]) error {
	var buf []byte
	var count int64
	for rec := range records {
		var err error
		if buf, err = rec.Encode(buf); err != nil {
			return err
		}
		count++
	}

	off := l.tail
	if headerSize+int64(len(buf)) <= l.start {
		off = headerSize
	}
	end := off + int64(len(buf))
	if err := segment.EnsureSize(l.seg, end); err != nil {
		return err
	}
	if len(buf) > 0 {
		if _, err := l.seg.WriteAt(buf, off); err != nil {
			return fmt.Errorf("write compacted records: %w", err)
		}
	}
	if err := l.writeHeader(off, end); err != nil {
		return fmt.Errorf("commit compacted records: %w", err)
	}
	l.start, l.tail, l.records = off, end, count
	return nil
}

// Len returns the number of committed records.
func (l *Log) Len() int64 { return l.records }

// Bytes returns the size of the committed records.
func (l *Log) Bytes() int64 { return l.tail - l.start }

// Segment returns the underlying segment.
func (l *Log) Segment() segment.Segment { return l.seg }
