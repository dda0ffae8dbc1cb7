package stablelog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
)

// RecordType identifies the operation a record applies.
type RecordType uint8

const (
	RecordTypePut    RecordType = 1
	RecordTypeDelete RecordType = 2
)

func (t RecordType) String() string {
	switch t {
	case RecordTypePut:
		return "put"
	case RecordTypeDelete:
		return "delete"
	default:
		return fmt.Sprintf("RecordType(%d)", uint8(t))
	}
}

var (
	ErrInvalidCRC     = errors.New("invalid log record checksum")
	ErrInvalidType    = errors.New("invalid log record type")
	ErrShortRecord    = errors.New("short log record")
	ErrRecordTooLarge = errors.New("log record too large")
)

// recordHeaderSize is [CRC32: 4] [Type: 1] [KeyLen: 2] [ValueLen: 4].
const recordHeaderSize = 4 + 1 + 2 + 4

// MaxValueSize bounds a single record value.
const MaxValueSize = 1 << 20

// Record is one keyed operation in the log.
type Record struct {
	Type  RecordType
	Key   []byte
	Value []byte
}

// Size returns the encoded size of r.
func (r *Record) Size() int {
	return recordHeaderSize + len(r.Key) + len(r.Value)
}

// Encode appends the encoded record to dst.
// Format: [CRC32] [Type] [KeyLen] [ValueLen] [Key] [Value], little endian.
// The checksum covers everything after itself.
func (r *Record) Encode(dst []byte) ([]byte, error) {
	if r.Type != RecordTypePut && r.Type != RecordTypeDelete {
		return dst, fmt.Errorf("%w: %d", ErrInvalidType, r.Type)
	}
	if len(r.Key) > math.MaxUint16 || len(r.Value) > MaxValueSize {
		return dst, fmt.Errorf("%w: key %d bytes, value %d bytes", ErrRecordTooLarge, len(r.Key), len(r.Value))
	}

	start := len(dst)
	dst = append(dst, make([]byte, recordHeaderSize)...)
	hdr := dst[start:]
	hdr[4] = byte(r.Type)
	binary.LittleEndian.PutUint16(hdr[5:], uint16(len(r.Key)))
	binary.LittleEndian.PutUint32(hdr[7:], uint32(len(r.Value)))
	dst = append(dst, r.Key...)
	dst = append(dst, r.Value...)

	binary.LittleEndian.PutUint32(dst[start:], crc32.ChecksumIEEE(dst[start+4:]))
	return dst, nil
}

// Decode parses one record from the front of buf and returns it with its
// encoded size. Key and Value alias buf.
func Decode(buf []byte) (Record, int, error) {
	if len(buf) < recordHeaderSize {
		return Record{}, 0, ErrShortRecord
	}
	typ := RecordType(buf[4])
	keyLen := int(binary.LittleEndian.Uint16(buf[5:]))
	valLen := int(binary.LittleEndian.Uint32(buf[7:]))
	if valLen > MaxValueSize {
		return Record{}, 0, fmt.Errorf("%w: value %d bytes", ErrRecordTooLarge, valLen)
	}

	size := recordHeaderSize + keyLen + valLen
	if len(buf) < size {
		return Record{}, 0, ErrShortRecord
	}
	if binary.LittleEndian.Uint32(buf) != crc32.ChecksumIEEE(buf[4:size]) {
		return Record{}, 0, ErrInvalidCRC
	}
	if typ != RecordTypePut && typ != RecordTypeDelete {
		return Record{}, 0, fmt.Errorf("%w: %d", ErrInvalidType, typ)
	}

	keyStart := recordHeaderSize
	valStart := keyStart + keyLen
	return Record{
		Type:  typ,
		Key:   buf[keyStart:valStart:valStart],
		Value: buf[valStart:size:size],
	}, size, nil
}
