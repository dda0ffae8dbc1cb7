// Package compress encodes checkpoint images as a sequence of independently
// compressed blocks.
//
// Block format:
//
//	[UncompressedSize uint32][CompressedSize uint32][Data...]
//
// A CompressedSize of 0 means the block is stored raw.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used.
type Type uint8

const (
	// None stores blocks raw.
	None Type = 0
	// LZ4 is fast block compression.
	LZ4 Type = 1
	// Zstd trades speed for a better ratio.
	Zstd Type = 2
)

// DefaultBlockSize is the amount of input compressed per block.
const DefaultBlockSize = 1 << 20

const blockHeaderSize = 8

// ErrCorrupt is returned when an encoded image cannot be decoded.
var ErrCorrupt = errors.New("compress: corrupt block")

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Parse is the inverse of Type.String.
func Parse(s string) (Type, error) {
	switch s {
	case "none", "":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return 0, fmt.Errorf("compress: unknown type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if t > Zstd {
		return nil, fmt.Errorf("compress: unknown type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// Encode compresses data with t in blocks of DefaultBlockSize.
func Encode(data []byte, t Type) ([]byte, error) {
	return EncodeBlocks(data, t, DefaultBlockSize)
}

// EncodeBlocks compresses data with t in blocks of blockSize bytes.
// Blocks that do not shrink by at least 10% are stored raw.
func EncodeBlocks(data []byte, t Type, blockSize int) ([]byte, error) {
	if t > Zstd {
		return nil, fmt.Errorf("compress: unknown type %d", uint8(t))
	}
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	out := make([]byte, 0, len(data)/2+blockHeaderSize)
	for len(data) > 0 {
		n := min(len(data), blockSize)
		var err error
		if out, err = appendBlock(out, data[:n], t); err != nil {
			return nil, err
		}
		data = data[n:]
	}
	return out, nil
}

func appendBlock(dst, block []byte, t Type) ([]byte, error) {
	var compressed []byte

	switch t {
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(block)))
		n, err := lz4.CompressBlock(block, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n]
	case Zstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, err
		}
		compressed = enc.EncodeAll(block, nil)
		zstdEncoderPool.Put(enc)
	}

	var hdr [blockHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(len(block)))

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(block))*0.9 {
		dst = append(dst, hdr[:]...)
		return append(dst, block...), nil
	}

	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(compressed)))
	dst = append(dst, hdr[:]...)
	return append(dst, compressed...), nil
}

// Decode reverses Encode. t must be the type the image was encoded with.
func Decode(data []byte, t Type) ([]byte, error) {
	var out []byte
	for off := 0; off < len(data); {
		if len(data)-off < blockHeaderSize {
			return nil, fmt.Errorf("%w: truncated header at offset %d", ErrCorrupt, off)
		}
		uncompressedSize := int(binary.LittleEndian.Uint32(data[off:]))
		compressedSize := int(binary.LittleEndian.Uint32(data[off+4:]))
		off += blockHeaderSize

		if compressedSize == 0 {
			if len(data)-off < uncompressedSize {
				return nil, fmt.Errorf("%w: raw block extends beyond data", ErrCorrupt)
			}
			out = append(out, data[off:off+uncompressedSize]...)
			off += uncompressedSize
			continue
		}

		if len(data)-off < compressedSize {
			return nil, fmt.Errorf("%w: compressed block extends beyond data", ErrCorrupt)
		}
		block, err := decodeBlock(data[off:off+compressedSize], uncompressedSize, t)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
		off += compressedSize
	}
	return out, nil
}

func decodeBlock(src []byte, size int, t Type) ([]byte, error) {
	result := make([]byte, size)

	switch t {
	case LZ4:
		n, err := lz4.UncompressBlock(src, result)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if n != size {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return result, nil

	case Zstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)

		decoded, err := dec.DecodeAll(src, result[:0])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if len(decoded) != size {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return decoded, nil

	default:
		return nil, fmt.Errorf("%w: compressed block in %s image", ErrCorrupt, t)
	}
}
