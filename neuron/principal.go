package neuron

import (
	"bytes"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
)

// MaxPrincipalIDLength is the maximum number of raw bytes in a principal.
const MaxPrincipalIDLength = 29

var (
	// ErrPrincipalIDTooLong is returned when a principal exceeds MaxPrincipalIDLength bytes.
	ErrPrincipalIDTooLong = errors.New("principal id too long")

	// ErrInvalidPrincipalText is returned when the textual form cannot be decoded.
	ErrInvalidPrincipalText = errors.New("invalid principal text")
)

var principalEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// PrincipalID identifies a controller or hot key. The zero value is the
// empty (management) principal.
//
// PrincipalID is comparable and can be used as a map key.
type PrincipalID struct {
	raw [MaxPrincipalIDLength]byte
	n   uint8
}

// PrincipalIDFromBytes copies b into a PrincipalID.
func PrincipalIDFromBytes(b []byte) (PrincipalID, error) {
	if len(b) > MaxPrincipalIDLength {
		return PrincipalID{}, fmt.Errorf("%w: %d bytes", ErrPrincipalIDTooLong, len(b))
	}
	var p PrincipalID
	copy(p.raw[:], b)
	p.n = uint8(len(b))
	return p, nil
}

// MustPrincipalIDFromBytes is like PrincipalIDFromBytes but panics on error.
func MustPrincipalIDFromBytes(b []byte) PrincipalID {
	p, err := PrincipalIDFromBytes(b)
	if err != nil {
		panic(err)
	}
	return p
}

// NewSelfAuthenticatingID derives a principal from an arbitrary seed, the
// way self-authenticating principals are derived from public keys: the
// first 28 bytes of the seed digest followed by the 0x02 class tag.
func NewSelfAuthenticatingID(seed []byte) PrincipalID {
	var p PrincipalID
	sum := seedDigest(seed)
	copy(p.raw[:28], sum[:])
	p.raw[28] = 0x02
	p.n = MaxPrincipalIDLength
	return p
}

// Bytes returns the raw bytes.
func (p PrincipalID) Bytes() []byte {
	out := make([]byte, p.n)
	copy(out, p.raw[:p.n])
	return out
}

// Len returns the number of raw bytes.
func (p PrincipalID) Len() int { return int(p.n) }

// Compare orders principals by their raw bytes.
func (p PrincipalID) Compare(other PrincipalID) int {
	return bytes.Compare(p.raw[:p.n], other.raw[:other.n])
}

// String renders the textual form: base32 of crc32(raw) || raw, lower case,
// grouped by five characters with dashes.
func (p PrincipalID) String() string {
	buf := make([]byte, 4+int(p.n))
	binary.BigEndian.PutUint32(buf, crc32.ChecksumIEEE(p.raw[:p.n]))
	copy(buf[4:], p.raw[:p.n])

	enc := strings.ToLower(principalEncoding.EncodeToString(buf))
	var sb strings.Builder
	for i := 0; i < len(enc); i += 5 {
		if i > 0 {
			sb.WriteByte('-')
		}
		end := min(i+5, len(enc))
		sb.WriteString(enc[i:end])
	}
	return sb.String()
}

// ParsePrincipalID decodes the textual form produced by String.
func ParsePrincipalID(s string) (PrincipalID, error) {
	compact := strings.ToUpper(strings.ReplaceAll(s, "-", ""))
	buf, err := principalEncoding.DecodeString(compact)
	if err != nil {
		return PrincipalID{}, fmt.Errorf("%w: %q: %w", ErrInvalidPrincipalText, s, err)
	}
	if len(buf) < 4 {
		return PrincipalID{}, fmt.Errorf("%w: %q: too short", ErrInvalidPrincipalText, s)
	}
	p, err := PrincipalIDFromBytes(buf[4:])
	if err != nil {
		return PrincipalID{}, err
	}
	if binary.BigEndian.Uint32(buf) != crc32.ChecksumIEEE(buf[4:]) {
		return PrincipalID{}, fmt.Errorf("%w: %q: checksum mismatch", ErrInvalidPrincipalText, s)
	}
	if p.String() != s {
		return PrincipalID{}, fmt.Errorf("%w: %q: not in canonical form", ErrInvalidPrincipalText, s)
	}
	return p, nil
}
