// Package keygen formats a 64-character hex digest as a hex key, a
// version-4-shaped UUID or a bounded integer.
package keygen

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Default integer range offered by the interactive UI.
const (
	DefaultMin uint32 = 0
	DefaultMax uint32 = 1_000_000
)

const digestLen = 64

var (
	ErrMalformedDigest = errors.New("keygen: digest must be 64 lowercase hex characters")
	ErrInvalidRange    = errors.New("keygen: min must not exceed max")
)

type Kind int

const (
	Hex Kind = iota
	UUID
	Int
)

func (k Kind) String() string {
	switch k {
	case Hex:
		return "HEX"
	case UUID:
		return "UUID"
	case Int:
		return "INT"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hex":
		return Hex, nil
	case "uuid":
		return UUID, nil
	case "int", "integer":
		return Int, nil
	}
	return 0, fmt.Errorf("keygen: unknown output kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Request selects the output format. Min and Max only apply to Int.
type Request struct {
	Kind Kind
	Min  uint32
	Max  uint32
}

func DefaultRequest(kind Kind) Request {
	return Request{Kind: kind, Min: DefaultMin, Max: DefaultMax}
}

func (r Request) Validate() error {
	if r.Kind == Int && r.Min > r.Max {
		return fmt.Errorf("%w: %d > %d", ErrInvalidRange, r.Min, r.Max)
	}
	return nil
}

// Format renders digest h per the request.
func Format(h string, req Request) (string, error) {
	if len(h) != digestLen || !isLowerHex(h) {
		return "", fmt.Errorf("%w: got %d chars", ErrMalformedDigest, len(h))
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	switch req.Kind {
	case Hex:
		return h, nil
	case UUID:
		return FormatUUID(h)
	case Int:
		n, err := BoundedInt(h, req.Min, req.Max)
		if err != nil {
			return "", err
		}
		return strconv.FormatUint(uint64(n), 10), nil
	}
	return "", fmt.Errorf("keygen: unknown output kind %s", req.Kind)
}

// FormatUUID lays the first 32 digest characters out as a UUID with the
// version nibble forced to 4 and the variant nibble to 8..b. Only the shape
// is RFC 4122; the bits come straight from the digest.
func FormatUUID(h string) (string, error) {
	if len(h) < 32 || !isLowerHex(h[:32]) {
		return "", ErrMalformedDigest
	}
	variant := (hexNibble(h[16]) & 0x3) | 0x8

	var b strings.Builder
	b.Grow(36)
	b.WriteString(h[0:8])
	b.WriteByte('-')
	b.WriteString(h[8:12])
	b.WriteString("-4")
	b.WriteString(h[13:16])
	b.WriteByte('-')
	b.WriteByte("0123456789abcdef"[variant])
	b.WriteString(h[17:20])
	b.WriteByte('-')
	b.WriteString(h[20:32])
	return b.String(), nil
}

// BoundedInt scales the first 32 digest bits into [min, max]:
//
//	floor(s / 0xFFFFFFFF * (max - min + 1)) + min
//
// The scaling is slightly biased. s = 0xFFFFFFFF would land on max+1 and is
// clamped to max.
func BoundedInt(h string, min, max uint32) (uint32, error) {
	if min > max {
		return 0, fmt.Errorf("%w: %d > %d", ErrInvalidRange, min, max)
	}
	if len(h) < 8 || !isLowerHex(h[:8]) {
		return 0, ErrMalformedDigest
	}
	s, err := strconv.ParseUint(h[:8], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedDigest, err)
	}

	span := uint64(max) - uint64(min) + 1
	f := float64(s) / float64(math.MaxUint32)
	v := uint64(math.Floor(f*float64(span))) + uint64(min)
	if v > uint64(max) {
		v = uint64(max)
	}
	return uint32(v), nil
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func hexNibble(c byte) byte {
	if c >= 'a' {
		return c - 'a' + 10
	}
	return c - '0'
}
