package auth

import (
	"errors"
	"strings"
)

const base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// ErrInvalidEncoding is returned when a TOTP secret contains a character
// outside the RFC 4648 base32 alphabet.
var ErrInvalidEncoding = errors.New("invalid base32 encoding")

// DecodeBase32 decodes an RFC 4648 base32 string into raw bytes.
//
// Input is case-insensitive; trailing '=' padding and any whitespace are
// stripped before decoding. Every character contributes 5 bits and one byte
// is emitted per 8 accumulated bits. Bits left over at the end (a partial
// final group) are discarded rather than rejected, so this is intentionally
// more lenient than encoding/base32. Secrets produced by EncodeBase32 from
// 20-byte keys are always byte-aligned and never hit that path.
func DecodeBase32(input string) ([]byte, error) {
	s := strings.ToUpper(strings.Join(strings.Fields(input), ""))
	s = strings.TrimRight(s, "=")

	out := make([]byte, 0, len(s)*5/8)

	var buffer uint32
	var bits uint
	for i := 0; i < len(s); i++ {
		val := strings.IndexByte(base32Alphabet, s[i])
		if val < 0 {
			return nil, ErrInvalidEncoding
		}
		buffer = buffer<<5 | uint32(val)
		bits += 5
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(buffer>>bits))
		}
	}

	return out, nil
}

// EncodeBase32 encodes b as RFC 4648 base32 without padding. A final group
// shorter than 5 bits is zero-filled on the right.
func EncodeBase32(b []byte) string {
	var sb strings.Builder
	sb.Grow((len(b)*8 + 4) / 5)

	var buffer uint32
	var bits uint
	for _, c := range b {
		buffer = buffer<<8 | uint32(c)
		bits += 8
		for bits >= 5 {
			bits -= 5
			sb.WriteByte(base32Alphabet[(buffer>>bits)&0x1f])
		}
	}
	if bits > 0 {
		sb.WriteByte(base32Alphabet[(buffer<<(5-bits))&0x1f])
	}

	return sb.String()
}
