package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
)

// SaltSize is the number of random bytes in a fixed-code salt (32 hex chars).
const SaltSize = 16

// HashCode derives the stored digest for a fixed 6-digit code:
// base64url (no padding) of SHA-256("salt:code").
func HashCode(code, salt string) string {
	sum := sha256.Sum256([]byte(salt + ":" + code))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyCode recomputes the digest for code and compares it to expectedHash
// in constant time.
func VerifyCode(code, salt, expectedHash string) bool {
	calc := HashCode(code, salt)
	return subtle.ConstantTimeCompare([]byte(calc), []byte(expectedHash)) == 1
}

// NewSalt returns SaltSize crypto-random bytes, hex-encoded.
func NewSalt() (string, error) {
	return common.MakeRandHexString(SaltSize)
}
