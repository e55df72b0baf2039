package common

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString returns size crypto-random bytes as a lower-case hex
// string of length 2*size. It fails only if the system RNG does.
func MakeRandHexString(size int) (string, error) {
	b, err := GenerateRandByteArray(size)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateRandByteArray returns size crypto-random bytes.
func GenerateRandByteArray(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
