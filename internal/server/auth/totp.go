package auth

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTOTPStep   = 30 * time.Second
	DefaultTOTPWindow = 1

	totpDigits  = 6
	totpModulus = 1_000_000
)

var codePattern = regexp.MustCompile(`^\d{6}$`)

// ValidCode reports whether code is exactly six ASCII digits.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// TOTPVerifier checks RFC 6238 codes (HMAC-SHA1, 6 digits).
//
// Window is the number of steps accepted on each side of the current one and
// absorbs clock drift between the authenticator app and the server.
type TOTPVerifier struct {
	Step   time.Duration
	Window int
}

// NewTOTPVerifier returns a verifier with the given step and window. A zero
// step falls back to DefaultTOTPStep; a negative window is treated as zero.
func NewTOTPVerifier(step time.Duration, window int) TOTPVerifier {
	if step <= 0 {
		step = DefaultTOTPStep
	}
	if window < 0 {
		window = 0
	}
	return TOTPVerifier{Step: step, Window: window}
}

// Verify checks code against the wall clock.
func (v TOTPVerifier) Verify(secretBase32, code string) bool {
	return v.VerifyAt(secretBase32, code, time.Now())
}

// VerifyAt reports whether code matches any time step in
// [counter-Window, counter+Window] for the step containing now.
// It fails closed on malformed codes and undecodable secrets.
func (v TOTPVerifier) VerifyAt(secretBase32, code string, now time.Time) bool {
	code = strings.Join(strings.Fields(code), "")
	if !ValidCode(code) {
		return false
	}
	target, err := strconv.ParseUint(code, 10, 32)
	if err != nil {
		return false
	}

	key, err := DecodeBase32(secretBase32)
	if err != nil {
		return false
	}

	counter := v.counter(now)
	for w := -v.Window; w <= v.Window; w++ {
		c := counter + int64(w)
		if c < 0 {
			continue
		}
		if hotp(key, uint64(c)) == uint32(target) {
			return true
		}
	}

	return false
}

// CodeAt returns the zero-padded code for the step containing now.
func (v TOTPVerifier) CodeAt(secretBase32 string, now time.Time) (string, error) {
	key, err := DecodeBase32(secretBase32)
	if err != nil {
		return "", err
	}
	counter := v.counter(now)
	if counter < 0 {
		return "", fmt.Errorf("time %v precedes the unix epoch", now)
	}
	return fmt.Sprintf("%0*d", totpDigits, hotp(key, uint64(counter))), nil
}

func (v TOTPVerifier) counter(now time.Time) int64 {
	step := int64(v.Step / time.Second)
	if step <= 0 {
		step = int64(DefaultTOTPStep / time.Second)
	}
	return now.Unix() / step
}

// hotp computes the RFC 4226 value for counter, reduced to six digits.
func hotp(key []byte, counter uint64) uint32 {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return bin % totpModulus
}
