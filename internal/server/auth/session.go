package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken covers absent tokens, a wrong segment count and
	// segments that do not decode. Callers must treat it exactly like any
	// other verification failure.
	ErrMalformedToken   = errors.New("malformed session token")
	ErrInvalidSignature = errors.New("invalid session token signature")
	ErrTokenExpired     = errors.New("session token expired")
)

// SessionPayload is the full server-side session: who and until when.
// Exp is in unix seconds. SignSession omits the claim when Exp is zero, and
// such a token never expires.
type SessionPayload struct {
	Sub string `json:"sub"`
	Exp int64  `json:"exp,omitempty"`
	// Provisional marks a short enrolment session. It never authenticates
	// a caller.
	Provisional bool `json:"prv,omitempty"`
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Provisional bool `json:"prv,omitempty"`
}

var sessionParser = jwt.NewParser(
	jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	jwt.WithStrictDecoding(),
	jwt.WithoutClaimsValidation(),
)

// SignSession returns "header.payload.signature" where the header is
// {"alg":"HS256","typ":"JWT"} and the signature is HMAC-SHA256 over the first
// two segments keyed with secret.
func SignSession(payload SessionPayload, secret string) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: payload.Sub},
		Provisional:      payload.Provisional,
	}
	if payload.Exp != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Unix(payload.Exp, 0))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// VerifySession verifies token against the wall clock.
func VerifySession(token, secret string) (*SessionPayload, error) {
	return VerifySessionAt(token, secret, time.Now())
}

// VerifySessionAt checks structure, algorithm and signature of token and then
// its expiry relative to now. Only HS256 is accepted. Signature segments are
// decoded strictly, so no two distinct encodings verify for the same MAC.
// An exp claim is enforced whenever it is present, including "exp":0.
func VerifySessionAt(token, secret string, now time.Time) (*SessionPayload, error) {
	if token == "" || strings.Count(token, ".") != 2 {
		return nil, ErrMalformedToken
	}

	claims := &sessionClaims{}
	_, err := sessionParser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrInvalidSignature
		}
		return nil, ErrMalformedToken
	}

	if claims.ExpiresAt != nil && now.After(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}

	payload := &SessionPayload{Sub: claims.Subject, Provisional: claims.Provisional}
	if claims.ExpiresAt != nil {
		payload.Exp = claims.ExpiresAt.Unix()
	}

	return payload, nil
}
