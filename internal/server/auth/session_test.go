package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_ScenarioC(t *testing.T) {
	now := time.Unix(1760000000, 0)

	token, err := SignSession(SessionPayload{Sub: "alice", Exp: now.Add(600 * time.Second).Unix()}, "s3cr3t")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	header, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"alg":"HS256","typ":"JWT"}`, string(header))

	payload, err := VerifySessionAt(token, "s3cr3t", now)
	require.NoError(t, err)
	assert.Equal(t, "alice", payload.Sub)
	assert.Equal(t, now.Unix()+600, payload.Exp)

	_, err = VerifySessionAt(token, "other", now)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = VerifySessionAt(token, "s3cr3t", now.Add(601*time.Second))
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestSession_Expiry(t *testing.T) {
	now := time.Unix(1760000000, 0)

	tests := []struct {
		name    string
		exp     int64
		wantErr error
	}{
		{name: "past", exp: now.Unix() - 1, wantErr: ErrTokenExpired},
		{name: "boundary", exp: now.Unix()},
		{name: "future", exp: now.Unix() + 3600},
		{name: "no expiry", exp: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := SignSession(SessionPayload{Sub: "alice", Exp: tt.exp}, "k")
			require.NoError(t, err)

			got, err := VerifySessionAt(token, "k", now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.exp, got.Exp)
		})
	}
}

func TestSession_RejectsEverySingleCharacterFlip(t *testing.T) {
	now := time.Unix(1760000000, 0)
	token, err := SignSession(SessionPayload{Sub: "alice", Exp: now.Unix() + 600}, "s3cr3t")
	require.NoError(t, err)

	for i := 0; i < len(token); i++ {
		if token[i] == '.' {
			continue
		}
		repl := byte('A')
		if token[i] == 'A' {
			repl = 'B'
		}
		tampered := token[:i] + string(repl) + token[i+1:]

		_, err := VerifySessionAt(tampered, "s3cr3t", now)
		assert.Error(t, err, "flip at %d accepted", i)
	}
}

func TestSession_RejectsOtherAlgorithms(t *testing.T) {
	now := time.Unix(1760000000, 0)
	claims := jwt.RegisteredClaims{Subject: "alice", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("s3cr3t"))
	require.NoError(t, err)
	_, err = VerifySessionAt(hs512, "s3cr3t", now)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = VerifySessionAt(none, "s3cr3t", now)
	assert.Error(t, err)
}

func TestSession_ZeroExpClaimIsEnforced(t *testing.T) {
	now := time.Unix(1760000000, 0)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice", "exp": 0}).
		SignedString([]byte("s3cr3t"))
	require.NoError(t, err)

	_, err = VerifySessionAt(token, "s3cr3t", now)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestSession_ProvisionalMarker(t *testing.T) {
	now := time.Unix(1760000000, 0)

	token, err := SignSession(SessionPayload{Sub: "alice", Exp: now.Unix() + 300, Provisional: true}, "k")
	require.NoError(t, err)

	body, err := base64.RawURLEncoding.DecodeString(strings.Split(token, ".")[1])
	require.NoError(t, err)
	assert.Contains(t, string(body), `"prv":true`)

	got, err := VerifySessionAt(token, "k", now)
	require.NoError(t, err)
	assert.True(t, got.Provisional)

	plain, err := SignSession(SessionPayload{Sub: "alice", Exp: now.Unix() + 300}, "k")
	require.NoError(t, err)
	body, err = base64.RawURLEncoding.DecodeString(strings.Split(plain, ".")[1])
	require.NoError(t, err)
	assert.NotContains(t, string(body), "prv")
}

func TestSession_Malformed(t *testing.T) {
	now := time.Now()
	for _, token := range []string{"", "abc", "a.b", "a.b.c.d", "..", "!!.??.##"} {
		_, err := VerifySessionAt(token, "k", now)
		assert.ErrorIs(t, err, ErrMalformedToken, "token %q", token)
	}
}

func TestVerifySession_WallClock(t *testing.T) {
	token, err := SignSession(SessionPayload{Sub: "bob", Exp: time.Now().Add(time.Minute).Unix()}, "k")
	require.NoError(t, err)

	got, err := VerifySession(token, "k")
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Sub)
}
