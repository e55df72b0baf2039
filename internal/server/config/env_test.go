package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseEnv(t *testing.T) {
	t.Run("overrides present variables only", func(t *testing.T) {
		t.Setenv("SESSION_SECRET", "env-secret")
		t.Setenv("DATABASE_URL", "postgres://env")
		t.Setenv("ADMIN_USERNAME", "Boss")
		t.Setenv("ADMIN_SETUP_TOKEN", "tok")
		t.Setenv("LOCKOUT_DURATION", "45m")
		t.Setenv("TOTP_WINDOW", "2")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, "env-secret", cfg.SessionSecret)
		assert.Equal(t, "postgres://env", cfg.DatabaseDSN)
		assert.Equal(t, "Boss", cfg.AdminUsername)
		assert.Equal(t, "tok", cfg.AdminSetupToken)
		assert.Equal(t, 45*time.Minute, cfg.LockoutDuration)
		assert.Equal(t, 2, cfg.TOTPWindow)
		assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
	})

	t.Run("allow enroll requires literal true", func(t *testing.T) {
		for value, want := range map[string]bool{"true": true, "TRUE": true, "1": false, "yes": false, "": false} {
			t.Setenv("ALLOW_ENROLL", value)

			cfg := &Config{AllowEnroll: !want}
			parseEnv(cfg)

			assert.Equal(t, want, cfg.AllowEnroll, "ALLOW_ENROLL=%q", value)
		}
	})

	t.Run("malformed number panics", func(t *testing.T) {
		t.Setenv("LOCKOUT_THRESHOLD", "lots")

		cfg := &Config{}
		require.Panics(t, func() { parseEnv(cfg) })
	})
}
