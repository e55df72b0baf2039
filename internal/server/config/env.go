package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envConfig lists the environment variables the server honours. Pointer
// fields stay nil when the variable is unset, so only present variables
// override earlier layers.
type envConfig struct {
	EndpointAddrHTTP *string        `envconfig:"HTTP_ADDRESS"`
	EndpointAddrGRPC *string        `envconfig:"GRPC_ADDRESS"`
	DatabaseDSN      *string        `envconfig:"DATABASE_URL"`
	SessionSecret    *string        `envconfig:"SESSION_SECRET"`
	TOTPStep         *time.Duration `envconfig:"TOTP_STEP"`
	TOTPWindow       *int           `envconfig:"TOTP_WINDOW"`
	LockoutThreshold *int           `envconfig:"LOCKOUT_THRESHOLD"`
	LockoutDuration  *time.Duration `envconfig:"LOCKOUT_DURATION"`
	SessionTTL       *time.Duration `envconfig:"SESSION_TTL"`
	ProvisionalTTL   *time.Duration `envconfig:"PROVISIONAL_TTL"`
	AdminUsername    *string        `envconfig:"ADMIN_USERNAME"`
	AdminSetupToken  *string        `envconfig:"ADMIN_SETUP_TOKEN"`
	AllowEnroll      *string        `envconfig:"ALLOW_ENROLL"`
	TOTPIssuer       *string        `envconfig:"TOTP_ISSUER"`
	LogLevel         *string        `envconfig:"LOG_LEVEL"`
}

// parseEnv overlays environment variables on config. A malformed value panics.
func parseEnv(config *Config) {
	var e envConfig
	if err := envconfig.Process("", &e); err != nil {
		panic(err)
	}
	e.apply(config)
}

func (e *envConfig) apply(config *Config) {
	setStringPtr(&config.EndpointAddrHTTP, e.EndpointAddrHTTP)
	setStringPtr(&config.EndpointAddrGRPC, e.EndpointAddrGRPC)
	setStringPtr(&config.DatabaseDSN, e.DatabaseDSN)
	setStringPtr(&config.SessionSecret, e.SessionSecret)
	setStringPtr(&config.AdminUsername, e.AdminUsername)
	setStringPtr(&config.AdminSetupToken, e.AdminSetupToken)
	setStringPtr(&config.TOTPIssuer, e.TOTPIssuer)
	setStringPtr(&config.LogLevel, e.LogLevel)

	if e.TOTPStep != nil {
		config.TOTPStep = *e.TOTPStep
	}
	if e.TOTPWindow != nil {
		config.TOTPWindow = *e.TOTPWindow
	}
	if e.LockoutThreshold != nil {
		config.LockoutThreshold = *e.LockoutThreshold
	}
	if e.LockoutDuration != nil {
		config.LockoutDuration = *e.LockoutDuration
	}
	if e.SessionTTL != nil {
		config.SessionTTL = *e.SessionTTL
	}
	if e.ProvisionalTTL != nil {
		config.ProvisionalTTL = *e.ProvisionalTTL
	}
	// Enrolment is on only for the literal "true", in any case.
	if e.AllowEnroll != nil {
		config.AllowEnroll = strings.EqualFold(strings.TrimSpace(*e.AllowEnroll), "true")
	}
}

func setStringPtr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
