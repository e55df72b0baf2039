package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/stockkeeper/internal/flagx"
	"github.com/dmitrijs2005/stockkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "30m" and integer nanoseconds are accepted. Absent
// keys leave the corresponding Config field untouched.
type JsonConfig struct {
	EndpointAddrHTTP string          `json:"endpoint_addr_http"`
	EndpointAddrGRPC string          `json:"endpoint_addr_grpc"`
	DatabaseDSN      string          `json:"database_dsn"`
	SessionSecret    string          `json:"session_secret"`
	TOTPStep         *timex.Duration `json:"totp_step"`
	TOTPWindow       *int            `json:"totp_window"`
	LockoutThreshold *int            `json:"lockout_threshold"`
	LockoutDuration  *timex.Duration `json:"lockout_duration"`
	SessionTTL       *timex.Duration `json:"session_ttl"`
	ProvisionalTTL   *timex.Duration `json:"provisional_ttl"`
	AdminUsername    string          `json:"admin_username"`
	AdminSetupToken  string          `json:"admin_setup_token"`
	AllowEnroll      *bool           `json:"allow_enroll"`
	TOTPIssuer       string          `json:"totp_issuer"`
	LogLevel         string          `json:"log_level"`
}

// parseJson loads the file named by -c/-config, if any, and overlays it on
// config. An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFile(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SessionSecret, c.SessionSecret)
	setString(&config.AdminUsername, c.AdminUsername)
	setString(&config.AdminSetupToken, c.AdminSetupToken)
	setString(&config.TOTPIssuer, c.TOTPIssuer)
	setString(&config.LogLevel, c.LogLevel)

	if c.TOTPStep != nil {
		config.TOTPStep = c.TOTPStep.Duration
	}
	if c.TOTPWindow != nil {
		config.TOTPWindow = *c.TOTPWindow
	}
	if c.LockoutThreshold != nil {
		config.LockoutThreshold = *c.LockoutThreshold
	}
	if c.LockoutDuration != nil {
		config.LockoutDuration = c.LockoutDuration.Duration
	}
	if c.SessionTTL != nil {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.ProvisionalTTL != nil {
		config.ProvisionalTTL = c.ProvisionalTTL.Duration
	}
	if c.AllowEnroll != nil {
		config.AllowEnroll = *c.AllowEnroll
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
