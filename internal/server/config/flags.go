package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/stockkeeper/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC health bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   session signing secret
//	-t int      TOTP step, seconds
//	-w int      TOTP window, steps on each side
//	-l int      lockout threshold, consecutive failures
//	-m int      lockout duration, minutes
//	-e int      session lifetime, seconds
//	-p int      provisional session lifetime, seconds
//	-u string   admin username
//	-k string   admin setup token
//	-n bool     allow TOTP enrolment (use -n=true)
//	-i string   TOTP issuer label
//	-v string   log level
//
// os.Args is filtered with flagx.FilterArgs first, so flags owned by other
// components do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-g", "-d", "-s", "-t", "-w", "-l", "-m", "-e", "-p", "-u", "-k", "-n", "-i", "-v",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port to run server")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SessionSecret, "s", config.SessionSecret, "session signing secret")

	totpStep := fs.Int("t", int(config.TOTPStep.Seconds()), "totp step (in seconds)")
	fs.IntVar(&config.TOTPWindow, "w", config.TOTPWindow, "totp window (steps on each side)")
	fs.IntVar(&config.LockoutThreshold, "l", config.LockoutThreshold, "consecutive failures before lockout")
	lockoutDuration := fs.Int("m", int(config.LockoutDuration.Minutes()), "lockout duration (in minutes)")
	sessionTTL := fs.Int("e", int(config.SessionTTL.Seconds()), "session lifetime (in seconds)")
	provisionalTTL := fs.Int("p", int(config.ProvisionalTTL.Seconds()), "provisional session lifetime (in seconds)")

	fs.StringVar(&config.AdminUsername, "u", config.AdminUsername, "admin username")
	fs.StringVar(&config.AdminSetupToken, "k", config.AdminSetupToken, "admin setup token")
	fs.BoolVar(&config.AllowEnroll, "n", config.AllowEnroll, "allow totp enrolment")
	fs.StringVar(&config.TOTPIssuer, "i", config.TOTPIssuer, "totp issuer label")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TOTPStep = time.Duration(*totpStep) * time.Second
	config.LockoutDuration = time.Duration(*lockoutDuration) * time.Minute
	config.SessionTTL = time.Duration(*sessionTTL) * time.Second
	config.ProvisionalTTL = time.Duration(*provisionalTTL) * time.Second
}
