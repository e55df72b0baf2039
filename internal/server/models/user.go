package models

import (
	"time"

	"github.com/dmitrijs2005/stockkeeper/internal/server/auth"
)

// User is a row of auth_users. Credential columns are nullable: a user has
// either a fixed-code salt+hash pair, a TOTP secret, or nothing yet.
type User struct {
	ID             string     `db:"id"`
	UserName       string     `db:"username"`
	PassSalt       *string    `db:"pass_salt"`
	PassHash       *string    `db:"pass_hash"`
	TOTPSecret     *string    `db:"secret"`
	FailedAttempts int        `db:"failed_attempts"`
	LockedUntil    *time.Time `db:"locked_until"`
	CreatedAt      time.Time  `db:"created_at"`
}

// Credential projects the record onto what the authentication core reads.
func (u *User) Credential() *auth.Credential {
	return &auth.Credential{
		Username:   u.UserName,
		PassSalt:   deref(u.PassSalt),
		PassHash:   deref(u.PassHash),
		TOTPSecret: deref(u.TOTPSecret),
		Lockout: auth.LockoutState{
			FailedAttempts: u.FailedAttempts,
			LockedUntil:    u.LockedUntil,
		},
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
