// Package services contains server-side business logic. This file implements
// UserService, which runs logins through the authentication core with
// transactional lockout bookkeeping and manages user credentials.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/dmitrijs2005/stockkeeper/internal/dbx"
	"github.com/dmitrijs2005/stockkeeper/internal/logging"
	"github.com/dmitrijs2005/stockkeeper/internal/server/auth"
	"github.com/dmitrijs2005/stockkeeper/internal/server/config"
	"github.com/dmitrijs2005/stockkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/stockkeeper/internal/server/repositories/repomanager"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPSecretSize is the number of random bytes in an enrolment secret.
const TOTPSecretSize = 20

// LoginOutcome is what a login attempt yields. Token and Session are set only
// when Outcome is auth.OutcomeSuccess.
type LoginOutcome struct {
	Outcome auth.Outcome
	Token   string
	Session *auth.SessionPayload
}

// Enrollment is the result of TOTP self-enrolment. Token is a provisional session.
type Enrollment struct {
	Username   string
	Secret     string
	OTPAuthURL string
	Token      string
	Session    *auth.SessionPayload
}

// UserService provides authentication-related operations:
// - Login: verify a code and mint a session, persisting lockout state
// - Enroll: issue a TOTP secret when self-enrolment is enabled
// - SetupCode / CreateUser / ChangeCode: write fixed-code credentials
// - Exists / CurrentUser / IsAdmin: lookups for the HTTP layer
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	coordinator *auth.Coordinator
	logger      logging.Logger

	adminUsername string
	setupToken    string
	allowEnroll   bool
	issuer        string
	totpStep      time.Duration

	now func() time.Time
}

// NewUserService constructs a UserService using repositories, the
// authentication core and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, c *auth.Coordinator, cfg *config.Config, l logging.Logger) *UserService {
	return &UserService{
		db:            db,
		repomanager:   m,
		coordinator:   c,
		logger:        l.With("module", "users"),
		adminUsername: cfg.AdminUsername,
		setupToken:    cfg.AdminSetupToken,
		allowEnroll:   cfg.AllowEnroll,
		issuer:        cfg.TOTPIssuer,
		totpStep:      cfg.TOTPStep,
		now:           time.Now,
	}
}

// Login verifies code for username. The user row is locked for the whole
// read-verify-write cycle, so concurrent attempts cannot lose a failure
// count. Expected rejections come back as outcomes with a nil error.
func (s *UserService) Login(ctx context.Context, username, code string) (*LoginOutcome, error) {
	now := s.now()

	var res *auth.LoginResult
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		var cred *auth.Credential
		user, err := repo.GetForUpdate(ctx, username)
		switch {
		case err == nil:
			cred = user.Credential()
		case !errors.Is(err, common.ErrorNotFound):
			return fmt.Errorf("error loading user: %w", err)
		}

		res, err = s.coordinator.Login(auth.LoginRequest{
			Username: username,
			Code:     code,
			Record:   cred,
			Now:      now,
			Kind:     auth.SessionLogin,
		})
		if err != nil {
			return err
		}

		if cred != nil && res.Changed {
			if err := repo.UpdateLockout(ctx, username, res.Lockout); err != nil {
				return fmt.Errorf("error saving lockout state: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "login failed", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	metrics.RecordLogin(string(res.Method), res.Outcome.String())
	if res.Changed && res.Lockout.LockedAt(now) {
		metrics.RecordLockout()
		s.logger.Warn(ctx, "account locked", "username", username, "until", res.Lockout.LockedUntil)
	}
	if res.Outcome == auth.OutcomeSuccess {
		metrics.RecordSessionIssued(auth.SessionLogin.String())
	}
	s.logger.Info(ctx, "login", "username", username, "method", string(res.Method), "outcome", res.Outcome.String())

	return &LoginOutcome{Outcome: res.Outcome, Token: res.Token, Session: res.Session}, nil
}

// Enroll stores a fresh TOTP secret for username and returns it together with
// its otpauth URL and a provisional session. It fails with
// common.ErrorEnrollDisabled unless enrolment is allowed, with
// common.ErrorForbidden for the admin account and with common.ErrorConflict
// when the user already has a fixed code or a secret.
func (s *UserService) Enroll(ctx context.Context, username string) (*Enrollment, error) {
	if !s.allowEnroll {
		return nil, common.ErrorEnrollDisabled
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, common.ErrorValidation
	}
	if s.IsAdmin(username) {
		s.logger.Warn(ctx, "enroll rejected for admin account", "username", username)
		return nil, common.ErrorForbidden
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: username,
		Period:      uint(s.totpStep / time.Second),
		SecretSize:  TOTPSecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		s.logger.Error(ctx, "totp generation failed", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	repo := s.repomanager.Users(s.db)
	if err := repo.EnrollTOTPSecret(ctx, username, key.Secret()); err != nil {
		if errors.Is(err, common.ErrorConflict) {
			s.logger.Warn(ctx, "enroll rejected for existing credentials", "username", username)
			return nil, common.ErrorConflict
		}
		s.logger.Error(ctx, "enroll failed", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	payload, token, err := s.coordinator.IssueSession(username, auth.SessionProvisional, s.now())
	if err != nil {
		s.logger.Error(ctx, "session issue failed", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	metrics.RecordCredentialChange("enroll")
	metrics.RecordSessionIssued(auth.SessionProvisional.String())
	s.logger.Info(ctx, "enrolled", "username", username)

	return &Enrollment{
		Username:   username,
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
		Token:      token,
		Session:    payload,
	}, nil
}

// SetupCode sets the fixed code of username, creating the user if needed,
// when adminToken matches the configured setup token. An unset setup token
// disables the operation.
func (s *UserService) SetupCode(ctx context.Context, username, code, adminToken string) error {
	if username == "" || code == "" {
		return common.ErrorValidation
	}
	if s.setupToken == "" || subtle.ConstantTimeCompare([]byte(s.setupToken), []byte(adminToken)) != 1 {
		s.logger.Warn(ctx, "setup rejected", "username", username)
		return common.ErrorForbidden
	}
	if !auth.ValidCode(code) {
		return common.ErrorValidation
	}

	if err := s.writeFixedCode(ctx, username, code, true); err != nil {
		return err
	}

	metrics.RecordCredentialChange("setup")
	s.logger.Info(ctx, "code set up", "username", username)
	return nil
}

// CreateUser creates username with a fixed code, or resets the code of an
// existing user. Only the admin may call it.
func (s *UserService) CreateUser(ctx context.Context, caller, username, code string) error {
	if !s.IsAdmin(caller) {
		return common.ErrorForbidden
	}
	username = strings.TrimSpace(username)
	if username == "" || !auth.ValidCode(code) {
		return common.ErrorValidation
	}

	if err := s.writeFixedCode(ctx, username, code, true); err != nil {
		return err
	}

	metrics.RecordCredentialChange("create")
	s.logger.Info(ctx, "user created", "username", username, "by", caller)
	return nil
}

// ChangeCode replaces the fixed code of an existing user and clears its
// lockout. Only the admin may call it; an unknown user yields
// common.ErrorNotFound.
func (s *UserService) ChangeCode(ctx context.Context, caller, username, code string) error {
	if !s.IsAdmin(caller) {
		return common.ErrorForbidden
	}
	if username == "" || !auth.ValidCode(code) {
		return common.ErrorValidation
	}

	if err := s.writeFixedCode(ctx, username, code, false); err != nil {
		return err
	}

	metrics.RecordCredentialChange("change")
	s.logger.Info(ctx, "code changed", "username", username, "by", caller)
	return nil
}

// Exists reports whether a user record exists. A blank username never does.
func (s *UserService) Exists(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, nil
	}

	exists, err := s.repomanager.Users(s.db).Exists(ctx, username)
	if err != nil {
		s.logger.Error(ctx, "exists check failed", "error", err)
		return false, common.ErrorInternal
	}
	return exists, nil
}

// CurrentUser returns the subject of a valid login session token.
// Provisional enrolment sessions do not count.
func (s *UserService) CurrentUser(token string) (string, bool) {
	return s.coordinator.Authenticate(token, s.now())
}

// IsAdmin compares username with the configured admin, ignoring case.
func (s *UserService) IsAdmin(username string) bool {
	return username != "" && strings.EqualFold(username, s.adminUsername)
}

func (s *UserService) writeFixedCode(ctx context.Context, username, code string, upsert bool) error {
	salt, err := auth.NewSalt()
	if err != nil {
		s.logger.Error(ctx, "salt generation failed", "error", err)
		return common.ErrorInternal
	}
	hash := auth.HashCode(code, salt)

	repo := s.repomanager.Users(s.db)
	if upsert {
		err = repo.UpsertFixedCode(ctx, username, salt, hash)
	} else {
		err = repo.UpdateFixedCode(ctx, username, salt, hash)
	}
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		s.logger.Error(ctx, "credential write failed", "username", username, "error", err)
		return common.ErrorInternal
	}
	return nil
}
