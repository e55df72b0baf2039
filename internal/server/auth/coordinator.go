package auth

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultSessionTTL     = 7 * 24 * time.Hour
	DefaultProvisionalTTL = 5 * time.Minute
)

// Outcome classifies a login attempt. Expected authentication failures are
// outcomes, not errors.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeInvalidCode
	OutcomeAccountLocked
	OutcomePasswordNotSet
	OutcomeUserNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeInvalidCode:
		return "invalid_code"
	case OutcomeAccountLocked:
		return "account_locked"
	case OutcomePasswordNotSet:
		return "password_not_set"
	case OutcomeUserNotFound:
		return "user_not_found"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// SessionKind selects the lifetime of a minted session.
type SessionKind int

const (
	// SessionLogin is a regular session after a successful login.
	SessionLogin SessionKind = iota
	// SessionProvisional is the short session handed out during TOTP enrolment.
	SessionProvisional
)

func (k SessionKind) String() string {
	if k == SessionProvisional {
		return "provisional"
	}
	return "login"
}

// Method names the credential path used for a login.
type Method string

const (
	MethodNone      Method = ""
	MethodFixedCode Method = "fixed_code"
	MethodTOTP      Method = "totp"
)

// Credential is the subset of a stored user record the coordinator reads.
type Credential struct {
	Username   string
	PassSalt   string
	PassHash   string
	TOTPSecret string
	Lockout    LockoutState
}

// Method reports which verification path applies. A salt+hash pair takes
// precedence over a TOTP secret when both are present.
func (c *Credential) Method() Method {
	switch {
	case c.PassSalt != "" && c.PassHash != "":
		return MethodFixedCode
	case c.TOTPSecret != "":
		return MethodTOTP
	default:
		return MethodNone
	}
}

// CoordinatorConfig carries every tunable of the authentication core.
type CoordinatorConfig struct {
	SessionSecret    string
	TOTPStep         time.Duration
	TOTPWindow       int
	LockoutThreshold int
	LockoutDuration  time.Duration
	SessionTTL       time.Duration
	ProvisionalTTL   time.Duration
}

// LoginRequest is one attempt. Record is nil when the upstream lookup found
// no user.
type LoginRequest struct {
	Username string
	Code     string
	Record   *Credential
	Now      time.Time
	Kind     SessionKind
}

// LoginResult carries the outcome and, for a known user, the lockout state
// to persist. Session and Token are set only on success.
type LoginResult struct {
	Outcome Outcome
	Method  Method
	Session *SessionPayload
	Token   string
	Lockout LockoutState
	// Changed is true when Lockout differs from the record's stored state.
	Changed bool
}

// Coordinator verifies credentials, applies the lockout policy and mints
// session tokens. It performs no I/O and is safe for concurrent use.
type Coordinator struct {
	secret         string
	totp           TOTPVerifier
	lockout        LockoutPolicy
	sessionTTL     time.Duration
	provisionalTTL time.Duration
}

// NewCoordinator validates cfg and fills defaults for zero durations.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must not be empty")
	}
	if cfg.TOTPWindow < 0 {
		return nil, fmt.Errorf("totp window must not be negative, got %d", cfg.TOTPWindow)
	}
	if cfg.LockoutThreshold < 0 {
		return nil, fmt.Errorf("lockout threshold must not be negative, got %d", cfg.LockoutThreshold)
	}

	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	provisionalTTL := cfg.ProvisionalTTL
	if provisionalTTL <= 0 {
		provisionalTTL = DefaultProvisionalTTL
	}

	return &Coordinator{
		secret:         cfg.SessionSecret,
		totp:           NewTOTPVerifier(cfg.TOTPStep, cfg.TOTPWindow),
		lockout:        NewLockoutPolicy(cfg.LockoutThreshold, cfg.LockoutDuration),
		sessionTTL:     sessionTTL,
		provisionalTTL: provisionalTTL,
	}, nil
}

// Login runs one authentication attempt. The returned error is non-nil only
// for unexpected failures (token signing); all expected rejections are
// reported through Outcome.
func (c *Coordinator) Login(req LoginRequest) (*LoginResult, error) {
	if req.Record == nil {
		return &LoginResult{Outcome: OutcomeUserNotFound}, nil
	}

	rec := req.Record
	method := rec.Method()
	if method == MethodNone {
		return &LoginResult{Outcome: OutcomePasswordNotSet, Lockout: rec.Lockout}, nil
	}

	var matched bool
	switch method {
	case MethodFixedCode:
		matched = VerifyCode(req.Code, rec.PassSalt, rec.PassHash)
	case MethodTOTP:
		matched = c.totp.VerifyAt(rec.TOTPSecret, req.Code, req.Now)
	}

	decision := c.lockout.OnAttempt(rec.Lockout, matched, req.Now)

	res := &LoginResult{
		Method:  method,
		Lockout: decision.State,
		Changed: !decision.State.Equal(rec.Lockout),
	}

	switch {
	case decision.Allowed:
		payload, token, err := c.IssueSession(req.Username, req.Kind, req.Now)
		if err != nil {
			return nil, err
		}
		res.Outcome = OutcomeSuccess
		res.Session = payload
		res.Token = token
	case decision.Locked:
		res.Outcome = OutcomeAccountLocked
	default:
		res.Outcome = OutcomeInvalidCode
	}

	return res, nil
}

// IssueSession mints a token for username whose lifetime depends on kind.
func (c *Coordinator) IssueSession(username string, kind SessionKind, now time.Time) (*SessionPayload, string, error) {
	ttl := c.sessionTTL
	if kind == SessionProvisional {
		ttl = c.provisionalTTL
	}

	payload := &SessionPayload{
		Sub:         username,
		Exp:         now.Add(ttl).Unix(),
		Provisional: kind == SessionProvisional,
	}
	token, err := SignSession(*payload, c.secret)
	if err != nil {
		return nil, "", fmt.Errorf("sign session: %w", err)
	}

	return payload, token, nil
}

// Authenticate returns the subject of a valid, unexpired login session.
// Provisional enrolment sessions are rejected.
func (c *Coordinator) Authenticate(token string, now time.Time) (string, bool) {
	payload, err := VerifySessionAt(token, c.secret, now)
	if err != nil || payload.Sub == "" || payload.Provisional {
		return "", false
	}
	return payload.Sub, true
}
