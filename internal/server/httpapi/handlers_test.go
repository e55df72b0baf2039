package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/dmitrijs2005/stockkeeper/internal/logging"
	"github.com/dmitrijs2005/stockkeeper/internal/server/auth"
	"github.com/dmitrijs2005/stockkeeper/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserService struct {
	loginOut  *services.LoginOutcome
	loginErr  error
	loginArgs [2]string

	enrollOut *services.Enrollment
	enrollErr error

	setupErr  error
	createErr error
	changeErr error
	lastCall  []string

	exists    bool
	existsErr error

	sessions map[string]string
	admin    string
}

func (f *fakeUserService) Login(ctx context.Context, username, code string) (*services.LoginOutcome, error) {
	f.loginArgs = [2]string{username, code}
	return f.loginOut, f.loginErr
}

func (f *fakeUserService) Enroll(ctx context.Context, username string) (*services.Enrollment, error) {
	return f.enrollOut, f.enrollErr
}

func (f *fakeUserService) SetupCode(ctx context.Context, username, code, adminToken string) error {
	f.lastCall = []string{username, code, adminToken}
	return f.setupErr
}

func (f *fakeUserService) CreateUser(ctx context.Context, caller, username, code string) error {
	f.lastCall = []string{caller, username, code}
	return f.createErr
}

func (f *fakeUserService) ChangeCode(ctx context.Context, caller, username, code string) error {
	f.lastCall = []string{caller, username, code}
	return f.changeErr
}

func (f *fakeUserService) Exists(ctx context.Context, username string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeUserService) CurrentUser(token string) (string, bool) {
	u, ok := f.sessions[token]
	return u, ok
}

func (f *fakeUserService) IsAdmin(username string) bool {
	return username != "" && strings.EqualFold(username, f.admin)
}

func newTestRouter(f *fakeUserService) http.Handler {
	if f.sessions == nil {
		f.sessions = map[string]string{}
	}
	return NewHandler(f, logging.Nop{}).Routes()
}

func do(t *testing.T, h http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestStatus(t *testing.T) {
	h := newTestRouter(&fakeUserService{})

	rec := do(t, h, http.MethodGet, "/api", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"msg":"API online"}`, rec.Body.String())
}

func TestLogin_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		out      *services.LoginOutcome
		err      error
		wantCode int
		wantBody string
	}{
		{name: "malformed json", body: `{`, wantCode: http.StatusBadRequest, wantBody: "bad request"},
		{name: "missing username", body: `{"code":"123456"}`, wantCode: http.StatusBadRequest, wantBody: "bad request"},
		{name: "missing code", body: `{"username":"ana"}`, wantCode: http.StatusBadRequest, wantBody: "bad request"},
		{name: "five digits", body: `{"username":"ana","code":"12345"}`, wantCode: http.StatusBadRequest, wantBody: "invalid code"},
		{name: "letters", body: `{"username":"ana","code":"12a456"}`, wantCode: http.StatusBadRequest, wantBody: "invalid code"},
		{name: "unknown user", body: `{"username":"ana","code":"123456"}`,
			out: &services.LoginOutcome{Outcome: auth.OutcomeUserNotFound}, wantCode: http.StatusNotFound, wantBody: "user not found"},
		{name: "locked", body: `{"username":"ana","code":"123456"}`,
			out: &services.LoginOutcome{Outcome: auth.OutcomeAccountLocked}, wantCode: http.StatusForbidden, wantBody: "account locked"},
		{name: "no password", body: `{"username":"ana","code":"123456"}`,
			out: &services.LoginOutcome{Outcome: auth.OutcomePasswordNotSet}, wantCode: http.StatusBadRequest, wantBody: "password not set"},
		{name: "wrong code", body: `{"username":"ana","code":"123456"}`,
			out: &services.LoginOutcome{Outcome: auth.OutcomeInvalidCode}, wantCode: http.StatusUnauthorized, wantBody: "invalid credentials"},
		{name: "internal", body: `{"username":"ana","code":"123456"}`,
			err: common.ErrorInternal, wantCode: http.StatusInternalServerError, wantBody: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&fakeUserService{loginOut: tt.out, loginErr: tt.err})

			rec := do(t, h, http.MethodPost, "/api/auth/login", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantBody, strings.TrimSpace(rec.Body.String()))
			assert.Empty(t, rec.Result().Cookies())
		})
	}
}

func TestLogin_SuccessSetsCookie(t *testing.T) {
	f := &fakeUserService{loginOut: &services.LoginOutcome{Outcome: auth.OutcomeSuccess, Token: "a.b.c"}}
	h := newTestRouter(f)

	rec := do(t, h, http.MethodPost, "/api/auth/login", `{"username":"ana","code":123456}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, [2]string{"ana", "123456"}, f.loginArgs)

	c := sessionCookieFrom(t, rec)
	assert.Equal(t, "a.b.c", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}

func TestLogout_ClearsCookie(t *testing.T) {
	h := newTestRouter(&fakeUserService{})

	rec := do(t, h, http.MethodPost, "/api/auth/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)

	header := rec.Header().Get("Set-Cookie")
	assert.Contains(t, header, "session=;")
	assert.Contains(t, header, "Max-Age=0")
	assert.Contains(t, header, "HttpOnly")
}

func TestCheck(t *testing.T) {
	h := newTestRouter(&fakeUserService{exists: true})
	rec := do(t, h, http.MethodGet, "/api/auth/check?username=ana", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"exists":true}`, rec.Body.String())

	h = newTestRouter(&fakeUserService{existsErr: common.ErrorInternal})
	rec = do(t, h, http.MethodGet, "/api/auth/check?username=ana", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestEnroll(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		h := newTestRouter(&fakeUserService{enrollErr: common.ErrorEnrollDisabled})
		rec := do(t, h, http.MethodPost, "/api/auth/enroll", `{"username":"ana"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "enroll disabled", strings.TrimSpace(rec.Body.String()))
	})

	t.Run("missing username", func(t *testing.T) {
		h := newTestRouter(&fakeUserService{enrollErr: common.ErrorValidation})
		rec := do(t, h, http.MethodPost, "/api/auth/enroll", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("admin account", func(t *testing.T) {
		h := newTestRouter(&fakeUserService{enrollErr: common.ErrorForbidden})
		rec := do(t, h, http.MethodPost, "/api/auth/enroll", `{"username":"boss"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("existing credentials", func(t *testing.T) {
		h := newTestRouter(&fakeUserService{enrollErr: common.ErrorConflict})
		rec := do(t, h, http.MethodPost, "/api/auth/enroll", `{"username":"ana"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "already enrolled", strings.TrimSpace(rec.Body.String()))
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("success", func(t *testing.T) {
		h := newTestRouter(&fakeUserService{enrollOut: &services.Enrollment{
			Username: "ana", Secret: "JBSWY3DPEHPK3PXP", OTPAuthURL: "otpauth://totp/x", Token: "p.q.r",
		}})
		rec := do(t, h, http.MethodPost, "/api/auth/enroll", `{"username":"ana"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, "JBSWY3DPEHPK3PXP", body["secret"])
		assert.Equal(t, "otpauth://totp/x", body["otpauthUrl"])
		assert.Equal(t, "p.q.r", sessionCookieFrom(t, rec).Value)
	})
}

func TestSetup(t *testing.T) {
	f := &fakeUserService{}
	h := newTestRouter(f)

	rec := do(t, h, http.MethodPost, "/api/auth/setup", `{"username":"ana","code":"123456","adminToken":"tok"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"ana", "123456", "tok"}, f.lastCall)

	f.setupErr = common.ErrorForbidden
	rec = do(t, h, http.MethodPost, "/api/auth/setup", `{"username":"ana","code":"123456","adminToken":"bad"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	f.setupErr = common.ErrorValidation
	rec = do(t, h, http.MethodPost, "/api/auth/setup", `{"username":"ana","code":"1","adminToken":"tok"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsers_AdminOnly(t *testing.T) {
	f := &fakeUserService{admin: "boss", sessions: map[string]string{"admin-tok": "Boss", "user-tok": "ana"}}
	h := newTestRouter(f)

	rec := do(t, h, http.MethodPost, "/api/auth/users", `{"username":"ben","code":"123456"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code, "no session")

	rec = do(t, h, http.MethodPost, "/api/auth/users", `{"username":"ben","code":"123456"}`,
		&http.Cookie{Name: sessionCookieName, Value: "user-tok"})
	assert.Equal(t, http.StatusForbidden, rec.Code, "non-admin session")
	assert.Nil(t, f.lastCall)

	rec = do(t, h, http.MethodPost, "/api/auth/users", `{"username":"ben","code":"123456"}`,
		&http.Cookie{Name: sessionCookieName, Value: "admin-tok"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Boss", "ben", "123456"}, f.lastCall)
}

func TestUsers_ChangeCode(t *testing.T) {
	f := &fakeUserService{admin: "boss", sessions: map[string]string{"admin-tok": "boss"}}
	h := newTestRouter(f)
	admin := &http.Cookie{Name: sessionCookieName, Value: "admin-tok"}

	rec := do(t, h, http.MethodPut, "/api/auth/users/ben", `{"code":"654321"}`, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"boss", "ben", "654321"}, f.lastCall)

	f.changeErr = common.ErrorNotFound
	rec = do(t, h, http.MethodPut, "/api/auth/users/ghost", `{"code":"654321"}`, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.changeErr = common.ErrorValidation
	rec = do(t, h, http.MethodPut, "/api/auth/users/ben", `{"code":"x"}`, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMe(t *testing.T) {
	h := newTestRouter(&fakeUserService{sessions: map[string]string{"good": "ana"}})

	rec := do(t, h, http.MethodGet, "/api/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"authenticated":false}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/me", "", &http.Cookie{Name: sessionCookieName, Value: "forged"})
	assert.JSONEq(t, `{"authenticated":false}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/me", "", &http.Cookie{Name: sessionCookieName, Value: "good"})
	assert.JSONEq(t, `{"authenticated":true,"user":{"username":"ana"}}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(&fakeUserService{})

	rec := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
