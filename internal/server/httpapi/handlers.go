package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/dmitrijs2005/stockkeeper/internal/server/auth"
	"github.com/go-chi/chi/v5"
)

// code accepts a JSON string or a bare number, so {"code":123456} and
// {"code":"123456"} are equivalent.
type code string

func (c *code) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = code(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = code(n.String())
	return nil
}

type loginRequest struct {
	Username string `json:"username"`
	Code     code   `json:"code"`
}

type enrollRequest struct {
	Username string `json:"username"`
}

type setupRequest struct {
	Username   string `json:"username"`
	Code       code   `json:"code"`
	AdminToken string `json:"adminToken"`
}

type createUserRequest struct {
	Username string `json:"username"`
	Code     code   `json:"code"`
}

type changeCodeRequest struct {
	Code code `json:"code"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type statusResponse struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg"`
}

type checkResponse struct {
	Exists bool `json:"exists"`
}

type enrollResponse struct {
	OK         bool   `json:"ok"`
	Username   string `json:"username"`
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}

type meUser struct {
	Username string `json:"username"`
}

type meResponse struct {
	Authenticated bool    `json:"authenticated"`
	User          *meUser `json:"user,omitempty"`
}

// Status handles GET /api.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{OK: true, Msg: "API online"})
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Username == "" || req.Code == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !auth.ValidCode(string(req.Code)) {
		http.Error(w, "invalid code", http.StatusBadRequest)
		return
	}

	out, err := h.users.Login(r.Context(), req.Username, string(req.Code))
	if err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}

	switch out.Outcome {
	case auth.OutcomeSuccess:
		setSessionCookie(w, out.Token)
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	case auth.OutcomeUserNotFound:
		http.Error(w, "user not found", http.StatusNotFound)
	case auth.OutcomeAccountLocked:
		http.Error(w, "account locked", http.StatusForbidden)
	case auth.OutcomePasswordNotSet:
		http.Error(w, "password not set", http.StatusBadRequest)
	default:
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// Check handles GET /api/auth/check?username=.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	exists, err := h.users.Exists(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, checkResponse{Exists: exists})
}

// Enroll handles POST /api/auth/enroll.
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	e, err := h.users.Enroll(r.Context(), req.Username)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorEnrollDisabled):
			http.Error(w, "enroll disabled", http.StatusForbidden)
		case errors.Is(err, common.ErrorValidation):
			http.Error(w, "username required", http.StatusBadRequest)
		case errors.Is(err, common.ErrorForbidden):
			http.Error(w, "forbidden", http.StatusForbidden)
		case errors.Is(err, common.ErrorConflict):
			http.Error(w, "already enrolled", http.StatusConflict)
		default:
			http.Error(w, "error", http.StatusInternalServerError)
		}
		return
	}

	setSessionCookie(w, e.Token)
	writeJSON(w, http.StatusOK, enrollResponse{OK: true, Username: e.Username, Secret: e.Secret, OTPAuthURL: e.OTPAuthURL})
}

// Setup handles POST /api/auth/setup.
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	err := h.users.SetupCode(r.Context(), req.Username, string(req.Code), req.AdminToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// CreateUser handles POST /api/auth/users. Admin only.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	err := h.users.CreateUser(r.Context(), callerFrom(r.Context()), req.Username, string(req.Code))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// ChangeCode handles PUT /api/auth/users/{username}. Admin only.
func (h *Handler) ChangeCode(w http.ResponseWriter, r *http.Request) {
	var req changeCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	username := chi.URLParam(r, "username")
	err := h.users.ChangeCode(r.Context(), callerFrom(r.Context()), username, string(req.Code))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// Me handles GET /api/me. The session signature and expiry are verified;
// any failure reports an anonymous caller.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	username, ok := h.users.CurrentUser(sessionToken(r))
	if !ok {
		writeJSON(w, http.StatusOK, meResponse{Authenticated: false})
		return
	}
	writeJSON(w, http.StatusOK, meResponse{Authenticated: true, User: &meUser{Username: username}})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		http.Error(w, "bad request", http.StatusBadRequest)
	case errors.Is(err, common.ErrorForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, common.ErrorNotFound):
		http.Error(w, "user not found", http.StatusNotFound)
	default:
		http.Error(w, "error", http.StatusInternalServerError)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
