// Package httpapi serves the JSON API of the stock keeper under /api: login,
// logout, session introspection, enrolment and admin-only user management.
// Error responses are plain-text status messages; successes are JSON.
package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/stockkeeper/internal/logging"
	"github.com/dmitrijs2005/stockkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UserService is what the handlers need from services.UserService.
type UserService interface {
	Login(ctx context.Context, username, code string) (*services.LoginOutcome, error)
	Enroll(ctx context.Context, username string) (*services.Enrollment, error)
	SetupCode(ctx context.Context, username, code, adminToken string) error
	CreateUser(ctx context.Context, caller, username, code string) error
	ChangeCode(ctx context.Context, caller, username, code string) error
	Exists(ctx context.Context, username string) (bool, error)
	CurrentUser(token string) (string, bool)
	IsAdmin(username string) bool
}

// Handler holds the dependencies of the API handlers.
type Handler struct {
	users  UserService
	logger logging.Logger
}

func NewHandler(us UserService, l logging.Logger) *Handler {
	return &Handler{users: us, logger: l.With("module", "http_api")}
}

// Routes mounts every endpoint on a fresh chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(h.requestLogger)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", h.Status)
		r.Get("/me", h.Me)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Get("/check", h.Check)
			r.Post("/enroll", h.Enroll)
			r.Post("/setup", h.Setup)

			r.Group(func(r chi.Router) {
				r.Use(h.adminOnly)
				r.Post("/users", h.CreateUser)
				r.Put("/users/{username}", h.ChangeCode)
			})
		})
	})

	return r
}
