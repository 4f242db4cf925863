package http

import (
	"net/http"

	"github.com/atinyakov/trellix/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Handlers groups the handlers mounted by NewRouter.
type Handlers struct {
	Auth   *AuthHandler
	Home   *HomeHandler
	Board  *BoardHandler
	Health *HealthHandler
}

// NewRouter constructs and returns an HTTP handler that serves
// the board API.
//
// Routes:
//
//	GET  /healthz      → Health.Health
//	GET  /login        → Auth.LoginForm
//	POST /login        → Auth.Login
//	GET  /signup       → Auth.SignupForm
//	POST /signup       → Auth.Signup
//	POST /logout       → Auth.Logout
//	GET  /home         → Home.List     (requires session)
//	POST /home         → Home.Create   (requires session)
//	GET  /board/{id}   → Board.Show    (requires session)
//	POST /board/{id}   → Board.Mutate  (requires session)
//
// Middleware chain (applied in order):
//  1. RequestID: tags each request for the logs
//  2. WithRequestLogging(logger): logs incoming requests
//  3. Recoverer: turns panics into 500 responses
//  4. AllowContentType(forms): rejects bodies that are not forms
//  5. RequireAuth(gate): on the protected group only
func NewRouter(h Handlers, gate middleware.Authenticator, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	// Bodies must be forms; requests without a body pass through.
	r.Use(chiMiddleware.AllowContentType("application/x-www-form-urlencoded", "multipart/form-data"))

	r.Get("/healthz", h.Health.Health)

	// Public endpoints
	r.Get("/login", h.Auth.LoginForm)
	r.Post("/login", h.Auth.Login)
	r.Get("/signup", h.Auth.SignupForm)
	r.Post("/signup", h.Auth.Signup)
	r.Post("/logout", h.Auth.Logout)

	// Protected group: requires a valid session cookie
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(gate))

		r.Get("/home", h.Home.List)
		r.Post("/home", h.Home.Create)
		r.Get("/board/{id}", h.Board.Show)
		r.Post("/board/{id}", h.Board.Mutate)
	})

	return r
}
