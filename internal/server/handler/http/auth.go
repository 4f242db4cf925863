// Package http provides the HTTP handlers and routing of the board server:
// signup, login and logout, the board list, and board mutations.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/atinyakov/trellix/internal/middleware"
	"github.com/atinyakov/trellix/internal/models"
	"github.com/atinyakov/trellix/internal/service"
	"go.uber.org/zap"
)

// HomePath is where a successful login or signup lands.
const HomePath = "/home"

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// Create registers a new account and returns it.
	// A taken email yields models.ErrDuplicateEmail.
	Create(ctx context.Context, email, password string) (*models.Account, error)
	// Verify returns the account id and true if password matches email.
	Verify(ctx context.Context, email, password string) (string, bool, error)
}

// Sessions issues and clears session cookies.
type Sessions interface {
	Issue(accountID string) (*http.Cookie, error)
	Clear() *http.Cookie
}

// AuthHandler handles HTTP requests for signup, login and logout.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	// Sessions issues the auth cookie after a successful login or signup.
	Sessions Sessions
	// Logger records unexpected failures. May be nil.
	Logger *zap.Logger
}

// formField describes one input of a form.
type formField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// formDescription is returned by the form GET endpoints.
type formDescription struct {
	Action string      `json:"action"`
	Method string      `json:"method"`
	Fields []formField `json:"fields"`
}

func credentialsForm(action string) formDescription {
	return formDescription{
		Action: action,
		Method: http.MethodPost,
		Fields: []formField{
			{Name: "email", Type: "email", Required: true},
			{Name: "password", Type: "password", Required: true},
		},
	}
}

// LoginForm handles GET /login and describes the login form.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, credentialsForm("/login"))
}

// SignupForm handles GET /signup and describes the signup form.
func (h *AuthHandler) SignupForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, credentialsForm("/signup"))
}

// Login handles POST /login.
// It validates the form, verifies the credentials and, on success, sets
// the auth cookie and redirects to the home page. Unknown emails and wrong
// passwords produce the same response.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	email, password := form.Get("email"), form.Get("password")

	if err := service.ValidateLogin(email, password); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}

	accountID, ok, err := h.AuthService.Verify(r.Context(), email, password)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	if !ok {
		writeError(w, r, h.Logger, models.NewValidationError("password", "Invalid email or password."))
		return
	}

	h.startSession(w, r, accountID)
}

// Signup handles POST /signup.
// It validates the form, creates the account and logs the new account in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	email, password := form.Get("email"), form.Get("password")

	if err := service.ValidateSignup(email, password); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}

	account, err := h.AuthService.Create(r.Context(), email, password)
	if errors.Is(err, models.ErrDuplicateEmail) {
		writeError(w, r, h.Logger, models.NewValidationError("email", "An account with this email already exists."))
		return
	}
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}

	h.startSession(w, r, account.ID)
}

// Logout handles POST /logout by clearing the auth cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.Sessions.Clear())
	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, accountID string) {
	cookie, err := h.Sessions.Issue(accountID)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	http.SetCookie(w, cookie)
	http.Redirect(w, r, HomePath, http.StatusSeeOther)
}
