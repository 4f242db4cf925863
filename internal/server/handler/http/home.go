package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/atinyakov/trellix/internal/intent"
	"github.com/atinyakov/trellix/internal/middleware"
	"github.com/atinyakov/trellix/internal/models"
	"go.uber.org/zap"
)

// BoardReader reads boards on behalf of their owner.
type BoardReader interface {
	// ListBoards returns the boards owned by ownerID.
	ListBoards(ctx context.Context, ownerID string) ([]models.Board, error)
	// Board returns a board with its contents, or models.ErrNotFound when
	// it is missing or owned by someone else.
	Board(ctx context.Context, ownerID string, boardID int64) (*models.Board, error)
}

// Dispatcher applies a parsed intent for an account.
type Dispatcher interface {
	Dispatch(ctx context.Context, accountID string, in intent.Intent) (intent.Outcome, error)
}

// HomeHandler serves the board list of the logged-in account.
type HomeHandler struct {
	Boards     BoardReader
	Dispatcher Dispatcher
	Logger     *zap.Logger
}

// homeResult is the response of the board creation form.
type homeResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// List handles GET /home.
func (h *HomeHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountIDFromContext(r.Context())

	boards, err := h.Boards.ListBoards(r.Context(), accountID)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"boards": boards})
}

// Create handles POST /home, which creates a board from the "name" and
// "color" form fields.
func (h *HomeHandler) Create(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountIDFromContext(r.Context())

	form, err := parseForm(w, r)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}

	in, err := intent.ParseHome(form)
	if err != nil {
		h.reject(w, r, err)
		return
	}

	outcome, err := h.Dispatcher.Dispatch(r.Context(), accountID, in)
	switch outcome {
	case intent.Applied:
		writeJSON(w, http.StatusOK, homeResult{OK: true, Message: "Board created"})
	case intent.Rejected:
		h.reject(w, r, err)
	default:
		writeError(w, r, h.Logger, err)
	}
}

// reject reports a validation failure in the form's own response shape.
func (h *HomeHandler) reject(w http.ResponseWriter, r *http.Request, err error) {
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		writeError(w, r, h.Logger, err)
		return
	}
	message := verr.Fields["name"]
	if message == "" {
		message = verr.Error()
	}
	writeJSON(w, http.StatusBadRequest, homeResult{OK: false, Message: message})
}
