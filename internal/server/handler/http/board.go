package http

import (
	"net/http"
	"strconv"

	"github.com/atinyakov/trellix/internal/intent"
	"github.com/atinyakov/trellix/internal/middleware"
	"github.com/atinyakov/trellix/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BoardHandler serves a single board and the mutations posted to it.
type BoardHandler struct {
	Boards     BoardReader
	Dispatcher Dispatcher
	Logger     *zap.Logger
}

// Show handles GET /board/{id} and returns the board with its ordered
// columns and items.
func (h *BoardHandler) Show(w http.ResponseWriter, r *http.Request) {
	boardID, ok := boardIDParam(r)
	if !ok {
		writeError(w, r, h.Logger, models.ErrNotFound)
		return
	}
	accountID := middleware.GetAccountIDFromContext(r.Context())

	board, err := h.Boards.Board(r.Context(), accountID, boardID)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"board": board})
}

// Mutate handles POST /board/{id}. The form names one intent; see package
// intent for the fields each one needs.
//
// Browsers submitting a full document (Sec-Fetch-Dest: document) are
// redirected back to the board. Background requests get {"ok":true}.
func (h *BoardHandler) Mutate(w http.ResponseWriter, r *http.Request) {
	boardID, ok := boardIDParam(r)
	if !ok {
		writeError(w, r, h.Logger, models.ErrNotFound)
		return
	}
	accountID := middleware.GetAccountIDFromContext(r.Context())

	form, err := parseForm(w, r)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}

	in, err := intent.ParseBoard(form, boardID)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}

	if outcome, err := h.Dispatcher.Dispatch(r.Context(), accountID, in); outcome != intent.Applied {
		writeError(w, r, h.Logger, err)
		return
	}

	if r.Header.Get("Sec-Fetch-Dest") == "document" {
		http.Redirect(w, r, "/board/"+strconv.FormatInt(boardID, 10), http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func boardIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
