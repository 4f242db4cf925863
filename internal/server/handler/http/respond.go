package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/atinyakov/trellix/internal/middleware"
	"github.com/atinyakov/trellix/internal/models"
	"github.com/atinyakov/trellix/internal/session"
	"go.uber.org/zap"
)

// maxFormBytes caps the size of a submitted form.
const maxFormBytes = 1 << 20

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError translates err into its single user-visible shape:
// validation problems become 400 with field messages, missing or foreign
// records 404, a lost session a cleared cookie and a redirect to the login
// page, and anything else a logged 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, verr)
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, models.ErrUnauthenticated):
		http.SetCookie(w, session.Expired(r.TLS != nil))
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
	default:
		if logger != nil {
			logger.Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// parseForm reads the urlencoded or multipart body and returns its fields.
func parseForm(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxFormBytes); err != nil {
			return nil, models.NewValidationError("form", "Malformed form")
		}
		return r.PostForm, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, models.NewValidationError("form", "Malformed form")
	}
	return r.PostForm, nil
}
