package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ndegwamoche/budget-tracker/internal/services"
	"github.com/ndegwamoche/budget-tracker/internal/session"
	"github.com/ndegwamoche/budget-tracker/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps application errors onto HTTP statuses. Anything not
// recognized is treated as an upstream store failure: the client gets a
// readable message, the log gets the cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, session.ErrInvalidToken), errors.Is(err, session.ErrTokenExpired):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
	default:
		slog.ErrorContext(r.Context(), "Request failed on upstream store",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error: "the data store is currently unavailable, please retry shortly",
		})
	}
}
