package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/folio/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// errorStatus maps store and service errors onto a status code and the
// message shown to the user. Client errors carry the error text; anything
// else is reported as an internal error.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, apperr.ErrAlreadyExists):
		return http.StatusConflict, "already exists"
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

func writeError(w http.ResponseWriter, op string, err error) {
	status, msg := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error(op+" failed", slog.String("error", err.Error()))
	}
	writeJSON(w, status, errorBody(msg))
}
