package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/govright/platform-services/internal/apperr"
	"github.com/govright/platform-services/internal/auth"
	"github.com/govright/platform-services/internal/corpus"
	"github.com/govright/platform-services/internal/facebook"
)

const maxBody = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// decodeJSON reads a JSON body into v and validates it when v implements
// validation.Validatable.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", apperr.ErrInvalidInput)
	}
	if val, ok := v.(validation.Validatable); ok {
		if err := val.Validate(); err != nil {
			return fmt.Errorf("%s: %w", err.Error(), apperr.ErrInvalidInput)
		}
	}
	return nil
}

// writeError maps a domain error onto a status code. Unexpected errors are
// logged under op and reported as internal.
func writeError(w http.ResponseWriter, op string, err error) {
	var httpErr *corpus.HTTPError
	var fbErr *facebook.APIError
	switch {
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, auth.ErrNoPendingLogin):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.Is(err, apperr.ErrUnauthorized), errors.Is(err, auth.ErrSessionExpired):
		writeJSON(w, http.StatusUnauthorized, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrInvalidInput),
		errors.Is(err, auth.ErrInvalidPayload),
		errors.Is(err, auth.ErrMalformedAccessToken),
		errors.Is(err, auth.ErrMalformedFacebookData),
		errors.Is(err, facebook.ErrMissingNamespace),
		errors.Is(err, facebook.ErrMissingAccessToken):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.As(err, &httpErr), errors.As(err, &fbErr):
		slog.Warn(op+" upstream failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
