package presenter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/bobbylite/enrollhub/internal/api/middleware"
	"github.com/bobbylite/enrollhub/internal/core"
)

type ErrorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id"`
}

func JSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

func Error(w http.ResponseWriter, r *http.Request, msg string, status int) {
	resp := ErrorResponse{
		Error:         msg,
		CorrelationID: middleware.CorrelationID(r.Context()),
	}
	JSON(w, r, resp, status)
}

// Err maps domain errors to HTTP status codes and writes an error response.
func Err(w http.ResponseWriter, r *http.Request, err error, short string) {
	status := statusFor(err)
	Error(w, r, short+": "+err.Error(), status)
}

func statusFor(err error) int {
	var validationErr core.ValidationError
	var upstreamErr *core.UpstreamError
	var authErr *core.AuthError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidState):
		return http.StatusConflict
	case errors.As(err, &authErr), errors.As(err, &upstreamErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
