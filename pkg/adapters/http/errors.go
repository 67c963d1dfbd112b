package http

import (
	"errors"
	"net/http"

	"github.com/aretw0/tendril/internal/runtime"
	"github.com/aretw0/tendril/pkg/apikey"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/runner"
)

// statusFor maps domain and runtime errors to HTTP status codes.
func statusFor(err error) int {
	var (
		execErr  *runtime.UnhandledExecutorError
		inputErr *runtime.InputValidationError
	)
	switch {
	case errors.Is(err, apikey.ErrMissingKey), errors.Is(err, apikey.ErrInvalidKey):
		return http.StatusUnauthorized
	case errors.Is(err, apikey.ErrWrongBot):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrMalformedGraph),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionEnded):
		return http.StatusGone
	case errors.Is(err, runner.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrUnknownOption), errors.Is(err, runner.ErrInvalidUTF8), errors.As(err, &inputErr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDanglingReference), errors.Is(err, domain.ErrMethodNotAllowed):
		return http.StatusUnprocessableEntity
	case errors.As(err, &execErr):
		return http.StatusBadGateway
	case errors.Is(err, runtime.ErrNotStarted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", r.URL.Path, "err", err)
	} else {
		s.logger.Debug("Request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
