package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/m-mizutani/goerr/v2"

	"github.com/poiesic/medscribe/core"
	"github.com/poiesic/medscribe/pipeline"
)

// ErrPayloadTooLarge indicates an upload over the configured limit.
var ErrPayloadTooLarge = errors.New("payload too large")

// statusFor maps an error onto an HTTP status code.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, ErrPayloadTooLarge), errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrInvalidInput), errors.Is(err, core.ErrInvalidParameter),
		errors.Is(err, core.ErrInvalidReport), errors.Is(err, core.ErrEmptyContent):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrCapabilityUnavailable), errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes it as a JSON error body. Stage failures
// include the stage name and the outputs completed before the failure.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	attrs := []any{
		"status", status,
		"method", r.Method,
		"path", r.URL.Path,
		"error", err.Error(),
	}
	var ge *goerr.Error
	if errors.As(err, &ge) {
		attrs = append(attrs, "values", ge.Values())
		if status >= http.StatusInternalServerError {
			attrs = append(attrs, "stack", ge.Stacks())
		}
	}
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "HTTP error", attrs...)

	body := errorResponse{Error: err.Error()}
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		body.Stage = string(stageErr.Stage)
		partial := partialFromPipeline(stageErr.Partial)
		body.Partial = &partial
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // header already committed
}
