package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/salescopilot/amsgen/internal/body"
	"github.com/salescopilot/amsgen/internal/dashscope"
	"github.com/salescopilot/amsgen/internal/extract"
	"github.com/salescopilot/amsgen/internal/plan"
	"github.com/salescopilot/amsgen/internal/store"
)

// generate runs the full pipeline for one call payload and returns the
// assembled record.
func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var payload extract.CallPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	final, err := s.generator.Run(r.Context(), payload)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	writeJSON(w, http.StatusOK, final)
}

func (s *Server) getExtract(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	payload, err := s.extracts.GetExtraction(r.Context(), sessionID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

// statusForError sorts pipeline failures into our fault (500) versus the
// model's fault (502). Upstream faults are retryable with the same input;
// configuration and plan-rule failures are not.
func statusForError(err error) int {
	var formatErr *plan.FormatError
	switch {
	case errors.Is(err, dashscope.ErrMissingAPIKey):
		return http.StatusInternalServerError
	case errors.As(err, &formatErr):
		return http.StatusInternalServerError
	case errors.Is(err, dashscope.ErrExhausted),
		errors.Is(err, extract.ErrNonJSONOutput),
		errors.Is(err, extract.ErrMissingSchemaVersion),
		errors.Is(err, extract.ErrMissingEvidence),
		errors.Is(err, body.ErrConstraintUnsatisfied):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
