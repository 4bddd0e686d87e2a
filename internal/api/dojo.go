package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/salescopilot/amsgen/internal/dojo"
)

type dojoSessionResponse struct {
	SessionID string `json:"sessionId"`
	Reply     string `json:"reply"`
}

func (s *Server) startDojoSession(w http.ResponseWriter, r *http.Request) {
	id, opening, err := s.dojo.Start(r.Context())
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	writeJSON(w, http.StatusCreated, dojoSessionResponse{
		SessionID: id.String(),
		Reply:     opening,
	})
}

func (s *Server) sendDojoMessage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid session id"))
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, errors.New("message is required"))
		return
	}

	reply, err := s.dojo.Send(r.Context(), id, req.Message)
	if errors.Is(err, dojo.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	writeJSON(w, http.StatusOK, dojoSessionResponse{
		SessionID: id.String(),
		Reply:     reply,
	})
}

func (s *Server) endDojoSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid session id"))
		return
	}

	s.dojo.End(id)
	w.WriteHeader(http.StatusNoContent)
}
