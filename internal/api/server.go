package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/salescopilot/amsgen/internal/dashscope"
	"github.com/salescopilot/amsgen/internal/dojo"
	"github.com/salescopilot/amsgen/internal/extract"
	"github.com/salescopilot/amsgen/internal/record"
)

// RecordGenerator runs the AMS pipeline for one call payload.
type RecordGenerator interface {
	Run(ctx context.Context, payload extract.CallPayload) (record.FinalRecord, error)
}

// ExtractionReader reads back persisted extraction records.
type ExtractionReader interface {
	GetExtraction(ctx context.Context, sessionID string) (json.RawMessage, error)
}

type Server struct {
	router    *chi.Mux
	port      int
	generator RecordGenerator
	extracts  ExtractionReader
	dojo      *dojo.Manager
}

func NewServer(port int, apiToken string, gen RecordGenerator, extracts ExtractionReader, dojoMgr *dojo.Manager) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		port:      port,
		generator: gen,
		extracts:  extracts,
		dojo:      dojoMgr,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/ams/status", s.status)

	router.Route("/api/v1/ams", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/generate", s.generate)
		r.Get("/extracts/{sessionID}", s.getExtract)
	})

	router.Route("/api/v1/dojo", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/sessions", s.startDojoSession)
		r.Post("/sessions/{sessionID}/messages", s.sendDojoMessage)
		r.Delete("/sessions/{sessionID}", s.endDojoSession)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "amsgen",
		"status":  "ready",
	})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError emits the {"error": ...} failure shape. Error text is always
// passed through redaction; nothing leaving the process may carry a credential.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": dashscope.Redact(err.Error())})
}
