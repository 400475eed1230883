package ui

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ideaforge/app"
	"ideaforge/domain/core"
	"ideaforge/domain/hypothesis"
	"ideaforge/domain/run"
	"ideaforge/ports"
)

// ProjectReader is the read-only view of the workspace the API serves
type ProjectReader interface {
	ReadState() (*run.PipelineState, error)
	ReadHypotheses() ([]*hypothesis.Hypothesis, error)
	ReadReport() (string, error)
}

// Server exposes the read-only inspection API over a completed or running
// project workspace. It never mutates the workspace.
type Server struct {
	router  chi.Router
	project ProjectReader
	ledger  ports.CostLedgerReader
}

// NewServer creates the inspection API server
func NewServer(project ProjectReader, ledger ports.CostLedgerReader) *Server {
	s := &Server{project: project, ledger: ledger}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/hypotheses", s.handleHypotheses)
		r.Get("/ledger", s.handleLedger)
		r.Get("/report", s.handleReport)
	})

	s.router = r
	return s
}

// Handler returns the http handler for mounting or testing
func (s *Server) Handler() http.Handler { return s.router }

// Listen serves the API until the listener fails
func (s *Server) Listen(port int) error {
	addr := fmt.Sprintf(":%d", port)
	log.Printf("[Server] inspection API listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := s.project.ReadState()
	if err != nil {
		if core.IsNotFoundError(err) {
			writeError(w, http.StatusNotFound, "no run recorded yet")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleHypotheses(w http.ResponseWriter, r *http.Request) {
	hs, err := s.project.ReadHypotheses()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if hs == nil {
		hs = []*hypothesis.Hypothesis{}
	}
	writeJSON(w, http.StatusOK, hs)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	entries, err := s.ledger.Entries(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	totals, err := s.ledger.Totals(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"totals":  totals,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	md, err := s.project.ReadReport()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if md == "" {
		writeError(w, http.StatusNotFound, "report not written yet")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(app.RenderHTML(md))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Server] ERROR: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
