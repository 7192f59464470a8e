// Package api provides a thin, read-only HTTP surface over the evolution
// report and Prometheus metrics, adapted from the teacher's
// internal/api/server.go: the router/cors/httpServer shape is kept, but
// the live-trading WebSocket/backtest-run endpoints are dropped since
// spec.md's Non-goals exclude live trading -- this server only ever
// reads state the Evolution Driver has already produced.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/tradingdna/evolve/internal/evolution"
	"github.com/tradingdna/evolve/internal/population"
)

// ReportSource is the read-only view the server exposes: the last known
// Report per population id. The Evolution Driver (or its caller) updates
// this as generations complete.
type ReportSource interface {
	Report(populationID string) (*evolution.Report, bool)
	Population(populationID string) (*population.Population, bool)
}

// Server is the read-only HTTP API server.
type Server struct {
	mu         sync.RWMutex
	logger     *zap.Logger
	router     *mux.Router
	httpServer *http.Server
	source     ReportSource
	addr       string
}

// NewServer builds a Server bound to addr ("host:port"), backed by source.
func NewServer(logger *zap.Logger, addr string, source ReportSource) *Server {
	s := &Server{
		logger: logger,
		router: mux.NewRouter(),
		source: source,
		addr:   addr,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/v1/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/v1/populations/{id}", s.handlePopulation).Methods("GET")
	s.router.HandleFunc("/api/v1/populations/{id}/report", s.handleReport).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// Start begins serving and blocks until the server stops or errors.
func (s *Server) Start() error {
	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}).Handler(s.router)

	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("api server starting", zap.String("addr", s.addr))
	return srv.ListenAndServe()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.RLock()
	srv := s.httpServer
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePopulation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	pop, ok := s.source.Population(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "population not found"})
		return
	}
	writeJSON(w, http.StatusOK, pop)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	report, ok := s.source.Report(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "report not found"})
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, report.String())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
