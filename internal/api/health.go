package api

import (
	"context"
	"net/http"
	"time"

	"namereg/internal/version"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Strategy  string    `json:"strategy"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]bool   `json:"checks"`
	Details   map[string]string `json:"details,omitempty"`
}

// handleHealth is a liveness check; it never touches the database.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Strategy:  string(s.svc.Strategy()),
	}, http.StatusOK)
}

// handleReady pings the database through the pool.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := ReadyResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC(),
		Checks:    map[string]bool{"database": true},
	}
	status := http.StatusOK

	if err := s.db.Ping(ctx); err != nil {
		resp.Status = "not_ready"
		resp.Checks["database"] = false
		resp.Details = map[string]string{"database": err.Error()}
		status = http.StatusServiceUnavailable
	}

	WriteJSON(w, resp, status)
}
