package api

import (
	"net/http"
	"time"

	"namereg/internal/errors"
)

// handleRegister stores the path name as a new record and echoes the name
// read back from storage as a JSON string.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	strategy := string(s.svc.Strategy())

	start := time.Now()
	rec, err := s.svc.Handle(r.Context(), name)
	s.metrics.RecordRegistration(strategy, time.Since(start), err)

	if err != nil {
		code := errors.CodeOf(err)
		s.logger.Error("Registration failed",
			"requestID", GetRequestID(r.Context()),
			"code", code,
			"strategy", strategy,
			"error", err.Error(),
		)
		WriteFailure(w, code)
		return
	}

	s.logger.Debug("Registration succeeded",
		"requestID", GetRequestID(r.Context()),
		"id", rec.ID,
		"strategy", strategy,
	)
	WriteJSON(w, rec.Name, http.StatusOK)
}
