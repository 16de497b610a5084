package api

// Operational endpoints live under /-/, a two-segment prefix that GET /{name}
// can never match, so every single-segment name stays registrable.
const (
	HealthPath  = "/-/health"
	ReadyPath   = "/-/ready"
	MetricsPath = "/-/metrics"
)

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() {
	s.router.HandleFunc("GET "+HealthPath, s.handleHealth)
	s.router.HandleFunc("GET "+ReadyPath, s.handleReady)
	s.router.HandleFunc("GET "+MetricsPath, s.handleMetrics)

	s.router.HandleFunc("GET /{name}", s.handleRegister)
}
