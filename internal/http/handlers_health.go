package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	applog "budgetly/internal/log"
)

type statusView struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(statusView{Status: "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed",
				applog.FieldComponent, applog.ComponentHTTP,
				applog.FieldError, err)
			NewJSONResponse().Status(http.StatusServiceUnavailable).Body(statusView{Status: "unavailable"}).Write(w)
			return
		}
	}
	NewJSONResponse().Body(statusView{Status: "ok"}).Write(w)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	counter := func(name string, value any) {
		fmt.Fprintf(&b, "%s %v\n", name, value)
	}

	t := s.tracer.GetMetrics()
	counter("budgetly_http_requests_total", t.TotalRequests)
	counter("budgetly_http_server_errors_total", t.ServerErrors)
	counter("budgetly_http_request_duration_avg_ms", t.AverageResponseTime().Milliseconds())

	l := s.limiter.GetMetrics()
	counter("budgetly_rate_limit_rejected_total", l.Rejected)
	counter("budgetly_rate_limit_clients", l.ClientCount)

	counter("budgetly_security_suspicious_requests_total", s.detector.GetMetrics().SuspiciousRequests)

	if s.deps.CacheStats != nil {
		c := s.deps.CacheStats()
		counter("budgetly_analysis_cache_hits_total", c.Hits)
		counter("budgetly_analysis_cache_misses_total", c.Misses)
		counter("budgetly_analysis_cache_entries", c.Size)
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = w.Write([]byte(b.String()))
}
