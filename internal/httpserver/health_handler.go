package httpserver

import (
	"net/http"
	"time"
)

// componentStatus is one dependency's health classification.
type componentStatus struct {
	Status string `json:"status"` // healthy | degraded | down
	Detail any    `json:"detail,omitempty"`
}

// healthResponseData is the `data` block of GET /api/health.
type healthResponseData struct {
	Status     string                      `json:"status"`
	Uptime     int64                       `json:"uptimeSeconds"`
	Components map[string]componentStatus `json:"components"`
}

// handleHealth aggregates component health into an overall status:
// down if any component is down, degraded if any is degraded, else
// healthy. The response is never cached.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	detailed := r.URL.Query().Get("detailed") == "true"

	components := map[string]componentStatus{
		"apiKeys":   s.apiKeyHealth(detailed),
		"rateLimit": s.rateLimitHealth(detailed),
		"cache":     s.cacheHealth(detailed),
		"upstream":  s.upstreamHealth(detailed),
	}

	overall := "healthy"
	for _, c := range components {
		switch c.Status {
		case "down":
			overall = "down"
		case "degraded":
			if overall != "down" {
				overall = "degraded"
			}
		}
	}

	status := http.StatusOK
	if overall == "down" {
		status = http.StatusServiceUnavailable
	}

	SetNoStoreHeader(w)
	Respond(w, s.Logger, status, healthResponseData{
		Status:     overall,
		Uptime:     int64(time.Since(s.startedAt).Seconds()),
		Components: components,
	})
}

func (s *Server) apiKeyHealth(detailed bool) componentStatus {
	stats := s.Keys.Stats()
	st := "healthy"
	if stats.ActiveKeys == 0 {
		st = "down"
	} else if stats.ExpiringSoon > 0 {
		st = "degraded"
	}
	cs := componentStatus{Status: st}
	if detailed {
		cs.Detail = stats
	}
	return cs
}

func (s *Server) rateLimitHealth(detailed bool) componentStatus {
	stats := s.Limiter.Stats()
	st := "healthy"
	if stats.BlockRate >= s.Config.HealthBlockRatePctThreshold {
		st = "degraded"
	}
	cs := componentStatus{Status: st}
	if detailed {
		cs.Detail = stats
	}
	return cs
}

func (s *Server) cacheHealth(detailed bool) componentStatus {
	usage := s.Cache.MemoryUsage()
	st := "healthy"
	if usage.Percentage >= s.Config.HealthMemoryPctThreshold {
		st = "degraded"
	}
	cs := componentStatus{Status: st}
	if detailed {
		cs.Detail = usage
	}
	return cs
}

func (s *Server) upstreamHealth(detailed bool) componentStatus {
	if s.Address == nil {
		return componentStatus{Status: "down", Detail: map[string]string{"reason": "address client not configured"}}
	}

	stats := s.Address.Stats()
	st := "healthy"
	if stats.TotalRequests > 0 && stats.SuccessRate < s.Config.HealthSuccessRatePctThreshold {
		st = "degraded"
	}
	cs := componentStatus{Status: st}
	if detailed {
		cs.Detail = stats
	}
	return cs
}
