package httpserver

import "net/http"

// handleCacheStats reports the cache's counters and size accounting.
func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	SetNoCacheHeader(w)
	Respond(w, s.Logger, http.StatusOK, s.Cache.DetailedStats())
}

// handleRateLimitStats reports limiter-wide admission counters.
func (s *Server) handleRateLimitStats(w http.ResponseWriter, _ *http.Request) {
	SetNoCacheHeader(w)
	Respond(w, s.Logger, http.StatusOK, s.Limiter.Stats())
}

// handleKeyStats reports the API key registry's population summary.
func (s *Server) handleKeyStats(w http.ResponseWriter, _ *http.Request) {
	SetNoCacheHeader(w)
	Respond(w, s.Logger, http.StatusOK, s.Keys.Stats())
}
