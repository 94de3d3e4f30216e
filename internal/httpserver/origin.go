package httpserver

import (
	"net/http"

	"github.com/vidmesh/signal-relay/internal/origin"
)

// withOriginPolicy enforces the allowed-origin policy on browser-facing
// endpoints and emits the CORS headers browsers need to read the response.
// Requests without an Origin header (curl, server-to-server) pass through.
func (s *Server) withOriginPolicy(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawOrigin := r.Header.Get("Origin")
		if rawOrigin == "" {
			next(w, r)
			return
		}

		normalized, originHost, ok := origin.NormalizeHeader(rawOrigin)
		if !ok || !origin.IsAllowed(normalized, originHost, r.Host, s.cfg.AllowedOrigins) {
			s.log.Warn("origin rejected", "origin", rawOrigin, "path", r.URL.Path)
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", rawOrigin)
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}
