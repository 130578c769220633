package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const healthCheckTimeout = 3 * time.Second

// Handler builds the chi router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleRoot())
	r.Get("/health", s.handleHealth())
	r.Get("/l/{token}", s.handleRedirect())
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	return r
}

// HealthResponse is the JSON body of /health.
type HealthResponse struct {
	Status       string `json:"status"`
	BotConnected bool   `json:"bot_connected"`
	Database     string `json:"database"`
	Links        int64  `json:"links"`
	Timestamp    string `json:"timestamp"`
}

func (s *Server) handleRoot() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": s.message})
	}
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp := HealthResponse{
			Status:       "healthy",
			BotConnected: s.connected(),
			Database:     "ok",
			Timestamp:    s.now().UTC().Format(time.RFC3339),
		}

		if err := s.store.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Database ping failed", "error", err)
			resp.Database = "unavailable"
		} else if count, err := s.store.CountLinks(ctx); err == nil {
			resp.Links = count
		}

		code := http.StatusOK
		if !resp.BotConnected || resp.Database != "ok" {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}

func (s *Server) handleRedirect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")

		link, err := s.store.GetLink(r.Context(), token)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Failed to resolve link", "token", token, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if link == nil || link.Expired(s.now(), s.linkTTL) {
			http.NotFound(w, r)
			return
		}

		http.Redirect(w, r, link.FilePath, http.StatusFound)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.DebugContext(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"remote", r.RemoteAddr,
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
