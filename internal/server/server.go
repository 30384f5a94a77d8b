// Package server exposes the HTTP API: tenant registration and
// management under /api, and the per-tenant catalog surface addressed
// by the tenant's secret token.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/voyagen/streamvault/internal/catalog"
	"github.com/voyagen/streamvault/internal/config"
	"github.com/voyagen/streamvault/internal/models"
	"github.com/voyagen/streamvault/internal/scheduler"
	"github.com/voyagen/streamvault/internal/store"
)

// Server holds dependencies for the HTTP API.
type Server struct {
	store *store.Store
	cfg   *config.Config
	sched *scheduler.Scheduler
	mux   *http.ServeMux
}

// New creates a Server and registers routes.
func New(st *store.Store, cfg *config.Config, sched *scheduler.Scheduler) *Server {
	srv := &Server{store: st, cfg: cfg, sched: sched, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Tenant management
	s.mux.HandleFunc("POST /api/configure", s.handleConfigure)
	s.mux.HandleFunc("PUT /api/configure/{secret}", s.handleUpdateConfig)
	s.mux.HandleFunc("DELETE /api/configure/{secret}", s.handleDeleteTenant)
	s.mux.HandleFunc("GET /api/configure/{secret}/history", s.handleHistory)
	s.mux.HandleFunc("POST /api/configure/{secret}/refresh", s.handleRefresh)

	// Catalog surface, addressed by tenant secret
	s.mux.HandleFunc("GET /{secret}/manifest.json", s.handleManifest)
	s.mux.HandleFunc("GET /{secret}/channels", s.handleListChannels)
	s.mux.HandleFunc("GET /{secret}/channels/{id}", s.handleGetChannel)
	s.mux.HandleFunc("GET /{secret}/channels/{id}/programs", s.handlePrograms)

	// Logo overrides
	s.mux.HandleFunc("GET /{secret}/logo-overrides", s.handleListOverrides)
	s.mux.HandleFunc("POST /{secret}/logo-overrides", s.handleAddOverride)
	s.mux.HandleFunc("DELETE /{secret}/logo-overrides/{pattern}", s.handleDeleteOverride)

	// Category fallback logos and other static assets
	if s.cfg.StaticDir != "" {
		s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.cfg.StaticDir))))
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      withCORS(withLogging(s)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown", "error", err)
		}
	}()

	slog.Info("listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeErr(w, http.StatusServiceUnavailable, fmt.Errorf("store unreachable: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type configureRequest struct {
	Sources  []string `json:"sources"`
	Schedule string   `json:"schedule"`
	BaseURL  string   `json:"base_url"`
	Password string   `json:"password"`
	Timezone string   `json:"timezone"`
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r) {
		return
	}

	var req configureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	cfg := models.TenantConfig{
		Sources:  req.Sources,
		Schedule: req.Schedule,
		BaseURL:  req.BaseURL,
		Timezone: req.Timezone,
	}
	if req.Password != "" {
		hash, err := models.HashPassword(req.Password)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		cfg.PasswordHash = hash
	}
	if err := cfg.Validate(); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	secret := models.NewSecretToken(24)
	if err := s.store.StoreTenantConfig(r.Context(), secret, cfg); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.sched.Register(secret, cfg.Schedule); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	s.store.AppendAudit(r.Context(), "configure", secret, fmt.Sprintf("%d sources", len(cfg.Sources)))

	// First ingest runs synchronously so the manifest works immediately.
	if err := s.sched.TriggerNow(r.Context(), secret, cfg); err != nil {
		slog.Warn("initial refresh failed", "tenant", secret, "error", err)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"secret":       secret,
		"manifest_url": cfg.BaseURL + "/" + secret + "/manifest.json",
	})
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r) {
		return
	}
	secret := r.PathValue("secret")
	existing, ok := s.tenantConfig(w, r, secret)
	if !ok {
		return
	}

	var req configureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if existing.PasswordHash != "" && !models.VerifyPassword(req.Password, existing.PasswordHash) {
		writeErr(w, http.StatusForbidden, fmt.Errorf("password required"))
		return
	}

	cfg := models.TenantConfig{
		Sources:      req.Sources,
		Schedule:     req.Schedule,
		BaseURL:      req.BaseURL,
		Timezone:     req.Timezone,
		PasswordHash: existing.PasswordHash,
	}
	if err := cfg.Validate(); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	if err := s.store.StoreTenantConfig(r.Context(), secret, cfg); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.sched.Register(secret, cfg.Schedule); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	s.store.AppendAudit(r.Context(), "update", secret, fmt.Sprintf("%d sources", len(cfg.Sources)))
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r) {
		return
	}
	secret := r.PathValue("secret")
	existing, ok := s.tenantConfig(w, r, secret)
	if !ok {
		return
	}
	if existing.PasswordHash != "" {
		var req configureRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !models.VerifyPassword(req.Password, existing.PasswordHash) {
			writeErr(w, http.StatusForbidden, fmt.Errorf("password required"))
			return
		}
	}

	s.sched.Remove(secret)
	if err := s.store.DeleteTenant(r.Context(), secret); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	s.store.AppendAudit(r.Context(), "delete", secret, "")
	writeNoContent(w)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	secret := r.PathValue("secret")
	if _, ok := s.tenantConfig(w, r, secret); !ok {
		return
	}
	records, err := s.store.RunHistory(r.Context(), secret)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []store.RunRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	secret := r.PathValue("secret")
	cfg, ok := s.tenantConfig(w, r, secret)
	if !ok {
		return
	}
	if err := s.sched.TriggerNow(r.Context(), secret, cfg); err != nil {
		if errors.Is(err, store.ErrLocked) {
			writeErr(w, http.StatusConflict, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	s.store.AppendAudit(r.Context(), "refresh", secret, "")
	writeJSON(w, http.StatusOK, map[string]any{"refreshed": true})
}

// --- catalog handlers ---

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	secret := r.PathValue("secret")
	if _, ok := s.tenantConfig(w, r, secret); !ok {
		return
	}
	sum, err := s.store.CachedManifest(r.Context(), secret)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	secret := r.PathValue("secret")
	if _, ok := s.tenantConfig(w, r, secret); !ok {
		return
	}
	byID, err := s.store.GetAllChannels(r.Context(), secret)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	channels := make([]models.Channel, 0, len(byID))
	group := r.URL.Query().Get("group")
	for _, ch := range byID {
		if group != "" && ch.Group != group {
			continue
		}
		channels = append(channels, ch)
	}

	overrides, err := s.store.ListLogoOverrides(r.Context(), secret)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	catalog.ApplyOverrides(channels, overrides)

	sort.Slice(channels, func(i, j int) bool { return channels[i].Name < channels[j].Name })
	writeJSON(w, http.StatusOK, map[string]any{
		"channels": channels,
		"total":    len(channels),
	})
}

func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	secret := r.PathValue("secret")
	if _, ok := s.tenantConfig(w, r, secret); !ok {
		return
	}
	id := r.PathValue("id")
	ch, err := s.store.GetChannel(r.Context(), secret, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("channel %s not found", id))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if logo, ok, err := s.store.GetLogoOverride(r.Context(), secret, id); err == nil && ok {
		ch.Logo = logo
	}
	writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handlePrograms(w http.ResponseWriter, r *http.Request) {
	secret := r.PathValue("secret")
	if _, ok := s.tenantConfig(w, r, secret); !ok {
		return
	}
	programs, err := s.store.GetChannelPrograms(r.Context(), secret, r.PathValue("id"))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if programs == nil {
		programs = []models.Program{}
	}
	writeJSON(w, http.StatusOK, programs)
}

// --- logo override handlers ---

func (s *Server) handleListOverrides(w http.ResponseWriter, r *http.Request) {
	secret := r.PathValue("secret")
	if _, ok := s.tenantConfig(w, r, secret); !ok {
		return
	}
	overrides, err := s.store.ListLogoOverrides(r.Context(), secret)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, overrides)
}

func (s *Server) handleAddOverride(w http.ResponseWriter, r *http.Request) {
	secret := r.PathValue("secret")
	if _, ok := s.tenantConfig(w, r, secret); !ok {
		return
	}
	var ov models.LogoOverride
	if err := json.NewDecoder(r.Body).Decode(&ov); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if ov.Pattern == "" || ov.LogoURL == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("pattern and logo_url are required"))
		return
	}
	if err := s.store.StoreLogoOverride(r.Context(), secret, ov); err != nil {
		if errors.Is(err, models.ErrConfigInvalid) {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	s.store.AppendAudit(r.Context(), "logo-override", secret, ov.Pattern)
	writeJSON(w, http.StatusCreated, ov)
}

func (s *Server) handleDeleteOverride(w http.ResponseWriter, r *http.Request) {
	secret := r.PathValue("secret")
	if _, ok := s.tenantConfig(w, r, secret); !ok {
		return
	}
	pattern := r.PathValue("pattern")
	if err := s.store.DeleteLogoOverride(r.Context(), secret, pattern); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("override %s not found", pattern))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	s.store.AppendAudit(r.Context(), "logo-override-delete", secret, pattern)
	writeNoContent(w)
}

// --- helpers ---

// tenantConfig resolves the tenant addressed by a secret token, writing
// the error response itself when the token is invalid or unknown.
func (s *Server) tenantConfig(w http.ResponseWriter, r *http.Request, secret string) (models.TenantConfig, bool) {
	if err := models.ValidateSecretToken(secret); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return models.TenantConfig{}, false
	}
	cfg, err := s.store.GetTenantConfig(r.Context(), secret)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("not configured"))
			return models.TenantConfig{}, false
		}
		writeErr(w, http.StatusInternalServerError, err)
		return models.TenantConfig{}, false
	}
	return cfg, true
}

// allow applies the per-client rate limit to registration calls. When
// the limiter itself fails the request is allowed through; a store
// outage should not lock everyone out.
func (s *Server) allow(w http.ResponseWriter, r *http.Request) bool {
	client := clientIP(r)
	ok, err := s.store.Allow(r.Context(), client, s.cfg.RateLimit, s.cfg.RateLimitWindow)
	if err != nil {
		slog.Warn("rate limiter unavailable", "error", err)
		return true
	}
	if !ok {
		writeErr(w, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded, try again later"))
		return false
	}
	return true
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// --- middleware ---

// withCORS adds CORS headers to every response and handles preflight OPTIONS requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withLogging wraps a handler and logs each request with method, path, status, and duration.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start))
	})
}

// APIError is the standard error envelope for all error responses.
type APIError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON", "error", err)
	}
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		slog.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, APIError{
		Status: status,
		Error:  http.StatusText(status),
		Detail: err.Error(),
	})
}
