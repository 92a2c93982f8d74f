// Package api is the REST surface over the feed engine. It owns per-client
// throttling of chain triggers, routing, and serialization; correctness of
// the feed itself lives entirely behind the engine's four operations.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/threatstage/threatstage/internal/core"
	"github.com/threatstage/threatstage/internal/engine"
)

// Server is the threatstage REST API server.
type Server struct {
	engine   *engine.Engine
	server   *http.Server
	logger   zerolog.Logger
	throttle *triggerThrottle
}

// NewServer creates a new API server over the engine.
func NewServer(eng *engine.Engine) *Server {
	cfg := eng.Config
	s := &Server{
		engine: eng,
		logger: eng.Logger.With().Str("component", "api_server").Logger(),
		throttle: newTriggerThrottle(
			time.Duration(cfg.Sim.TriggerCooldown*float64(time.Second)),
			cfg.Sim.TriggersPerMin,
		),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/dashboard", s.handleDashboard)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/events/", s.handleEventByID)
	mux.HandleFunc("/api/v1/attack/trigger", s.handleTrigger)
	mux.HandleFunc("/api/v1/logs", s.handleLogs)
	mux.HandleFunc("/api/v1/config", s.handleConfig)
	mux.HandleFunc("/api/v1/shutdown", s.handleShutdown)
	mux.HandleFunc("/health", s.handleHealth)

	// Middleware chain: CORS -> logging -> rate limit -> auth -> handler
	handler := corsMiddleware(
		loggingMiddleware(
			rateLimitMiddleware(
				authMiddleware(mux, cfg, s.logger),
				100, // 100 requests per second per IP
			),
			s.logger,
		),
		cfg.Server.CORSOrigins,
	)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins serving the API.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("API server starting")
	if s.engine.Config.AuthEnabled() {
		s.logger.Info().Int("keys", len(s.engine.Config.Server.APIKeys)).Msg("API authentication enabled")
	} else {
		s.logger.Warn().Msg("API authentication disabled — set api_keys in config or THREATSTAGE_API_KEY env var")
	}
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()
	return nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	busConnected := false
	var busMetrics map[string]int64
	if s.engine.Bus != nil {
		busConnected = s.engine.Bus.IsConnected()
		busMetrics = s.engine.Bus.GetMetrics()
	}

	status := map[string]any{
		"version":       "1.0.0",
		"status":        "running",
		"uptime_sec":    int64(s.engine.Uptime().Seconds()),
		"bus_connected": busConnected,
		"bus_metrics":   busMetrics,
		"events_stored": s.engine.Store.Len(),
		"active_plans":  s.engine.Scheduler.Active(),
		"plan_limit":    s.engine.Scheduler.Limit(),
		"timestamp":     time.Now().UTC(),
	}
	if s.engine.Archiver != nil {
		status["archiver"] = s.engine.Archiver.Status()
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.GetDashboard())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	var severity core.Severity
	if sevStr := r.URL.Query().Get("severity"); sevStr != "" {
		sev := core.Severity(sevStr)
		if !sev.Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid severity — use benign, suspicious, malicious, or critical",
			})
			return
		}
		severity = sev
	}

	events := s.engine.ListEvents(severity, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"total":  len(events),
	})
}

// handleEventByID handles GET /api/v1/events/{id}
func (s *Server) handleEventByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/events/")
	idStr := strings.TrimSuffix(path, "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event id"})
		return
	}

	event, ok := s.engine.GetEvent(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clientIP := clientAddr(r)
	if verdict := s.throttle.check(clientIP, time.Now()); verdict != nil {
		writeJSON(w, http.StatusTooManyRequests, verdict)
		return
	}

	result := s.engine.RequestChain()
	resp := map[string]any{
		"status": result.Status,
		"active": result.Active,
		"limit":  result.Limit,
	}
	if result.Reason != "" {
		resp["reason"] = result.Reason
	}
	if result.Status == "scheduled" {
		resp["chain_id"] = result.ChainID
		resp["approx_duration_sec"] = roundTenth(result.Duration.Seconds())
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLogs serves recent engine log lines captured in the ring buffer.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	entries := s.engine.GetLogEntries(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"logs":  entries,
		"total": len(entries),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// Redact API keys from the response
	safeCfg := *s.engine.Config
	safeCfg.Server.APIKeys = nil
	writeJSON(w, http.StatusOK, safeCfg)
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "shutting_down",
		"message": "threatstage is shutting down gracefully",
	})
	go func() {
		time.Sleep(250 * time.Millisecond)
		s.logger.Info().Msg("shutdown requested via API")
		// Send SIGINT to self so the main signal handler performs full cleanup
		// (API server stop, engine shutdown) in the correct order.
		p, err := os.FindProcess(os.Getpid())
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to find own process for shutdown signal")
			os.Exit(0)
		}
		if err := p.Signal(syscall.SIGINT); err != nil {
			s.logger.Error().Err(err).Msg("failed to send shutdown signal")
			os.Exit(0)
		}
	}()
}

func roundTenth(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// authMiddleware enforces API key authentication on all endpoints except
// /health. Keys come from config (server.api_keys) or env
// (THREATSTAGE_API_KEY). With no keys configured, all requests are allowed.
func authMiddleware(next http.Handler, cfg *core.Config, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		if !cfg.AuthEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("Authorization")
		if key == "" {
			key = r.Header.Get("X-API-Key")
			if key == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{
					"error": "missing authentication — provide Authorization: Bearer <key> or X-API-Key header",
				})
				return
			}
		}
		if strings.HasPrefix(key, "Bearer ") {
			key = key[7:]
		}

		if !cfg.ValidateAPIKey(key) {
			logger.Warn().Str("path", r.URL.Path).Str("ip", r.RemoteAddr).Msg("invalid API key")
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "invalid API key"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware implements a simple per-IP token bucket rate limiter.
type ipLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	rate    int
}

type tokenBucket struct {
	tokens    float64
	maxTokens float64
	lastTime  time.Time
}

func (b *tokenBucket) allow(rate float64) bool {
	now := time.Now()
	elapsed := now.Sub(b.lastTime).Seconds()
	b.lastTime = now
	b.tokens += elapsed * rate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func rateLimitMiddleware(next http.Handler, requestsPerSecond int) http.Handler {
	limiter := &ipLimiter{
		buckets: make(map[string]*tokenBucket),
		rate:    requestsPerSecond,
	}

	// Cleanup stale buckets every 5 minutes
	go func() {
		for {
			time.Sleep(5 * time.Minute)
			limiter.mu.Lock()
			cutoff := time.Now().Add(-10 * time.Minute)
			for ip, bucket := range limiter.buckets {
				if bucket.lastTime.Before(cutoff) {
					delete(limiter.buckets, ip)
				}
			}
			limiter.mu.Unlock()
		}
	}()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientAddr(r)

		limiter.mu.Lock()
		bucket, ok := limiter.buckets[ip]
		if !ok {
			bucket = &tokenBucket{
				tokens:    float64(limiter.rate),
				maxTokens: float64(limiter.rate),
				lastTime:  time.Now(),
			}
			limiter.buckets[ip] = bucket
		}
		allowed := bucket.allow(float64(limiter.rate))
		limiter.mu.Unlock()

		if !allowed {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowedOrigins []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			allowed := len(allowedOrigins) == 0
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					allowed = true
					break
				}
			}
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("ip", r.RemoteAddr).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
