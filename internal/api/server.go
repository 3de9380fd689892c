// Package api exposes the HTTP interface for crawler clients.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mfbot/hofwatch/internal/config"
	"github.com/mfbot/hofwatch/internal/game"
	"github.com/mfbot/hofwatch/internal/metrics"
	"github.com/mfbot/hofwatch/internal/tracker"
)

// rootRedirectURL is where browsers poking the service root are sent.
const rootRedirectURL = "https://forum.mfbot.de/"

// adviceLimit caps the scrapbook advice result set.
const adviceLimit = 25

// Server wires HTTP handlers to the scheduler, pipeline and stores.
type Server struct {
	router     chi.Router
	scheduler  tracker.Scheduler
	reporter   tracker.Reporter
	resolver   tracker.Resolver
	advice     tracker.AdviceStore
	bugReports tracker.BugReportStore
	clock      tracker.Clock
	ready      func(ctx context.Context) error
	log        *zap.Logger
}

// Deps bundles the collaborators a Server needs.
type Deps struct {
	Scheduler  tracker.Scheduler
	Reporter   tracker.Reporter
	Resolver   tracker.Resolver
	Advice     tracker.AdviceStore
	BugReports tracker.BugReportStore
	Clock      tracker.Clock
	// Ready probes the storage backend; nil means always ready.
	Ready func(ctx context.Context) error
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, cfg config.Config, log *zap.Logger) *Server {
	s := &Server{
		scheduler:  deps.Scheduler,
		reporter:   deps.Reporter,
		resolver:   deps.Resolver,
		advice:     deps.Advice,
		bugReports: deps.BugReports,
		clock:      deps.Clock,
		ready:      deps.Ready,
		log:        log,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(log))
	r.Use(recoverMiddleware(log))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/", s.root)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Post("/get_crawl_players", s.getCrawlPlayers)
		r.Post("/get_crawl_hof_pages", s.getCrawlHofPages)
		r.Post("/report_players", s.reportPlayers)
		r.Post("/report_hof", s.reportHof)
		r.Post("/scrapbook_advice", s.scrapbookAdvice)
		r.Post("/report", s.report)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, rootRedirectURL, http.StatusPermanentRedirect)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type crawlPlayersRequest struct {
	Server string `json:"server"`
	Limit  int    `json:"limit"`
}

func (s *Server) getCrawlPlayers(w http.ResponseWriter, r *http.Request) {
	var req crawlPlayersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	serverID, err := s.resolver.Resolve(r.Context(), req.Server)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	names, err := s.scheduler.ClaimPlayers(r.Context(), serverID, req.Limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, names)
}

type crawlHofPagesRequest struct {
	Server      string `json:"server"`
	PlayerCount int    `json:"player_count"`
	Limit       int    `json:"limit"`
}

func (s *Server) getCrawlHofPages(w http.ResponseWriter, r *http.Request) {
	var req crawlHofPagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	serverID, err := s.resolver.Resolve(r.Context(), req.Server)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	pages, err := s.scheduler.ClaimHofPages(r.Context(), serverID, req.PlayerCount, req.Limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pages)
}

func (s *Server) reportPlayers(w http.ResponseWriter, r *http.Request) {
	var reports []tracker.RawOtherPlayer
	if err := json.NewDecoder(r.Body).Decode(&reports); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	// per-item failures are absorbed by the pipeline; the batch always
	// succeeds once it has been handed over
	s.reporter.ReportPlayers(r.Context(), reports)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type reportHofRequest struct {
	Server string            `json:"server"`
	Pages  map[string]string `json:"pages"`
}

func (s *Server) reportHof(w http.ResponseWriter, r *http.Request) {
	var req reportHofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	pages := make(map[int]string, len(req.Pages))
	for key, raw := range req.Pages {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid page index %q", key))
			return
		}
		pages[idx] = raw
	}
	if err := s.reporter.ReportHof(r.Context(), req.Server, pages); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type scrapbookAdviceRequest struct {
	RawScrapbook string `json:"raw_scrapbook"`
	Server       string `json:"server"`
	MaxLevel     int    `json:"max_level"`
	MaxAttrs     int64  `json:"max_attrs"`
}

func (s *Server) scrapbookAdvice(w http.ResponseWriter, r *http.Request) {
	var req scrapbookAdviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	owned, err := game.ParseScrapbook(req.RawScrapbook)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	serverID, err := s.resolver.Resolve(r.Context(), req.Server)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	advice, err := s.advice.ScrapbookAdvice(r.Context(), serverID, owned, req.MaxLevel, req.MaxAttrs, adviceLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, advice)
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	var req tracker.BugReport
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	received := s.clock.Now().UTC().Format(time.RFC3339)
	if err := s.bugReports.InsertBugReport(r.Context(), req, received); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
