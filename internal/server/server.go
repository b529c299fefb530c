// Package server exposes dice parsing and rolling over HTTP and websockets.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/CaptShanks/redroll/internal/dice"
	"github.com/CaptShanks/redroll/internal/history"
)

const (
	// MaxTimes is the largest ?times= value accepted by the roll endpoint.
	MaxTimes = 100
	// DefaultHistoryLimit is used when /api/history has no ?limit=.
	DefaultHistoryLimit = 20
)

// Config holds serve command settings.
type Config struct {
	Addr string
}

// Server routes API requests to a roller and an optional history store.
type Server struct {
	roller         *dice.Roller
	store          *history.Store
	maxHistory     int
	logger         *slog.Logger
	allowedOrigins map[string]bool
	upgrader       websocket.Upgrader
	router         *mux.Router
}

// Option customizes a Server.
type Option func(*Server)

// WithHistory records API rolls in store, keeping at most max entries.
func WithHistory(store *history.Store, max int) Option {
	return func(s *Server) {
		s.store = store
		s.maxHistory = max
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAllowedOrigins lets browser pages from origins (scheme://host[:port])
// open the websocket in addition to same-origin pages.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		for _, o := range origins {
			if o = strings.TrimSpace(o); o != "" {
				s.allowedOrigins[strings.ToLower(strings.TrimSuffix(o, "/"))] = true
			}
		}
	}
}

// New creates a Server. A nil roller uses dice.DefaultSource.
func New(roller *dice.Roller, opts ...Option) *Server {
	if roller == nil {
		roller = dice.NewRoller(nil)
	}
	s := &Server{
		roller:         roller,
		logger:         slog.New(slog.DiscardHandler),
		allowedOrigins: make(map[string]bool),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	api.HandleFunc("/validate/{notation}", s.handleValidate).Methods(http.MethodGet)
	api.HandleFunc("/parse/{notation}", s.handleParse).Methods(http.MethodGet)
	api.HandleFunc("/roll/{notation}", s.handleRoll).Methods(http.MethodGet)
	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/ws", s.handleWS)
	r.Use(s.logRequests)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack passes websocket upgrades through to the underlying writer.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// parseRollable parses notation and rejects formulas too large to roll.
func parseRollable(notation string) (dice.Formula, error) {
	f, err := dice.Parse(notation)
	if err != nil {
		return dice.Formula{}, err
	}
	if err := dice.CheckRollable(f); err != nil {
		return dice.Formula{}, err
	}
	return f, nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

type validateResponse struct {
	Notation string `json:"notation"`
	Valid    bool   `json:"valid"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	notation := mux.Vars(r)["notation"]
	writeJSON(w, http.StatusOK, validateResponse{Notation: notation, Valid: dice.Validate(notation)})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	f, err := dice.Parse(mux.Vars(r)["notation"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

type rollResponse struct {
	Results []dice.Result `json:"results"`
}

func (s *Server) handleRoll(w http.ResponseWriter, r *http.Request) {
	f, err := parseRollable(mux.Vars(r)["notation"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	times := 1
	if v := r.URL.Query().Get("times"); v != "" {
		times, err = strconv.Atoi(v)
		if err != nil || times < 1 || times > MaxTimes {
			writeError(w, http.StatusBadRequest, fmt.Errorf("times must be between 1 and %d", MaxTimes))
			return
		}
	}

	results := make([]dice.Result, times)
	for i := range results {
		if results[i], err = s.roller.RollFormula(f); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.record(results[i])
	}
	writeJSON(w, http.StatusOK, rollResponse{Results: results})
}

type historyResponse struct {
	Entries []history.Entry `json:"entries"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, errors.New("history is disabled"))
		return
	}

	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := s.store.List(r.URL.Query().Get("source"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	writeJSON(w, http.StatusOK, historyResponse{Entries: entries})
}

// checkOrigin accepts clients that send no Origin (non-browser), pages served
// from the same host, and explicitly allowed origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return s.allowedOrigins[strings.ToLower(strings.TrimSuffix(origin, "/"))]
}

// handleWS rolls each text frame as notation and replies with the result.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "origin", r.Header.Get("Origin"), "error", err)
		return
	}
	defer conn.Close()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var reply any
		result, err := s.roller.Roll(string(data))
		if err != nil {
			reply = errorResponse{Error: err.Error()}
		} else {
			s.record(result)
			reply = result
			s.logger.Info("websocket roll", "notation", result.Formula().String(), "total", result.Total())
		}
		if err := conn.WriteJSON(reply); err != nil {
			s.logger.Warn("websocket write failed", "error", err)
			return
		}
	}
}

// record saves a roll when history is enabled; failures are only logged.
func (s *Server) record(result dice.Result) {
	if s.store == nil {
		return
	}
	if err := s.store.Record(result, history.SourceAPI, s.maxHistory); err != nil {
		s.logger.Warn("failed to save history", "error", err)
	}
}

// Run serves h on cfg.Addr until ctx is cancelled.
func Run(ctx context.Context, cfg Config, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("stopped")
		return nil
	}
}
