// Package api serves the hand history REST API and the live table websocket.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
	"github.com/imaddar/poker-arena/services/holdem/internal/rules"
	"github.com/imaddar/poker-arena/services/holdem/internal/service"
	"github.com/imaddar/poker-arena/services/holdem/internal/settlement"
)

const (
	Version     = "1.0.0"
	HandsPath   = "/api/v1/hands/"
	TablePath   = "/api/v1/table"
	healthCheck = 2 * time.Second
)

// HandService is the settlement and history backend; *service.Hands
// implements it.
type HandService interface {
	Create(ctx context.Context, req settlement.Request) (settlement.Response, error)
	Get(ctx context.Context, handID string) (settlement.Response, error)
	List(ctx context.Context, limit int) ([]settlement.HistoryEntry, error)
	Delete(ctx context.Context, handID string) error
	Healthy(ctx context.Context) error
}

// TableSettler settles hands finished at a live table.
type TableSettler interface {
	Settle(ctx context.Context, state domain.HandState) (domain.HandState, error)
}

type Options struct {
	Logger *log.Logger
	// NewCardSource seeds each live table; nil uses crypto randomness.
	NewCardSource func() rules.CardSource
	// Settler is optional; without one live tables never settle.
	Settler       TableSettler
	SettleTimeout time.Duration
}

type Server struct {
	hands    HandService
	options  Options
	logger   *log.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

func NewServer(hands HandService, options Options) *Server {
	logger := options.Logger
	if logger == nil {
		logger = log.Default()
	}
	if options.SettleTimeout <= 0 {
		options.SettleTimeout = 5 * time.Second
	}
	s := &Server{
		hands:   hands,
		options: options,
		logger:  logger.WithPrefix("api"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		mux: http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/hands/{$}", s.handleCreateHand)
	s.mux.HandleFunc("POST /api/v1/hands", s.handleCreateHand)
	s.mux.HandleFunc("GET /api/v1/hands/{$}", s.handleListHands)
	s.mux.HandleFunc("GET /api/v1/hands", s.handleListHands)
	s.mux.HandleFunc("GET /api/v1/hands/{hand_id}", s.handleGetHand)
	s.mux.HandleFunc("DELETE /api/v1/hands/{hand_id}", s.handleDeleteHand)
	s.mux.HandleFunc("GET "+TablePath, s.handleTable)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "*")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	start := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(recorder, r)
	s.logger.Debug("Request", "method", r.Method, "path", r.URL.Path, "status", recorder.status, "duration", time.Since(start))
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Poker Hand History API",
		"version": Version,
		"endpoints": map[string]string{
			"create_hand":  "POST " + HandsPath,
			"get_hand":     "GET " + HandsPath + "{hand_id}",
			"hand_history": "GET " + HandsPath + "?limit=10",
			"delete_hand":  "DELETE " + HandsPath + "{hand_id}",
			"live_table":   "GET " + TablePath + " (websocket)",
			"health":       "GET /health",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheck)
	defer cancel()
	if err := s.hands.Healthy(ctx); err != nil {
		s.logger.Warn("Health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "disconnected"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "connected"})
}

func (s *Server) handleCreateHand(w http.ResponseWriter, r *http.Request) {
	var req settlement.Request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.hands.Create(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, resp)
	case errors.Is(err, service.ErrHandAlreadyExists):
		writeError(w, http.StatusConflict, "Hand with this ID already exists")
	case errors.Is(err, service.ErrInvalidRequest):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("Failed to create hand", "hand", req.HandID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store hand")
	}
}

func (s *Server) handleGetHand(w http.ResponseWriter, r *http.Request) {
	resp, err := s.hands.Get(r.Context(), r.PathValue("hand_id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, service.ErrHandNotFound):
		writeError(w, http.StatusNotFound, "Hand not found")
	default:
		s.logger.Error("Failed to load hand", "hand", r.PathValue("hand_id"), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load hand")
	}
}

func (s *Server) handleListHands(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "limit must be an integer")
			return
		}
		limit = parsed
	}

	entries, err := s.hands.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list hands", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list hands")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleDeleteHand(w http.ResponseWriter, r *http.Request) {
	err := s.hands.Delete(r.Context(), r.PathValue("hand_id"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrHandNotFound):
		writeError(w, http.StatusNotFound, "Hand not found")
	default:
		s.logger.Error("Failed to delete hand", "hand", r.PathValue("hand_id"), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete hand")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
