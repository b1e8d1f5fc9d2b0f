package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/krueger80/carcassonne-ai-sub001/game/engine"
	"github.com/krueger80/carcassonne-ai-sub001/game/service"
	"github.com/krueger80/carcassonne-ai-sub001/game/session"
	"github.com/krueger80/carcassonne-ai-sub001/transport/websocket"
)

// qrSize is the edge length of the join QR code in pixels
const qrSize = 256

// Server represents the REST API server
type Server struct {
	service   service.GameService
	hub       *websocket.Hub
	router    *mux.Router
	mu        sync.RWMutex
	publicURL string
}

// NewServer creates a new API server
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// SetPublicURL sets the base URL encoded in join QR codes. Without it the
// request host is used.
func (s *Server) SetPublicURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publicURL = strings.TrimSuffix(url, "/")
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")

	// Turn actions
	api.HandleFunc("/sessions/{id}/draw", s.handleDraw).Methods("POST")
	api.HandleFunc("/sessions/{id}/rotate", s.handleRotate).Methods("POST")
	api.HandleFunc("/sessions/{id}/place", s.handlePlaceTile).Methods("POST")
	api.HandleFunc("/sessions/{id}/meeple", s.handlePlaceMeeple).Methods("POST")
	api.HandleFunc("/sessions/{id}/skip-meeple", s.handleSkipMeeple).Methods("POST")
	api.HandleFunc("/sessions/{id}/end-turn", s.handleEndTurn).Methods("POST")
	api.HandleFunc("/sessions/{id}/end-game", s.handleEndGame).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")

	// Queries
	api.HandleFunc("/sessions/{id}/placements", s.handlePlacements).Methods("GET")
	api.HandleFunc("/sessions/{id}/meeple-options", s.handleMeepleOptions).Methods("GET")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/sessions/{id}/qr", s.handleQRCode).Methods("GET")

	// Catalogs
	api.HandleFunc("/catalogs", s.handleListCatalogs).Methods("GET")
	api.HandleFunc("/catalogs", s.handleCreateCatalog).Methods("POST")
	api.HandleFunc("/catalogs/{name}", s.handleGetCatalog).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	var cfgErr *engine.ConfigurationError
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, service.ErrCatalogNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidSessionID),
		errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionAlreadyExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSessionRequest
	// An empty body starts a default match
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	info, err := s.service.CreateSession(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[SESSION] created session=%s catalog=%s players=%d", info.ID, info.CatalogID, len(req.Players))
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	total := len(sessions)

	query := r.URL.Query()
	sortBy := query.Get("sort") // "created", "accessed" (default)
	order := query.Get("order") // "asc", "desc" (default)
	if sortBy != "created" {
		sortBy = "accessed"
	}
	if order != "asc" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 && l < len(sessions) {
		sessions = sessions[:l]
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// Action Handlers

// respondAction logs and broadcasts the outcome of a turn action
func (s *Server) respondAction(w http.ResponseWriter, sessionID string, result *service.ActionResult, err error) {
	if err != nil {
		respondServiceError(w, err)
		return
	}

	player := ""
	if result.GameState != nil {
		if p := result.GameState.CurrentPlayer(); p != nil {
			player = p.ID
		}
	}
	log.Printf("[ACTION] session=%s action=%s ok=%t player=%s scored=%d",
		sessionID, result.Action, result.Accepted, player, len(result.ScoreEvents))

	if result.Accepted && s.hub != nil {
		s.hub.BroadcastToSession(sessionID, result.GameState)
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	result, err := s.service.DrawTile(r.Context(), sessionID)
	s.respondAction(w, sessionID, result, err)
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	result, err := s.service.RotateTile(r.Context(), sessionID)
	s.respondAction(w, sessionID, result, err)
}

func (s *Server) handlePlaceTile(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req service.PlaceTileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.PlaceTile(r.Context(), sessionID, req)
	s.respondAction(w, sessionID, result, err)
}

func (s *Server) handlePlaceMeeple(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req service.PlaceMeepleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SegmentID == "" {
		respondError(w, http.StatusBadRequest, "segment_id is required")
		return
	}

	result, err := s.service.PlaceMeeple(r.Context(), sessionID, req)
	s.respondAction(w, sessionID, result, err)
}

func (s *Server) handleSkipMeeple(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	result, err := s.service.SkipMeeple(r.Context(), sessionID)
	s.respondAction(w, sessionID, result, err)
}

func (s *Server) handleEndTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	result, err := s.service.EndTurn(r.Context(), sessionID)
	s.respondAction(w, sessionID, result, err)
}

func (s *Server) handleEndGame(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	result, err := s.service.EndGame(r.Context(), sessionID)
	s.respondAction(w, sessionID, result, err)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, state)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Match reset successfully",
		"state":   state,
	})
}

// Query Handlers

func (s *Server) handlePlacements(w http.ResponseWriter, r *http.Request) {
	placements, err := s.service.ValidPlacements(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if placements == nil {
		placements = []engine.Placement{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":      len(placements),
		"placements": placements,
	})
}

func (s *Server) handleMeepleOptions(w http.ResponseWriter, r *http.Request) {
	options, err := s.service.MeepleOptions(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if options == nil {
		options = []engine.MeepleOption{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(options),
		"options": options,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if p, err := strconv.Atoi(query.Get("page")); err == nil && p > 0 {
		opts.Page = p
	}
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 {
		opts.Limit = l
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetHistory(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// joinURL is the link a spectator scans to follow a match
func (s *Server) joinURL(r *http.Request, sessionID string) string {
	s.mu.RLock()
	base := s.publicURL
	s.mu.RUnlock()
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return fmt.Sprintf("%s/?session=%s", base, sessionID)
}

func (s *Server) handleQRCode(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	png, err := qrcode.Encode(s.joinURL(r, sessionID), qrcode.Medium, qrSize)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to encode QR code: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// Catalog Handlers

func (s *Server) handleListCatalogs(w http.ResponseWriter, r *http.Request) {
	catalogs, err := s.service.ListCatalogs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, catalogs)
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	catalog, err := s.service.LoadCatalog(r.Context(), name)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, catalog)
}

func (s *Server) handleCreateCatalog(w http.ResponseWriter, r *http.Request) {
	var catalog engine.CatalogFile
	if err := json.NewDecoder(r.Body).Decode(&catalog); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if catalog.Name == "" {
		respondError(w, http.StatusBadRequest, "Catalog name is required")
		return
	}

	if err := s.service.SaveCatalog(r.Context(), catalog.Name, &catalog); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Failed to save catalog: %v", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message":    "Catalog saved successfully",
		"catalog_id": catalog.Name,
		"tiles":      catalog.TotalTiles(),
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	state, err := s.service.GetGameState(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID, state)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
