package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/krueger80/carcassonne-ai-sub001/game/engine"
)

// ErrCatalogNotFound is returned when a session asks for an unknown catalog
var ErrCatalogNotFound = errors.New("catalog not found")

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	catalogs CatalogManager
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, catalogs CatalogManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		catalogs: catalogs,
	}
}

// buildConfig resolves the catalog and expansion tiles for a new match
func (s *gameServiceImpl) buildConfig(req CreateSessionRequest) (*engine.GameConfig, string, error) {
	catalogID := req.CatalogID
	var catalog *engine.CatalogFile
	if catalogID != "" {
		var err error
		catalog, err = s.catalogs.LoadCatalog(catalogID)
		if err != nil {
			available, listErr := s.catalogs.ListCatalogs()
			if listErr == nil && len(available) > 0 {
				var ids []string
				for _, c := range available {
					ids = append(ids, c.CatalogID)
				}
				return nil, "", fmt.Errorf("%w: '%s'. Available catalogs: %v", ErrCatalogNotFound, catalogID, ids)
			}
			return nil, "", fmt.Errorf("%w: '%s': %v", ErrCatalogNotFound, catalogID, err)
		}
	} else {
		catalog = s.catalogs.GetDefault()
		catalogID = catalog.Name
	}

	defs := append([]*engine.TileDefinition{}, catalog.Tiles...)
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		seen[def.ID] = true
	}

	// An expansion may ship extra tiles in a catalog named after it
	for _, id := range req.Expansions {
		if _, ok := engine.GetExpansion(id); !ok {
			return nil, "", &engine.ConfigurationError{Reason: fmt.Sprintf("unknown expansion %q", id)}
		}
		extra, err := s.catalogs.LoadCatalog(id)
		if err != nil {
			continue
		}
		for _, def := range extra.Tiles {
			if !seen[def.ID] {
				seen[def.ID] = true
				defs = append(defs, def)
			}
		}
	}

	return &engine.GameConfig{
		PlayerNames: req.Players,
		Definitions: defs,
		Expansions:  req.Expansions,
	}, catalogID, nil
}

func newSessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		CatalogID:      sess.CatalogID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccess(),
		GameState:      sess.Engine.GetState(),
		Standings:      sess.Engine.Standings(),
	}
}

// CreateSession creates a new match session
func (s *gameServiceImpl) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	config, catalogID, err := s.buildConfig(req)
	if err != nil {
		return nil, err
	}

	// Let session manager generate the ID
	sess, err := s.sessions.Create("", catalogID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := s.sessions.Save(sess.ID); err != nil {
		log.Printf("[SERVICE] failed to persist new session %s: %v", sess.ID, err)
	}

	return newSessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return newSessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, newSessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// act runs one engine action under the write lock, saves the session and
// reports the outcome
func (s *gameServiceImpl) act(sessionID, action string, run func(*engine.GameEngine) bool) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	before := sess.Engine.GetState()
	accepted := run(sess.Engine)
	state := sess.Engine.GetState()

	result := &ActionResult{
		Accepted:  accepted,
		Action:    action,
		GameState: state,
	}
	if !accepted {
		result.Message = fmt.Sprintf("%s rejected during %s", action, before.TurnPhase)
		return result, nil
	}

	result.Message = describe(action, state)
	result.ScoreEvents = state.LastScoreEvents
	switch state.TurnPhase {
	case engine.TurnPlaceTile:
		result.Placements = sess.Engine.ValidPlacements()
	case engine.TurnPlaceMeeple:
		result.Options = sess.Engine.MeepleOptions()
	}

	// Auto-save session after every accepted action
	if err := s.sessions.Save(sessionID); err != nil {
		log.Printf("[SERVICE] failed to persist session %s after %s: %v", sessionID, action, err)
	}

	return result, nil
}

// describe builds the human-readable message for an accepted action
func describe(action string, s *engine.GameState) string {
	if s.IsOver() {
		return fmt.Sprintf("Game over after %s", action)
	}
	player := ""
	if p := s.CurrentPlayer(); p != nil {
		player = p.Name
	}
	switch action {
	case "draw_tile":
		if s.CurrentTile != nil {
			return fmt.Sprintf("%s drew tile %s (%d left in bag)", player, s.CurrentTile.DefinitionID, s.Bag.Len())
		}
	case "rotate_tile":
		if s.CurrentTile != nil {
			return fmt.Sprintf("Tile rotated to %d", s.CurrentTile.Rotation)
		}
	case "place_tile":
		if s.LastPlacedCoord != nil {
			return fmt.Sprintf("Tile placed at (%d,%d)", s.LastPlacedCoord.X, s.LastPlacedCoord.Y)
		}
	case "place_meeple":
		return fmt.Sprintf("%s placed a meeple", player)
	case "skip_meeple":
		return fmt.Sprintf("%s skipped the meeple", player)
	case "end_turn":
		return fmt.Sprintf("Turn ended, %d feature(s) scored. %s to play", len(s.LastScoreEvents), player)
	}
	return strings.ReplaceAll(action, "_", " ")
}

// DrawTile draws the next tile for the current player
func (s *gameServiceImpl) DrawTile(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.act(sessionID, "draw_tile", (*engine.GameEngine).DrawTile)
}

// RotateTile turns the drawn tile 90 degrees clockwise
func (s *gameServiceImpl) RotateTile(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.act(sessionID, "rotate_tile", (*engine.GameEngine).RotateTile)
}

// PlaceTile places the drawn tile, rotating it first when req.Rotation is set
func (s *gameServiceImpl) PlaceTile(ctx context.Context, sessionID string, req PlaceTileRequest) (*ActionResult, error) {
	c := engine.Coordinate{X: req.X, Y: req.Y}
	return s.act(sessionID, "place_tile", func(e *engine.GameEngine) bool {
		if req.Rotation != nil {
			target := *req.Rotation
			if target%90 != 0 || target < 0 || target >= 360 {
				return false
			}
			for i := 0; i < 4 && e.GetState().CurrentTile != nil && e.GetState().CurrentTile.Rotation != target; i++ {
				if !e.RotateTile() {
					return false
				}
			}
		}
		return e.PlaceTile(c)
	})
}

// PlaceMeeple claims a segment of the tile just placed
func (s *gameServiceImpl) PlaceMeeple(ctx context.Context, sessionID string, req PlaceMeepleRequest) (*ActionResult, error) {
	return s.act(sessionID, "place_meeple", func(e *engine.GameEngine) bool {
		return e.PlaceMeeple(req.SegmentID, req.Kind)
	})
}

// SkipMeeple passes on placing a meeple this turn
func (s *gameServiceImpl) SkipMeeple(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.act(sessionID, "skip_meeple", (*engine.GameEngine).SkipMeeple)
}

// EndTurn scores completed features and passes play on
func (s *gameServiceImpl) EndTurn(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.act(sessionID, "end_turn", (*engine.GameEngine).EndTurn)
}

// EndGame runs final scoring
func (s *gameServiceImpl) EndGame(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.act(sessionID, "end_game", (*engine.GameEngine).EndGame)
}

// Reset deals a fresh match for a session
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	state, err := sess.Engine.Reset()
	if err != nil {
		return nil, fmt.Errorf("failed to reset session %s: %w", sessionID, err)
	}

	// Auto-save session after reset
	if err := s.sessions.Save(sessionID); err != nil {
		log.Printf("[SERVICE] failed to persist session %s after reset: %v", sessionID, err)
	}

	return state, nil
}

func (s *gameServiceImpl) engineFor(sessionID string) (*engine.GameEngine, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess.Engine, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.engineFor(sessionID)
	if err != nil {
		return nil, err
	}
	return e.GetState(), nil
}

// ValidPlacements lists where the drawn tile can go
func (s *gameServiceImpl) ValidPlacements(ctx context.Context, sessionID string) ([]engine.Placement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.engineFor(sessionID)
	if err != nil {
		return nil, err
	}
	placements := e.ValidPlacements()
	if placements == nil {
		placements = []engine.Placement{}
	}
	return placements, nil
}

// MeepleOptions lists the segments open for a meeple this turn
func (s *gameServiceImpl) MeepleOptions(ctx context.Context, sessionID string) ([]engine.MeepleOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.engineFor(sessionID)
	if err != nil {
		return nil, err
	}
	options := e.MeepleOptions()
	if options == nil {
		options = []engine.MeepleOption{}
	}
	return options, nil
}

// GetHistory returns paginated action history
func (s *gameServiceImpl) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	history := sess.Engine.GetHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > engine.HistoryMaxLimit {
		opts.Limit = engine.HistoryMaxLimit
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var actions []engine.ActionEntry
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			actions = append(actions, history[i])
		}
	} else if start < total {
		actions = history[start:end]
	}

	if actions == nil {
		actions = []engine.ActionEntry{}
	}

	return &HistoryResponse{
		Actions:      actions,
		TotalActions: total,
		Page:         opts.Page,
		PageSize:     opts.Limit,
		TotalPages:   totalPages,
		HasNext:      opts.Page < totalPages,
		HasPrevious:  opts.Page > 1,
	}, nil
}

// ListCatalogs returns available tile catalogs
func (s *gameServiceImpl) ListCatalogs(ctx context.Context) ([]*CatalogInfo, error) {
	return s.catalogs.ListCatalogs()
}

// LoadCatalog loads a specific tile catalog
func (s *gameServiceImpl) LoadCatalog(ctx context.Context, name string) (*engine.CatalogFile, error) {
	return s.catalogs.LoadCatalog(name)
}

// SaveCatalog saves a tile catalog to disk
func (s *gameServiceImpl) SaveCatalog(ctx context.Context, name string, catalog *engine.CatalogFile) error {
	return s.catalogs.SaveCatalog(name, catalog)
}
