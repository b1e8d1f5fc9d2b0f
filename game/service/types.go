package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/krueger80/carcassonne-ai-sub001/game/engine"
)

// CreateSessionRequest describes a new match
type CreateSessionRequest struct {
	CatalogID  string   `json:"catalog_id,omitempty"`
	Players    []string `json:"players"`
	Expansions []string `json:"expansions,omitempty"`
}

// PlaceTileRequest places the drawn tile. A nil Rotation keeps the current one.
type PlaceTileRequest struct {
	X        int              `json:"x"`
	Y        int              `json:"y"`
	Rotation *engine.Rotation `json:"rotation,omitempty"`
}

// PlaceMeepleRequest claims a segment of the tile just placed
type PlaceMeepleRequest struct {
	SegmentID string            `json:"segment_id"`
	Kind      engine.MeepleKind `json:"kind,omitempty"`
}

// SessionInfo provides information about a match
type SessionInfo struct {
	ID             string            `json:"id"`
	CatalogID      string            `json:"catalog_id"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
	Standings      []engine.Player   `json:"standings"`
}

// ActionResult reports the outcome of one turn action. A rejected action is
// not an error: Accepted is false and GameState is unchanged.
type ActionResult struct {
	Accepted    bool                  `json:"accepted"`
	Action      string                `json:"action"`
	GameState   *engine.GameState     `json:"game_state"`
	Message     string                `json:"message"`
	ScoreEvents []engine.ScoreEvent   `json:"score_events,omitempty"`
	Placements  []engine.Placement    `json:"placements,omitempty"`
	Options     []engine.MeepleOption `json:"meeple_options,omitempty"`
}

// HistoryOptions configures action history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated action history
type HistoryResponse struct {
	Actions      []engine.ActionEntry `json:"actions"`
	TotalActions int                  `json:"total_actions"`
	Page         int                  `json:"page"`
	PageSize     int                  `json:"page_size"`
	TotalPages   int                  `json:"total_pages"`
	HasNext      bool                 `json:"has_next"`
	HasPrevious  bool                 `json:"has_previous"`
}

// CatalogInfo provides information about a tile catalog
type CatalogInfo struct {
	Filename    string `json:"filename"`
	CatalogID   string `json:"catalog_id"` // The identifier to use for session creation
	Name        string `json:"name"`
	Description string `json:"description"`
	Expansion   string `json:"expansion,omitempty"`
	TileTypes   int    `json:"tile_types"`
	TotalTiles  int    `json:"total_tiles"`
}

// ErrActionRejected marks a turn action the rules refused
var ErrActionRejected = errors.New("action rejected")

// Err returns ErrActionRejected, wrapped with the message, when the action
// was refused, and nil otherwise
func (r *ActionResult) Err() error {
	if r.Accepted {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrActionRejected, r.Message)
}
