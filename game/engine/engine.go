package engine

import (
	"fmt"
	"sort"
	"time"
)

// Engine provides the main interface for match operations
type Engine interface {
	// State management
	GetState() *GameState
	SetState(state *GameState) error
	Reset() (*GameState, error)
	IsGameOver() bool

	// Turn actions; false means the action was rejected
	DrawTile() bool
	RotateTile() bool
	PlaceTile(c Coordinate) bool
	PlaceMeeple(segmentID string, kind MeepleKind) bool
	SkipMeeple() bool
	EndTurn() bool
	EndGame() bool

	// Queries
	ValidPlacements() []Placement
	MeepleOptions() []MeepleOption
	Standings() []Player

	// History
	GetHistory() []ActionEntry
	GetLastAction() *ActionEntry
}

// ActionEntry records one action attempted against the match
type ActionEntry struct {
	Action       string       `json:"action"`
	PlayerID     string       `json:"player_id"`
	Detail       string       `json:"detail,omitempty"`
	Accepted     bool         `json:"accepted"`
	TurnPhase    TurnPhase    `json:"turn_phase"`
	ScoreEvents  []ScoreEvent `json:"score_events,omitempty"`
	Timestamp    int64        `json:"timestamp"`
	ActionNumber int          `json:"action_number"`
}

// GameEngine implements Engine on top of the pure reducers. It is not safe
// for concurrent use; the session layer serialises access.
type GameEngine struct {
	state   *GameState
	config  *GameConfig
	history []ActionEntry
}

// NewEngine starts a new match from config
func NewEngine(config *GameConfig) (*GameEngine, error) {
	state, err := InitGame(config)
	if err != nil {
		return nil, err
	}
	return &GameEngine{
		state:   state,
		config:  config,
		history: []ActionEntry{},
	}, nil
}

// RestoreEngine rebuilds an engine around a persisted state and history
func RestoreEngine(state *GameState, history []ActionEntry) (*GameEngine, error) {
	e := &GameEngine{history: append([]ActionEntry{}, history...)}
	if err := e.SetState(state); err != nil {
		return nil, err
	}
	return e, nil
}

// GetState returns the current state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// SetState replaces the current state (used for persistence loading)
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if state.Board == nil || state.Features == nil || len(state.Players) == 0 {
		return fmt.Errorf("state is incomplete")
	}
	if state.BoardMeeples == nil {
		state.BoardMeeples = make(map[string]MeeplePlacement)
	}
	e.state = state
	return nil
}

// GetConfig returns the configuration the match was started with. For a
// restored engine it is derived from the state.
func (e *GameEngine) GetConfig() *GameConfig {
	if e.config == nil && e.state != nil {
		e.config = configFromState(e.state)
	}
	return e.config
}

// configFromState recovers a setup equivalent to the one that produced s
func configFromState(s *GameState) *GameConfig {
	names := make([]string, len(s.Players))
	for i, p := range s.Players {
		names[i] = p.Name
	}
	defs := make([]*TileDefinition, 0, len(s.Catalog))
	for _, def := range s.Catalog {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return &GameConfig{
		PlayerNames: names,
		Definitions: defs,
		Expansions:  append([]string(nil), s.Expansions...),
	}
}

// Reset deals a fresh match with the same players and catalog. History is kept.
func (e *GameEngine) Reset() (*GameState, error) {
	state, err := InitGame(e.GetConfig())
	if err != nil {
		return nil, err
	}
	e.state = state
	e.record("reset", "", true)
	return e.state, nil
}

// IsGameOver reports whether the match has ended
func (e *GameEngine) IsGameOver() bool {
	return e.state.IsOver()
}

// apply runs a reducer and records the outcome
func (e *GameEngine) apply(action, detail string, reducer func(*GameState) *GameState) bool {
	next := reducer(e.state)
	accepted := next != e.state
	e.state = next
	e.record(action, detail, accepted)
	return accepted
}

func (e *GameEngine) record(action, detail string, accepted bool) {
	entry := ActionEntry{
		Action:       action,
		Detail:       detail,
		Accepted:     accepted,
		TurnPhase:    e.state.TurnPhase,
		Timestamp:    time.Now().Unix(),
		ActionNumber: len(e.history) + 1,
	}
	if p := e.state.CurrentPlayer(); p != nil {
		entry.PlayerID = p.ID
	}
	if accepted && len(e.state.LastScoreEvents) > 0 && (action == "end_turn" || action == "end_game" || action == "draw_tile") {
		entry.ScoreEvents = e.state.LastScoreEvents
	}
	e.history = append(e.history, entry)
}

// DrawTile draws the next tile
func (e *GameEngine) DrawTile() bool {
	return e.apply("draw_tile", "", DrawTile)
}

// RotateTile turns the drawn tile clockwise
func (e *GameEngine) RotateTile() bool {
	return e.apply("rotate_tile", "", RotateTile)
}

// PlaceTile places the drawn tile at c
func (e *GameEngine) PlaceTile(c Coordinate) bool {
	return e.apply("place_tile", CoordKey(c), func(s *GameState) *GameState {
		return PlaceTile(s, c)
	})
}

// PlaceMeeple puts a meeple of kind on segmentID of the tile just placed
func (e *GameEngine) PlaceMeeple(segmentID string, kind MeepleKind) bool {
	if kind == "" {
		kind = NormalMeeple
	}
	return e.apply("place_meeple", fmt.Sprintf("%s %s", kind, segmentID), func(s *GameState) *GameState {
		return PlaceMeeple(s, segmentID, kind)
	})
}

// SkipMeeple passes on placing a meeple
func (e *GameEngine) SkipMeeple() bool {
	return e.apply("skip_meeple", "", SkipMeeple)
}

// EndTurn scores completed features and passes play on. The acting player
// is recorded before the seat changes.
func (e *GameEngine) EndTurn() bool {
	actor := ""
	if p := e.state.CurrentPlayer(); p != nil {
		actor = p.ID
	}
	ok := e.apply("end_turn", "", EndTurn)
	e.history[len(e.history)-1].PlayerID = actor
	return ok
}

// EndGame runs final scoring
func (e *GameEngine) EndGame() bool {
	return e.apply("end_game", "", EndGame)
}

// ValidPlacements lists legal cells and rotations for the drawn tile
func (e *GameEngine) ValidPlacements() []Placement {
	return ValidPlacements(e.state)
}

// MeepleOptions lists the segments open for a meeple this turn
func (e *GameEngine) MeepleOptions() []MeepleOption {
	return AvailableSegmentsForMeeple(e.state)
}

// Standings returns the players ordered by score
func (e *GameEngine) Standings() []Player {
	return Standings(e.state)
}

// GetHistory returns every recorded action
func (e *GameEngine) GetHistory() []ActionEntry {
	return e.history
}

// GetLastAction returns the most recent action, or nil
func (e *GameEngine) GetLastAction() *ActionEntry {
	if len(e.history) == 0 {
		return nil
	}
	return &e.history[len(e.history)-1]
}
