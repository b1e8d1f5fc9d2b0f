package engine

// SegmentType represents the terrain of a tile segment
type SegmentType string

const (
	City     SegmentType = "CITY"
	Road     SegmentType = "ROAD"
	Field    SegmentType = "FIELD"
	Cloister SegmentType = "CLOISTER"

	// Validation constants
	MinPlayers        = 2
	MaxPlayers        = 6
	NormalMeeples     = 7
	EdgePositions     = 12
	CloisterRing      = 8
	TraderBonusPoints = 10
	StartingCoordX    = 0
	StartingCoordY    = 0
	HistoryMaxLimit   = 100
)

// Direction is one of the four compass sides of a tile
type Direction string

const (
	North Direction = "NORTH"
	East  Direction = "EAST"
	South Direction = "SOUTH"
	West  Direction = "WEST"
)

// Directions lists the compass sides in clockwise order
var Directions = []Direction{North, East, South, West}

// EdgePosition is one of the 12 attachment points around a tile
type EdgePosition string

const (
	NorthLeft   EdgePosition = "NORTH_LEFT"
	NorthCenter EdgePosition = "NORTH_CENTER"
	NorthRight  EdgePosition = "NORTH_RIGHT"
	EastLeft    EdgePosition = "EAST_LEFT"
	EastCenter  EdgePosition = "EAST_CENTER"
	EastRight   EdgePosition = "EAST_RIGHT"
	SouthLeft   EdgePosition = "SOUTH_LEFT"
	SouthCenter EdgePosition = "SOUTH_CENTER"
	SouthRight  EdgePosition = "SOUTH_RIGHT"
	WestLeft    EdgePosition = "WEST_LEFT"
	WestCenter  EdgePosition = "WEST_CENTER"
	WestRight   EdgePosition = "WEST_RIGHT"
)

// AllEdgePositions lists every sub-position, clockwise from the north-west corner
var AllEdgePositions = []EdgePosition{
	NorthLeft, NorthCenter, NorthRight,
	EastLeft, EastCenter, EastRight,
	SouthLeft, SouthCenter, SouthRight,
	WestLeft, WestCenter, WestRight,
}

// Rotation is a clockwise rotation in degrees: 0, 90, 180 or 270
type Rotation int

// Rotations lists the legal rotations in clockwise order
var Rotations = []Rotation{0, 90, 180, 270}

// Commodity is a Traders & Builders trade good printed on city segments
type Commodity string

const (
	Wine  Commodity = "WINE"
	Wheat Commodity = "WHEAT"
	Cloth Commodity = "CLOTH"
)

// Commodities lists the trade goods in a stable order
var Commodities = []Commodity{Wine, Wheat, Cloth}

// Segment is a named terrain region within one tile definition
type Segment struct {
	ID           string      `json:"id"`
	Type         SegmentType `json:"type"`
	HasPennant   bool        `json:"has_pennant,omitempty"`
	HasInn       bool        `json:"has_inn,omitempty"`
	HasCathedral bool        `json:"has_cathedral,omitempty"`
	Commodity    Commodity   `json:"commodity,omitempty"`
}

// TileDefinition is the immutable shape of a tile at rotation 0
type TileDefinition struct {
	ID                    string                  `json:"id"`
	Count                 int                     `json:"count"`
	Segments              []Segment               `json:"segments"`
	EdgePositionToSegment map[EdgePosition]string `json:"edge_position_to_segment"`
	StartingTile          bool                    `json:"starting_tile,omitempty"`
	Adjacencies           [][2]string             `json:"adjacencies,omitempty"`
	Expansion             string                  `json:"expansion,omitempty"`
}

// Segment returns the segment with the given id, or nil
func (d *TileDefinition) Segment(id string) *Segment {
	for i := range d.Segments {
		if d.Segments[i].ID == id {
			return &d.Segments[i]
		}
	}
	return nil
}

// Catalog maps definition ids to tile definitions
type Catalog map[string]*TileDefinition

// NewCatalog indexes definitions by id. Later duplicates replace earlier ones.
func NewCatalog(defs []*TileDefinition) Catalog {
	catalog := make(Catalog, len(defs))
	for _, def := range defs {
		catalog[def.ID] = def
	}
	return catalog
}

// TileInstance is a definition reference plus a rotation
type TileInstance struct {
	DefinitionID string   `json:"definition_id"`
	Rotation     Rotation `json:"rotation"`
}

// Coordinate is a board cell
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// MeepleKind is the kind of a player marker
type MeepleKind string

const (
	NormalMeeple MeepleKind = "NORMAL"
	BigMeeple    MeepleKind = "BIG"
	Pig          MeepleKind = "PIG"
)

// MeeplePlacement records a meeple sitting on a segment
type MeeplePlacement struct {
	PlayerID  string     `json:"player_id"`
	Kind      MeepleKind `json:"kind"`
	SegmentID string     `json:"segment_id"`
}

// PlacedTile is a tile instance bound to a board cell
type PlacedTile struct {
	Coordinate   Coordinate                 `json:"coordinate"`
	DefinitionID string                     `json:"definition_id"`
	Rotation     Rotation                   `json:"rotation"`
	Meeples      map[string]MeeplePlacement `json:"meeples"`
}

// Board is a sparse map of placed tiles keyed "x,y"
type Board struct {
	Tiles map[string]*PlacedTile `json:"tiles"`
	MinX  int                    `json:"min_x"`
	MaxX  int                    `json:"max_x"`
	MinY  int                    `json:"min_y"`
	MaxY  int                    `json:"max_y"`
}

// PlayerMeeples splits a player's inventory into available and on-board
type PlayerMeeples struct {
	Available map[MeepleKind]int `json:"available"`
	OnBoard   []string           `json:"on_board"` // node keys
}

// Player is a seat at the table
type Player struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Color       string            `json:"color"`
	Score       int               `json:"score"`
	Meeples     PlayerMeeples     `json:"meeples"`
	Commodities map[Commodity]int `json:"commodities,omitempty"`
}

// PlayerColors is the fixed seat palette
var PlayerColors = []string{
	"#e74c3c", // red
	"#3498db", // blue
	"#2ecc71", // green
	"#f39c12", // yellow
	"#9b59b6", // purple
	"#1abc9c", // teal
}

// ScoreEvent reports points awarded for one feature (or one end-game bonus)
type ScoreEvent struct {
	FeatureID   string         `json:"feature_id"`
	FeatureType SegmentType    `json:"feature_type"`
	Scores      map[string]int `json:"scores"`
	Tiles       []Coordinate   `json:"tiles"`
	IsEndGame   bool           `json:"is_end_game"`
}

// GamePhase is the overall phase of a match
type GamePhase string

const (
	PhasePlaying GamePhase = "PLAYING"
	PhaseEnd     GamePhase = "END"
)

// TurnPhase is the sub-state within a player's turn
type TurnPhase string

const (
	TurnDrawTile    TurnPhase = "DRAW_TILE"
	TurnPlaceTile   TurnPhase = "PLACE_TILE"
	TurnPlaceMeeple TurnPhase = "PLACE_MEEPLE"
	TurnScore       TurnPhase = "SCORE"
)

// GameConfig describes a new match
type GameConfig struct {
	PlayerNames    []string          `json:"player_names"`
	Definitions    []*TileDefinition `json:"definitions"`
	ExtraInstances []TileInstance    `json:"extra_instances,omitempty"`
	Expansions     []string          `json:"expansions,omitempty"`
	Random         RandomSource      `json:"-"`
}

// GameState is one immutable snapshot of a match. Actions never modify a
// state they receive; they return either that same pointer (rejected) or a
// new one.
type GameState struct {
	Phase               GamePhase                  `json:"phase"`
	TurnPhase           TurnPhase                  `json:"turn_phase"`
	Players             []Player                   `json:"players"`
	CurrentPlayerIndex  int                        `json:"current_player_index"`
	Board               *Board                     `json:"board"`
	Bag                 Bag                        `json:"bag"`
	CurrentTile         *TileInstance              `json:"current_tile,omitempty"`
	LastPlacedCoord     *Coordinate                `json:"last_placed_coord,omitempty"`
	CompletedFeatureIDs []string                   `json:"completed_feature_ids"`
	Features            *FeatureTracker            `json:"features"`
	BoardMeeples        map[string]MeeplePlacement `json:"board_meeples"`
	LastScoreEvents     []ScoreEvent               `json:"last_score_events"`
	DiscardedTiles      []TileInstance             `json:"discarded_tiles,omitempty"`
	Expansions          []string                   `json:"expansions,omitempty"`
	Catalog             Catalog                    `json:"catalog"`
}
