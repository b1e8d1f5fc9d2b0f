package engine

import "testing"

// keepOrder leaves the bag in definition order
type keepOrder struct{}

func (keepOrder) Intn(n int) int { return n - 1 }

// edges builds an edge map from per-side triples (LEFT, CENTER, RIGHT)
func edges(n, e, s, w [3]string) map[EdgePosition]string {
	m := make(map[EdgePosition]string, EdgePositions)
	for i, side := range [][3]string{n, e, s, w} {
		for j, pos := range EdgePositionsFor(Directions[i]) {
			m[pos] = side[j]
		}
	}
	return m
}

func all(id string) [3]string { return [3]string{id, id, id} }

// roadEndTile has a road leaving south and ending in the middle
func roadEndTile(id string, count int, inn bool) *TileDefinition {
	return &TileDefinition{
		ID:    id,
		Count: count,
		Segments: []Segment{
			{ID: "field0", Type: Field},
			{ID: "road0", Type: Road, HasInn: inn},
		},
		EdgePositionToSegment: edges(all("field0"), all("field0"), [3]string{"field0", "road0", "field0"}, all("field0")),
	}
}

// cityCapTile has a city on its north side and one field elsewhere
func cityCapTile(id string, count int) *TileDefinition {
	return &TileDefinition{
		ID:    id,
		Count: count,
		Segments: []Segment{
			{ID: "city0", Type: City},
			{ID: "field0", Type: Field},
		},
		EdgePositionToSegment: edges(all("city0"), all("field0"), all("field0"), all("field0")),
		Adjacencies:           [][2]string{{"field0", "city0"}},
	}
}

// cityCornerTile has one city covering its north and east sides
func cityCornerTile(id string, count int, pennant bool) *TileDefinition {
	return &TileDefinition{
		ID:    id,
		Count: count,
		Segments: []Segment{
			{ID: "city0", Type: City, HasPennant: pennant},
			{ID: "field0", Type: Field},
		},
		EdgePositionToSegment: edges(all("city0"), all("city0"), all("field0"), all("field0")),
		Adjacencies:           [][2]string{{"field0", "city0"}},
	}
}

// cloisterTile is a cloister surrounded by field
func cloisterTile(id string, count int) *TileDefinition {
	return &TileDefinition{
		ID:    id,
		Count: count,
		Segments: []Segment{
			{ID: "field0", Type: Field},
			{ID: "cloister0", Type: Cloister},
		},
		EdgePositionToSegment: edges(all("field0"), all("field0"), all("field0"), all("field0")),
	}
}

func startWith(def *TileDefinition) *TileDefinition {
	def.StartingTile = true
	return def
}

func newTestGame(t *testing.T, defs []*TileDefinition, expansions ...string) *GameState {
	t.Helper()
	state, err := InitGame(&GameConfig{
		PlayerNames: []string{"Ada", "Grace"},
		Definitions: defs,
		Expansions:  expansions,
		Random:      keepOrder{},
	})
	if err != nil {
		t.Fatalf("InitGame failed: %v", err)
	}
	return state
}

func mustAccept(t *testing.T, action string, before, after *GameState) *GameState {
	t.Helper()
	if after == before {
		t.Fatalf("%s was rejected (turn phase %s)", action, before.TurnPhase)
	}
	return after
}

// playTurn draws, places the tile at c with rotation r, optionally places a
// meeple and ends the turn
func playTurn(t *testing.T, s *GameState, c Coordinate, r Rotation, segmentID string) *GameState {
	t.Helper()
	s = mustAccept(t, "draw", s, DrawTile(s))
	for s.CurrentTile.Rotation != r {
		s = mustAccept(t, "rotate", s, RotateTile(s))
	}
	s = mustAccept(t, "place", s, PlaceTile(s, c))
	if segmentID != "" {
		s = mustAccept(t, "meeple", s, PlaceMeeple(s, segmentID, NormalMeeple))
	} else {
		s = mustAccept(t, "skip", s, SkipMeeple(s))
	}
	return mustAccept(t, "end turn", s, EndTurn(s))
}

func loadBaseCatalog(t *testing.T) *CatalogFile {
	t.Helper()
	f, err := LoadCatalogFile("../../catalogs/base.json")
	if err != nil {
		t.Fatalf("Failed to load base catalog: %v", err)
	}
	return f
}

// straightRoadTile runs a road from north to south between two fields
func straightRoadTile(id string, count int) *TileDefinition {
	return &TileDefinition{
		ID:    id,
		Count: count,
		Segments: []Segment{
			{ID: "road0", Type: Road},
			{ID: "field0", Type: Field},
			{ID: "field1", Type: Field},
		},
		EdgePositionToSegment: edges(
			[3]string{"field0", "road0", "field1"},
			all("field1"),
			[3]string{"field1", "road0", "field0"},
			all("field0"),
		),
	}
}
