package engine

import (
	"errors"
	"testing"
)

func TestInitGameBaseCatalog(t *testing.T) {
	f := loadBaseCatalog(t)
	state, err := InitGame(&GameConfig{
		PlayerNames: []string{"Ada", "Grace", "Linus"},
		Definitions: f.Tiles,
	})
	if err != nil {
		t.Fatalf("InitGame failed: %v", err)
	}

	if state.Bag.Len() != 71 {
		t.Errorf("Expected 71 tiles in bag, got %d", state.Bag.Len())
	}
	start := state.Board.Get(StartingCoordinate)
	if start == nil || start.DefinitionID != "D" {
		t.Fatalf("Expected tile D at the origin, got %+v", start)
	}
	if state.Phase != PhasePlaying || state.TurnPhase != TurnDrawTile {
		t.Errorf("Expected PLAYING/DRAW_TILE, got %s/%s", state.Phase, state.TurnPhase)
	}
	if state.Features.Feature(NodeKey(StartingCoordinate, "city0")) == nil {
		t.Error("Expected the starting tile's segments to be tracked")
	}

	for i, p := range state.Players {
		if p.Meeples.Available[NormalMeeple] != NormalMeeples {
			t.Errorf("player %d: expected %d meeples, got %d", i, NormalMeeples, p.Meeples.Available[NormalMeeple])
		}
		if p.Meeples.Available[BigMeeple] != 0 {
			t.Errorf("player %d: expected no big meeple without expansions", i)
		}
		if p.Color != PlayerColors[i] {
			t.Errorf("player %d: expected color %s, got %s", i, PlayerColors[i], p.Color)
		}
	}
	if state.Players[2].ID != "player_2" {
		t.Errorf("Expected id player_2, got %s", state.Players[2].ID)
	}
}

func TestInitGameRejectsBadPlayerCount(t *testing.T) {
	_, err := InitGame(&GameConfig{
		PlayerNames: []string{"Solo"},
		Definitions: []*TileDefinition{startWith(cityCapTile("cap", 2))},
	})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected *ConfigurationError, got %v", err)
	}
}

func TestInitGameExpansionMeeples(t *testing.T) {
	state := newTestGame(t, []*TileDefinition{startWith(cityCapTile("cap", 2))}, InnsCathedrals, TradersBuilders)
	available := state.Players[0].Meeples.Available
	if available[BigMeeple] != 2 || available[Pig] != 1 {
		t.Errorf("Expected 2 big meeples and 1 pig, got %v", available)
	}
}

func TestActionsOutsideTheirPhaseAreRejected(t *testing.T) {
	state := newTestGame(t, []*TileDefinition{startWith(cityCapTile("cap", 3))})

	checks := map[string]*GameState{
		"rotate":      RotateTile(state),
		"place":       PlaceTile(state, Coordinate{X: 1, Y: 0}),
		"meeple":      PlaceMeeple(state, "field0", NormalMeeple),
		"skip meeple": SkipMeeple(state),
		"end turn":    EndTurn(state),
	}
	for name, next := range checks {
		if next != state {
			t.Errorf("Expected %s during DRAW_TILE to return the same state", name)
		}
	}

	drawn := DrawTile(state)
	if drawn == state {
		t.Fatal("Expected draw to be accepted")
	}
	if again := DrawTile(drawn); again != drawn {
		t.Error("Expected a second draw to be rejected")
	}
	if state.CurrentTile != nil || state.Bag.Len() != 2 {
		t.Error("Expected the original state to be untouched by DrawTile")
	}
}

func TestRotateTileFourTimes(t *testing.T) {
	state := newTestGame(t, []*TileDefinition{startWith(cityCapTile("cap", 3))})
	state = DrawTile(state)

	start := state.CurrentTile.Rotation
	for i := 0; i < 4; i++ {
		state = mustAccept(t, "rotate", state, RotateTile(state))
	}
	if state.CurrentTile.Rotation != start {
		t.Errorf("Expected rotation %d after four turns, got %d", start, state.CurrentTile.Rotation)
	}
}

func TestPlaceTileMismatchKeepsState(t *testing.T) {
	state := newTestGame(t, []*TileDefinition{startWith(cityCapTile("cap", 3))})
	state = DrawTile(state)

	// An unrotated cap north of the start shows field to the start's city
	if next := PlaceTile(state, Coordinate{X: 0, Y: -1}); next != state {
		t.Error("Expected mismatched placement to return the same state")
	}
	if next := PlaceTile(state, StartingCoordinate); next != state {
		t.Error("Expected placement on an occupied cell to return the same state")
	}
}

func TestPlaceMeepleUpdatesInventory(t *testing.T) {
	state := newTestGame(t, []*TileDefinition{startWith(straightRoadTile("straight", 3))})

	state = DrawTile(state)
	state = mustAccept(t, "place", state, PlaceTile(state, Coordinate{X: 0, Y: 1}))
	if state.TurnPhase != TurnPlaceMeeple {
		t.Fatalf("Expected PLACE_MEEPLE, got %s", state.TurnPhase)
	}

	if next := PlaceMeeple(state, "lake0", NormalMeeple); next != state {
		t.Error("Expected unknown segment to be rejected")
	}
	if next := PlaceMeeple(state, "road0", Pig); next != state {
		t.Error("Expected a pig without the expansion to be rejected")
	}

	before := state.Players[0].Meeples.Available[NormalMeeple]
	state = mustAccept(t, "meeple", state, PlaceMeeple(state, "road0", ""))

	if got := state.Players[0].Meeples.Available[NormalMeeple]; got != before-1 {
		t.Errorf("Expected %d available meeples, got %d", before-1, got)
	}
	m, ok := state.BoardMeeples["0,1:road0"]
	if !ok || m.PlayerID != "player_0" {
		t.Errorf("Expected board meeple for player_0 at 0,1:road0, got %+v", m)
	}
	if tile := state.Board.Get(Coordinate{X: 0, Y: 1}); tile.Meeples["road0"].PlayerID != "player_0" {
		t.Error("Expected the placed tile to carry the meeple")
	}
	if state.TurnPhase != TurnScore {
		t.Errorf("Expected SCORE, got %s", state.TurnPhase)
	}

	// Second turn: the road is claimed but the field beside it is not
	state = EndTurn(state)
	state = DrawTile(state)
	state = mustAccept(t, "place", state, PlaceTile(state, Coordinate{X: 0, Y: 2}))
	if next := PlaceMeeple(state, "road0", NormalMeeple); next != state {
		t.Error("Expected a meeple on a claimed road to be rejected")
	}
	state = mustAccept(t, "field meeple", state, PlaceMeeple(state, "field0", NormalMeeple))
	if state.Players[1].Meeples.Available[NormalMeeple] != NormalMeeples-1 {
		t.Errorf("Expected player_1 to have used one meeple")
	}
}

func TestEndTurnAdvancesPlayer(t *testing.T) {
	state := newTestGame(t, []*TileDefinition{startWith(cityCapTile("cap", 4))})

	for turn := 0; turn < 3; turn++ {
		before := state.CurrentPlayerIndex
		meeples := state.Players[before].Meeples.Available[NormalMeeple]

		state = playTurn(t, state, Coordinate{X: turn + 1, Y: 0}, 0, "")

		if want := (before + 1) % len(state.Players); state.CurrentPlayerIndex != want {
			t.Errorf("turn %d: expected player %d, got %d", turn, want, state.CurrentPlayerIndex)
		}
		if state.Players[before].Meeples.Available[NormalMeeple] != meeples {
			t.Errorf("turn %d: meeple count changed without scoring", turn)
		}
		if state.TurnPhase != TurnDrawTile || state.CurrentTile != nil || state.LastPlacedCoord != nil {
			t.Errorf("turn %d: expected a clean DRAW_TILE state", turn)
		}
	}
}

func TestCompletedRoadScoresTileCount(t *testing.T) {
	tests := []struct {
		name       string
		inn        bool
		expansions []string
		want       int
	}{
		{"plain road", false, nil, 2},
		{"road with inn", true, []string{InnsCathedrals}, 4},
		{"inn without expansion", true, nil, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := newTestGame(t, []*TileDefinition{startWith(roadEndTile("end", 2, tt.inn))}, tt.expansions...)

			state = DrawTile(state)
			state = RotateTile(RotateTile(state))
			state = mustAccept(t, "place", state, PlaceTile(state, Coordinate{X: 0, Y: 1}))

			road := FeatureAt(state, Coordinate{X: 0, Y: 1}, "road0")
			if road == nil || !road.Complete || road.TileCount != 2 {
				t.Fatalf("Expected a complete 2-tile road, got %+v", road)
			}

			state = mustAccept(t, "meeple", state, PlaceMeeple(state, "road0", NormalMeeple))
			state = mustAccept(t, "end turn", state, EndTurn(state))

			if got := state.Players[0].Score; got != tt.want {
				t.Errorf("Expected %d points, got %d", tt.want, got)
			}
			if got := state.Players[0].Meeples.Available[NormalMeeple]; got != NormalMeeples {
				t.Errorf("Expected meeple back in the pool, got %d available", got)
			}
			if len(state.Players[0].Meeples.OnBoard) != 0 || len(state.BoardMeeples) != 0 {
				t.Error("Expected no meeples left on the board")
			}
			if len(state.LastScoreEvents) != 1 || state.LastScoreEvents[0].IsEndGame {
				t.Errorf("Expected one mid-game score event, got %+v", state.LastScoreEvents)
			}

			// The bag is empty now; drawing ends the game without rescoring the road
			state = mustAccept(t, "draw", state, DrawTile(state))
			if state.Phase != PhaseEnd {
				t.Fatalf("Expected END, got %s", state.Phase)
			}
			if got := state.Players[0].Score; got != tt.want {
				t.Errorf("Expected road not to be scored again, score %d", got)
			}
			if again := EndGame(state); again != state {
				t.Error("Expected EndGame on an ended match to be a no-op")
			}
		})
	}
}

func TestIncompleteInnRoadAtGameEnd(t *testing.T) {
	tests := []struct {
		expansion string
		want      int
	}{
		{InnsCathedrals, 0},
		{InnsCathedralsC31, 2},
	}

	for _, tt := range tests {
		t.Run(tt.expansion, func(t *testing.T) {
			state := newTestGame(t, []*TileDefinition{
				startWith(roadEndTile("inn", 1, true)),
				straightRoadTile("straight", 1),
			}, tt.expansion)

			state = playTurn(t, state, Coordinate{X: 0, Y: 1}, 0, "road0")
			if state.Players[0].Score != 0 {
				t.Fatalf("Expected no mid-game score for an open road")
			}

			state = EndGame(state)
			if got := state.Players[0].Score; got != tt.want {
				t.Errorf("Expected %d points, got %d", tt.want, got)
			}
			if state.Players[0].Meeples.Available[NormalMeeple] != NormalMeeples {
				t.Error("Expected meeples returned at game end")
			}
		})
	}
}

func TestCloisterScoresNineWhenSurrounded(t *testing.T) {
	state := newTestGame(t, []*TileDefinition{startWith(cloisterTile("abbey", 9))})

	state = playTurn(t, state, Coordinate{X: 1, Y: 0}, 0, "cloister0")

	ring := []Coordinate{{2, 0}, {0, -1}, {1, -1}, {2, -1}, {0, 1}, {1, 1}, {2, 1}}
	for i, c := range ring {
		cloister := FeatureAt(state, Coordinate{X: 1, Y: 0}, "cloister0")
		if cloister.TileCount != i+2 {
			t.Fatalf("Expected cloister tile count %d, got %d", i+2, cloister.TileCount)
		}
		if state.Players[0].Score != 0 {
			t.Fatalf("Expected no score before the ring closes")
		}
		state = playTurn(t, state, c, 0, "")
	}

	if got := state.Players[0].Score; got != 9 {
		t.Errorf("Expected 9 points for the cloister, got %d", got)
	}
	cloister := FeatureAt(state, Coordinate{X: 1, Y: 0}, "cloister0")
	if !cloister.Complete || !cloister.Scored {
		t.Errorf("Expected a complete, scored cloister, got %+v", cloister)
	}
	if state.Players[0].Meeples.Available[NormalMeeple] != NormalMeeples {
		t.Error("Expected the monk to return")
	}
}

func TestIncompleteCloisterAtGameEnd(t *testing.T) {
	state := newTestGame(t, []*TileDefinition{startWith(cloisterTile("abbey", 2))})
	state = playTurn(t, state, Coordinate{X: 1, Y: 0}, 0, "cloister0")
	state = DrawTile(state)

	if state.Phase != PhaseEnd {
		t.Fatalf("Expected END, got %s", state.Phase)
	}
	if got := state.Players[0].Score; got != 2 {
		t.Errorf("Expected 2 points (itself plus one neighbour), got %d", got)
	}
}

func TestPennantCityMergesAndScoresDouble(t *testing.T) {
	pennantCap := cityCapTile("pennant-cap", 1)
	pennantCap.Segments[0].HasPennant = true

	state := newTestGame(t, []*TileDefinition{
		startWith(cityCapTile("cap", 1)),
		pennantCap,
		cityCornerTile("pennant-corner", 1, true),
		cityCornerTile("corner", 1, false),
	})

	// two open cities side by side, one pennant each
	state = playTurn(t, state, Coordinate{X: 1, Y: 0}, 0, "city0")
	state = playTurn(t, state, Coordinate{X: 0, Y: -1}, 90, "")

	left := FeatureAt(state, StartingCoordinate, "city0")
	right := FeatureAt(state, Coordinate{X: 1, Y: 0}, "city0")
	if left.TileCount != 2 || left.PennantCount != 1 || right.TileCount != 1 || right.PennantCount != 1 {
		t.Fatalf("Unexpected cities before the merge: %+v / %+v", left, right)
	}

	// the last corner joins both and closes the city
	state = playTurn(t, state, Coordinate{X: 1, Y: -1}, 180, "")

	city := FeatureAt(state, StartingCoordinate, "city0")
	if !city.Complete || city.TileCount != 4 || city.PennantCount != 2 {
		t.Fatalf("Expected a complete 4-tile city with 2 pennants, got %+v", city)
	}
	if got := state.Players[0].Score; got != (4+2)*2 {
		t.Errorf("Expected %d points, got %d", (4+2)*2, got)
	}
	if got := state.Players[1].Score; got != 0 {
		t.Errorf("Expected no points for the second seat, got %d", got)
	}
	if state.Players[0].Meeples.Available[NormalMeeple] != NormalMeeples {
		t.Error("Expected the knight to return")
	}
}

func TestUnfinishedPennantCityAtGameEnd(t *testing.T) {
	state := newTestGame(t, []*TileDefinition{
		startWith(cityCapTile("cap", 1)),
		cityCornerTile("pennant-corner", 1, true),
	})

	state = playTurn(t, state, Coordinate{X: 0, Y: -1}, 90, "city0")
	if state.Players[0].Score != 0 {
		t.Fatal("Expected no mid-game score for an open city")
	}

	state = EndGame(state)
	if state.Phase != PhaseEnd {
		t.Fatalf("Expected END, got %s", state.Phase)
	}
	if got := state.Players[0].Score; got != 2+1 {
		t.Errorf("Expected 3 points (two tiles and a pennant), got %d", got)
	}
}

func TestFarmScoresCompletedCities(t *testing.T) {
	state := newTestGame(t, []*TileDefinition{startWith(cityCapTile("cap", 2))})

	state = playTurn(t, state, Coordinate{X: 0, Y: -1}, 180, "field0")
	city := FeatureAt(state, StartingCoordinate, "city0")
	if !city.Complete || !city.Scored {
		t.Fatalf("Expected the two-tile city to be complete and settled, got %+v", city)
	}
	if len(state.LastScoreEvents) != 0 {
		t.Errorf("Expected no event for an unclaimed city, got %+v", state.LastScoreEvents)
	}

	state = DrawTile(state)
	if got := state.Players[0].Score; got != 3 {
		t.Errorf("Expected 3 points for one completed city, got %d", got)
	}
	if len(state.LastScoreEvents) != 1 || state.LastScoreEvents[0].FeatureType != Field {
		t.Errorf("Expected one field event, got %+v", state.LastScoreEvents)
	}
}

func TestPigFarm(t *testing.T) {
	state := newTestGame(t, []*TileDefinition{startWith(cityCapTile("cap", 4))}, TradersBuilders)

	state = playTurn(t, state, Coordinate{X: 1, Y: 0}, 0, "field0")

	// player_1 closes the start city and cannot bring a pig to a field it does not farm
	state = DrawTile(state)
	state = RotateTile(RotateTile(state))
	state = mustAccept(t, "place", state, PlaceTile(state, Coordinate{X: 0, Y: -1}))
	if next := PlaceMeeple(state, "field0", Pig); next != state {
		t.Error("Expected a pig without an own farmer to be rejected")
	}
	state = EndTurn(SkipMeeple(state))

	state = DrawTile(state)
	state = mustAccept(t, "place", state, PlaceTile(state, Coordinate{X: 2, Y: 0}))
	state = mustAccept(t, "pig", state, PlaceMeeple(state, "field0", Pig))
	state = EndTurn(state)

	state = DrawTile(state)
	if state.Phase != PhaseEnd {
		t.Fatalf("Expected END, got %s", state.Phase)
	}
	if got := state.Players[0].Score; got != 4 {
		t.Errorf("Expected 4 points for one city with a pig, got %d", got)
	}
	if state.Players[0].Meeples.Available[Pig] != 1 {
		t.Error("Expected the pig to return")
	}
}

func TestTradeGoodsAndTraderBonus(t *testing.T) {
	wine := cityCapTile("wine", 1)
	wine.Segments[0].Commodity = Wine

	state := newTestGame(t, []*TileDefinition{startWith(cityCapTile("cap", 1)), wine}, TradersBuilders)
	state = playTurn(t, state, Coordinate{X: 0, Y: -1}, 180, "city0")

	if got := state.Players[0].Score; got != 4 {
		t.Errorf("Expected 4 points for a two-tile city, got %d", got)
	}
	if got := state.Players[0].Commodities[Wine]; got != 1 {
		t.Errorf("Expected one wine token, got %d", got)
	}

	state = DrawTile(state)
	if got := state.Players[0].Score; got != 4+TraderBonusPoints {
		t.Errorf("Expected trader bonus on top, got %d", got)
	}
	found := false
	for _, ev := range state.LastScoreEvents {
		if ev.FeatureID == "trader_bonus_WINE" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a wine trader bonus event, got %+v", state.LastScoreEvents)
	}
}

func TestDrawDiscardsUnplaceableTiles(t *testing.T) {
	// A city-on-all-sides tile cannot touch the field-only start
	walled := &TileDefinition{
		ID:                    "walled",
		Count:                 1,
		Segments:              []Segment{{ID: "city0", Type: City}},
		EdgePositionToSegment: edges(all("city0"), all("city0"), all("city0"), all("city0")),
	}
	state := newTestGame(t, []*TileDefinition{walled, startWith(cloisterTile("abbey", 2))})

	state = mustAccept(t, "draw", state, DrawTile(state))
	if len(state.DiscardedTiles) != 1 || state.DiscardedTiles[0].DefinitionID != "walled" {
		t.Errorf("Expected walled to be discarded, got %+v", state.DiscardedTiles)
	}
	if state.CurrentTile == nil || state.CurrentTile.DefinitionID != "abbey" {
		t.Errorf("Expected abbey to be drawn, got %+v", state.CurrentTile)
	}
}

func TestFullGameScoresEachFeatureOnce(t *testing.T) {
	f := loadBaseCatalog(t)
	state, err := InitGame(&GameConfig{
		PlayerNames: []string{"Ada", "Grace", "Linus", "Ken"},
		Definitions: f.Tiles,
		Random:      &scripted{answers: []int{7, 3, 11, 0, 5, 2, 13}},
	})
	if err != nil {
		t.Fatalf("InitGame failed: %v", err)
	}

	scored := make(map[string]bool)
	record := func(s *GameState) {
		for _, ev := range s.LastScoreEvents {
			if scored[ev.FeatureID] {
				t.Errorf("Feature %s scored twice", ev.FeatureID)
			}
			scored[ev.FeatureID] = true
		}
	}

	for turn := 0; turn < 200 && !state.IsOver(); turn++ {
		state = DrawTile(state)
		if state.IsOver() {
			break
		}
		placements := ValidPlacements(state)
		if len(placements) == 0 {
			t.Fatalf("turn %d: drawn tile has no placement", turn)
		}
		p := placements[turn%len(placements)]
		want := p.Rotations[0]
		for state.CurrentTile.Rotation != want {
			state = RotateTile(state)
		}
		state = mustAccept(t, "place", state, PlaceTile(state, p.Coordinate))

		if options := AvailableSegmentsForMeeple(state); len(options) > 0 && turn%2 == 0 {
			state = mustAccept(t, "meeple", state, PlaceMeeple(state, options[0].SegmentID, options[0].Kinds[0]))
		} else {
			state = SkipMeeple(state)
		}
		state = mustAccept(t, "end turn", state, EndTurn(state))
		record(state)

		for _, player := range state.Players {
			if player.Meeples.Available[NormalMeeple]+len(player.Meeples.OnBoard) != NormalMeeples {
				t.Fatalf("turn %d: %s lost track of meeples", turn, player.ID)
			}
		}
	}
	record(state)

	if !state.IsOver() {
		t.Fatal("Expected the match to end")
	}
	if state.Bag.Len() != 0 {
		t.Errorf("Expected an empty bag, got %d", state.Bag.Len())
	}
	if state.Board.Len()+len(state.DiscardedTiles) != 72 {
		t.Errorf("Expected 72 tiles accounted for, got %d placed and %d discarded", state.Board.Len(), len(state.DiscardedTiles))
	}
	for _, p := range state.Players {
		if p.Meeples.Available[NormalMeeple] != NormalMeeples {
			t.Errorf("%s: expected all meeples home after the end, got %d", p.ID, p.Meeples.Available[NormalMeeple])
		}
	}

	standings := Standings(state)
	for i := 1; i < len(standings); i++ {
		if standings[i].Score > standings[i-1].Score {
			t.Errorf("Standings not ordered by score: %+v", standings)
		}
	}
}
