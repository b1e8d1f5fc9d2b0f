package engine

import (
	"fmt"
	"sort"
)

// InitGame builds the opening state: the bag is shuffled, the starting tile
// sits at the origin and the first player is about to draw.
func InitGame(config *GameConfig) (*GameState, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	bag, start, err := NewTileBag(config.Definitions, config.ExtraInstances, config.Random)
	if err != nil {
		return nil, err
	}

	catalog := NewCatalog(config.Definitions)
	active := activeExpansions(config.Expansions)

	players := make([]Player, len(config.PlayerNames))
	for i, name := range config.PlayerNames {
		available := map[MeepleKind]int{NormalMeeple: NormalMeeples}
		for _, exp := range active {
			if exp.BigMeeples > 0 {
				available[BigMeeple] += exp.BigMeeples
			}
			if exp.Pigs > 0 {
				available[Pig] += exp.Pigs
			}
		}
		players[i] = Player{
			ID:          fmt.Sprintf("player_%d", i),
			Name:        name,
			Color:       PlayerColors[i%len(PlayerColors)],
			Meeples:     PlayerMeeples{Available: available, OnBoard: []string{}},
			Commodities: make(map[Commodity]int),
		}
	}

	placed := &PlacedTile{
		Coordinate:   StartingCoordinate,
		DefinitionID: start.DefinitionID,
		Rotation:     start.Rotation,
		Meeples:      make(map[string]MeeplePlacement),
	}
	board := NewBoard().withTile(placed)
	features, _ := NewFeatureTracker().AddTile(board, catalog, placed)

	return &GameState{
		Phase:               PhasePlaying,
		TurnPhase:           TurnDrawTile,
		Players:             players,
		CurrentPlayerIndex:  0,
		Board:               board,
		Bag:                 bag,
		CompletedFeatureIDs: []string{},
		Features:            features,
		BoardMeeples:        make(map[string]MeeplePlacement),
		LastScoreEvents:     []ScoreEvent{},
		Expansions:          append([]string(nil), config.Expansions...),
		Catalog:             catalog,
	}, nil
}

// clone makes a shallow copy for a reducer to replace fields on
func (s *GameState) clone() *GameState {
	next := *s
	return &next
}

// CurrentPlayer returns the acting player, or nil for an empty table
func (s *GameState) CurrentPlayer() *Player {
	if s.CurrentPlayerIndex < 0 || s.CurrentPlayerIndex >= len(s.Players) {
		return nil
	}
	return &s.Players[s.CurrentPlayerIndex]
}

// IsOver reports whether the match has ended
func (s *GameState) IsOver() bool {
	return s.Phase == PhaseEnd
}

// DrawTile moves the bag head into CurrentTile. Tiles with no legal spot on
// the board are discarded; an exhausted bag ends the game.
func DrawTile(s *GameState) *GameState {
	if s.Phase != PhasePlaying || s.TurnPhase != TurnDrawTile {
		return s
	}

	next := s.clone()
	next.LastScoreEvents = []ScoreEvent{}

	for {
		tile, rest, ok := next.Bag.Draw()
		if !ok {
			return EndGame(next)
		}
		next.Bag = rest

		if !HasAnyValidPlacement(next.Board, next.Catalog, tile) {
			next.DiscardedTiles = append(append([]TileInstance(nil), next.DiscardedTiles...), tile)
			continue
		}

		next.CurrentTile = &tile
		next.TurnPhase = TurnPlaceTile
		return next
	}
}

// RotateTile turns the drawn tile 90 degrees clockwise
func RotateTile(s *GameState) *GameState {
	if s.Phase != PhasePlaying || s.TurnPhase != TurnPlaceTile || s.CurrentTile == nil {
		return s
	}
	next := s.clone()
	next.CurrentTile = &TileInstance{
		DefinitionID: s.CurrentTile.DefinitionID,
		Rotation:     NextRotation(s.CurrentTile.Rotation),
	}
	return next
}

// PlaceTile puts the drawn tile at c if it fits there at its current rotation
func PlaceTile(s *GameState, c Coordinate) *GameState {
	if s.Phase != PhasePlaying || s.TurnPhase != TurnPlaceTile || s.CurrentTile == nil {
		return s
	}
	if !IsValidPlacement(s.Board, s.Catalog, *s.CurrentTile, c) {
		return s
	}

	placed := &PlacedTile{
		Coordinate:   c,
		DefinitionID: s.CurrentTile.DefinitionID,
		Rotation:     s.CurrentTile.Rotation,
		Meeples:      make(map[string]MeeplePlacement),
	}

	next := s.clone()
	next.Board = s.Board.withTile(placed)
	next.Features, next.CompletedFeatureIDs = s.Features.AddTile(next.Board, s.Catalog, placed)
	if next.CompletedFeatureIDs == nil {
		next.CompletedFeatureIDs = []string{}
	}
	coord := c
	next.LastPlacedCoord = &coord
	next.TurnPhase = TurnPlaceMeeple
	return next
}

// canPlaceMeeple checks a meeple of kind on segmentID of the tile just placed
func canPlaceMeeple(s *GameState, segmentID string, kind MeepleKind) bool {
	if s.Phase != PhasePlaying || s.TurnPhase != TurnPlaceMeeple || s.LastPlacedCoord == nil {
		return false
	}
	player := s.CurrentPlayer()
	if player == nil || player.Meeples.Available[kind] < 1 {
		return false
	}

	tile := s.Board.Get(*s.LastPlacedCoord)
	if tile == nil {
		return false
	}
	def, ok := s.Catalog[tile.DefinitionID]
	if !ok || def.Segment(segmentID) == nil {
		return false
	}

	key := NodeKey(*s.LastPlacedCoord, segmentID)
	if _, taken := s.BoardMeeples[key]; taken {
		return false
	}
	feature := s.Features.Feature(key)
	if feature == nil {
		return false
	}

	switch kind {
	case NormalMeeple, BigMeeple:
		return len(feature.Meeples) == 0
	case Pig:
		if feature.Type != Field {
			return false
		}
		for _, m := range feature.Meeples {
			if m.PlayerID == player.ID && MeepleWeight(m.Kind) > 0 {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// PlaceMeeple claims the feature of segmentID on the tile just placed. An
// empty kind means a normal meeple.
func PlaceMeeple(s *GameState, segmentID string, kind MeepleKind) *GameState {
	if kind == "" {
		kind = NormalMeeple
	}
	if !canPlaceMeeple(s, segmentID, kind) {
		return s
	}

	c := *s.LastPlacedCoord
	key := NodeKey(c, segmentID)
	player := s.CurrentPlayer()
	placement := MeeplePlacement{PlayerID: player.ID, Kind: kind, SegmentID: segmentID}

	next := s.clone()
	next.Players = clonePlayers(s.Players)
	p := &next.Players[s.CurrentPlayerIndex]
	p.Meeples.Available[kind]--
	p.Meeples.OnBoard = append(p.Meeples.OnBoard, key)

	next.BoardMeeples = cloneMeeples(s.BoardMeeples)
	next.BoardMeeples[key] = placement
	next.Board = s.Board.withMeeples(map[string]func(map[string]MeeplePlacement){
		CoordKey(c): func(m map[string]MeeplePlacement) { m[segmentID] = placement },
	})
	next.Features = s.Features.attachMeeple(FeatureMeeple{NodeKey: key, PlayerID: player.ID, Kind: kind})
	next.TurnPhase = TurnScore
	return next
}

// SkipMeeple ends the meeple step without placing one
func SkipMeeple(s *GameState) *GameState {
	if s.Phase != PhasePlaying || s.TurnPhase != TurnPlaceMeeple {
		return s
	}
	next := s.clone()
	next.TurnPhase = TurnScore
	return next
}

// settleFeatures marks the features holding keys as scored and returns their
// meeples to the owners
func settleFeatures(next *GameState, keys []string) {
	var released []FeatureMeeple
	for _, key := range keys {
		if f := next.Features.Feature(key); f != nil && !f.Scored {
			released = append(released, f.Meeples...)
		}
	}
	next.Features = next.Features.settle(keys)
	if len(released) == 0 {
		return
	}

	next.Players = clonePlayers(next.Players)
	next.BoardMeeples = cloneMeeples(next.BoardMeeples)
	byTile := make(map[string][]string)
	for _, m := range released {
		if i := playerIndex(next.Players, m.PlayerID); i >= 0 {
			next.Players[i].Meeples.Available[m.Kind]++
			next.Players[i].Meeples.OnBoard = removeString(next.Players[i].Meeples.OnBoard, m.NodeKey)
		}
		delete(next.BoardMeeples, m.NodeKey)
		if c, seg, err := ParseNodeKey(m.NodeKey); err == nil {
			byTile[CoordKey(c)] = append(byTile[CoordKey(c)], seg)
		}
	}

	edits := make(map[string]func(map[string]MeeplePlacement), len(byTile))
	for coord, segments := range byTile {
		segments := segments
		edits[coord] = func(m map[string]MeeplePlacement) {
			for _, seg := range segments {
				delete(m, seg)
			}
		}
	}
	next.Board = next.Board.withMeeples(edits)
}

// tradeGoods reports whether an active expansion hands out commodities
func tradeGoods(expansions []string) bool {
	for _, exp := range activeExpansions(expansions) {
		if exp.TradeGoods {
			return true
		}
	}
	return false
}

// collectCommodities credits the goods of completed cities to their majority holders
func collectCommodities(players []Player, t *FeatureTracker, ids []string) []Player {
	for _, id := range ids {
		f := t.Feature(id)
		if f == nil || f.Scored {
			continue
		}
		for playerID, goods := range DistributeCommodities(f) {
			i := playerIndex(players, playerID)
			if i < 0 {
				continue
			}
			if players[i].Commodities == nil {
				players[i].Commodities = make(map[Commodity]int)
			}
			for c, n := range goods {
				players[i].Commodities[c] += n
			}
		}
	}
	return players
}

// EndTurn scores what the last tile completed, frees the meeples on those
// features and passes play to the next seat.
func EndTurn(s *GameState) *GameState {
	if s.Phase != PhasePlaying || s.TurnPhase != TurnScore {
		return s
	}

	rules := NewRuleSet(s.Expansions)
	events := ScoreCompletedFeatures(s.CompletedFeatureIDs, s.Features, rules)

	next := s.clone()
	next.Players = ApplyScoreEvents(s.Players, events)
	if tradeGoods(s.Expansions) {
		next.Players = collectCommodities(next.Players, s.Features, s.CompletedFeatureIDs)
	}
	settleFeatures(next, s.CompletedFeatureIDs)

	if events == nil {
		events = []ScoreEvent{}
	}
	next.LastScoreEvents = events
	next.CompletedFeatureIDs = []string{}
	next.CurrentTile = nil
	next.LastPlacedCoord = nil
	next.CurrentPlayerIndex = (s.CurrentPlayerIndex + 1) % len(s.Players)
	next.TurnPhase = TurnDrawTile
	return next
}

// EndGame scores every unsettled feature that still holds meeples, applies
// the trader bonus and closes the match. An ended match is returned as is.
func EndGame(s *GameState) *GameState {
	if s.Phase == PhaseEnd {
		return s
	}

	rules := NewRuleSet(s.Expansions)
	events := ScoreRemainingFeatures(s.Features, rules)

	next := s.clone()
	next.Players = ApplyScoreEvents(s.Players, events)

	var claimed []string
	for _, f := range s.Features.Features() {
		if !f.Scored && len(f.Meeples) > 0 {
			claimed = append(claimed, f.ID)
		}
	}
	if tradeGoods(s.Expansions) {
		pending := make([]string, 0, len(s.CompletedFeatureIDs))
		for _, id := range s.CompletedFeatureIDs {
			if f := s.Features.Feature(id); f != nil && f.Complete {
				pending = append(pending, id)
			}
		}
		next.Players = collectCommodities(next.Players, s.Features, pending)
	}
	settleFeatures(next, claimed)

	if tradeGoods(s.Expansions) {
		bonus := TraderBonus(next.Players)
		next.Players = ApplyScoreEvents(next.Players, bonus)
		events = append(events, bonus...)
	}

	if events == nil {
		events = []ScoreEvent{}
	}
	next.LastScoreEvents = events
	next.CompletedFeatureIDs = []string{}
	next.CurrentTile = nil
	next.Phase = PhaseEnd
	return next
}

// ValidPlacements lists where the drawn tile can go, with the legal rotations per cell
func ValidPlacements(s *GameState) []Placement {
	if s.TurnPhase != TurnPlaceTile || s.CurrentTile == nil {
		return nil
	}
	return GetAllPotentialPlacements(s.Board, s.Catalog, *s.CurrentTile)
}

// ValidTileRotations lists the rotations under which the drawn tile fits at c
func ValidTileRotations(s *GameState, c Coordinate) []Rotation {
	if s.TurnPhase != TurnPlaceTile || s.CurrentTile == nil {
		return nil
	}
	return GetValidRotations(s.Board, s.Catalog, *s.CurrentTile, c)
}

// MeepleOption is a segment of the just-placed tile open for a meeple
type MeepleOption struct {
	SegmentID string       `json:"segment_id"`
	Type      SegmentType  `json:"type"`
	Kinds     []MeepleKind `json:"kinds"`
}

// AvailableSegmentsForMeeple lists the segments of the just-placed tile the
// acting player may claim, with the meeple kinds allowed on each
func AvailableSegmentsForMeeple(s *GameState) []MeepleOption {
	if s.TurnPhase != TurnPlaceMeeple || s.LastPlacedCoord == nil {
		return nil
	}
	tile := s.Board.Get(*s.LastPlacedCoord)
	if tile == nil {
		return nil
	}
	def, ok := s.Catalog[tile.DefinitionID]
	if !ok {
		return nil
	}

	var options []MeepleOption
	for _, seg := range def.Segments {
		var kinds []MeepleKind
		for _, kind := range []MeepleKind{NormalMeeple, BigMeeple, Pig} {
			if canPlaceMeeple(s, seg.ID, kind) {
				kinds = append(kinds, kind)
			}
		}
		if len(kinds) > 0 {
			options = append(options, MeepleOption{SegmentID: seg.ID, Type: seg.Type, Kinds: kinds})
		}
	}
	return options
}

// FeatureAt returns the feature holding segmentID of the tile at c, or nil
func FeatureAt(s *GameState, c Coordinate, segmentID string) *Feature {
	return s.Features.Feature(NodeKey(c, segmentID))
}

// Standings returns a copy of the players ordered by score, seat order on ties
func Standings(s *GameState) []Player {
	players := clonePlayers(s.Players)
	sort.SliceStable(players, func(i, j int) bool { return players[i].Score > players[j].Score })
	return players
}
