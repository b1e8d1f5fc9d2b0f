// Package engine provides the rules of the tile-laying game.
//
// The engine package implements:
//   - The tile bag with an injectable random source
//   - Placement geometry over 12 edge sub-positions per tile
//   - Feature tracking (cities, roads, fields, cloisters) with a union-find
//   - Scoring rules with per-expansion overrides
//   - The turn state machine DRAW_TILE, PLACE_TILE, PLACE_MEEPLE, SCORE
//
// Core Types:
//
// GameState is an immutable snapshot. The reducers DrawTile, RotateTile,
// PlaceTile, PlaceMeeple, SkipMeeple, EndTurn and EndGame take a state and
// return either the same pointer, meaning the action was rejected, or a new
// state. GameEngine wraps the reducers behind the Engine interface and keeps
// an action history for the session layer.
//
// Usage:
//
//	catalog, err := engine.LoadCatalogFile("catalogs/base.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	state, err := engine.InitGame(&engine.GameConfig{
//		PlayerNames: []string{"Ada", "Grace"},
//		Definitions: catalog.Tiles,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	next := engine.DrawTile(state)
//	if next == state {
//		// rejected
//	}
//
// Board keys are "x,y" and feature node keys are "x,y:segmentId"; both are
// kept verbatim when a state is serialised.
package engine
