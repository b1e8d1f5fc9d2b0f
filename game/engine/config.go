package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigurationError reports a setup problem the caller cannot retry past:
// bad player count, a catalog without a starting tile, malformed definitions.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "config validation: " + e.Reason
}

func configErrorf(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// CatalogFile is the on-disk form of a tile catalog
type CatalogFile struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Expansion   string            `json:"expansion,omitempty"`
	Tiles       []*TileDefinition `json:"tiles"`
}

// TotalTiles returns the number of tile copies the catalog describes
func (f *CatalogFile) TotalTiles() int {
	total := 0
	for _, def := range f.Tiles {
		total += def.Count
	}
	return total
}

// HasStartingTile reports whether any definition is flagged as the start
func (f *CatalogFile) HasStartingTile() bool {
	for _, def := range f.Tiles {
		if def.StartingTile {
			return true
		}
	}
	return false
}

// ValidateTileDefinition checks one definition for internal consistency
func ValidateTileDefinition(def *TileDefinition) error {
	if def == nil {
		return configErrorf("tile definition is nil")
	}
	if def.ID == "" {
		return configErrorf("tile definition id is required")
	}
	if def.Count < 0 {
		return configErrorf("tile %s: count must not be negative, got %d", def.ID, def.Count)
	}
	if len(def.Segments) == 0 {
		return configErrorf("tile %s: at least one segment is required", def.ID)
	}

	segments := make(map[string]SegmentType, len(def.Segments))
	for _, seg := range def.Segments {
		if seg.ID == "" {
			return configErrorf("tile %s: segment id is required", def.ID)
		}
		if _, dup := segments[seg.ID]; dup {
			return configErrorf("tile %s: duplicate segment id %q", def.ID, seg.ID)
		}
		switch seg.Type {
		case City, Road, Field, Cloister:
		default:
			return configErrorf("tile %s: segment %s has invalid type %q", def.ID, seg.ID, seg.Type)
		}
		if seg.Commodity != "" && seg.Type != City {
			return configErrorf("tile %s: commodity on non-city segment %s", def.ID, seg.ID)
		}
		segments[seg.ID] = seg.Type
	}

	if len(def.EdgePositionToSegment) != EdgePositions {
		return configErrorf("tile %s: edge_position_to_segment must map %d positions, got %d",
			def.ID, EdgePositions, len(def.EdgePositionToSegment))
	}
	for _, pos := range AllEdgePositions {
		segID, ok := def.EdgePositionToSegment[pos]
		if !ok {
			return configErrorf("tile %s: edge position %s is not mapped", def.ID, pos)
		}
		segType, ok := segments[segID]
		if !ok {
			return configErrorf("tile %s: edge position %s maps to unknown segment %q", def.ID, pos, segID)
		}
		if segType == Cloister {
			return configErrorf("tile %s: edge position %s maps to cloister %q", def.ID, pos, segID)
		}
	}

	// A side's LEFT/RIGHT slots may differ from CENTER only when CENTER is a road
	for _, dir := range Directions {
		positions := EdgePositionsFor(dir)
		center := segments[def.EdgePositionToSegment[positions[1]]]
		if center == Road {
			continue
		}
		for _, side := range []EdgePosition{positions[0], positions[2]} {
			if segments[def.EdgePositionToSegment[side]] != center {
				return configErrorf("tile %s: %s edge mixes %s with %s", def.ID, dir, center, segments[def.EdgePositionToSegment[side]])
			}
		}
	}

	for _, pair := range def.Adjacencies {
		for _, id := range pair {
			if _, ok := segments[id]; !ok {
				return configErrorf("tile %s: adjacency references unknown segment %q", def.ID, id)
			}
		}
		if pair[0] == pair[1] {
			return configErrorf("tile %s: adjacency pairs %q with itself", def.ID, pair[0])
		}
	}

	return nil
}

// ValidateCatalog checks every definition and the catalog-wide rules
func ValidateCatalog(defs []*TileDefinition) error {
	if len(defs) == 0 {
		return configErrorf("catalog has no tile definitions")
	}

	seen := make(map[string]bool, len(defs))
	hasStart := false
	for _, def := range defs {
		if err := ValidateTileDefinition(def); err != nil {
			return err
		}
		if seen[def.ID] {
			return configErrorf("duplicate tile definition id %q", def.ID)
		}
		seen[def.ID] = true
		if def.StartingTile {
			if def.Count < 1 {
				return configErrorf("starting tile %s must have a count of at least 1", def.ID)
			}
			hasStart = true
		}
	}

	if !hasStart {
		return configErrorf("tile catalog has no starting tile")
	}
	return nil
}

// ValidateCatalogFile validates the metadata and tiles of a catalog file.
// Expansion-only catalogs may omit the starting tile.
func ValidateCatalogFile(f *CatalogFile) error {
	if f.Name == "" {
		return configErrorf("name is required")
	}
	if f.Description == "" {
		return configErrorf("description is required")
	}
	if f.Expansion != "" {
		if _, ok := GetExpansion(f.Expansion); !ok {
			return configErrorf("unknown expansion %q", f.Expansion)
		}
		for _, def := range f.Tiles {
			if err := ValidateTileDefinition(def); err != nil {
				return err
			}
		}
		return nil
	}
	return ValidateCatalog(f.Tiles)
}

// ValidateGameConfig checks the setup for a new match
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return configErrorf("game config is required")
	}
	if n := len(config.PlayerNames); n < MinPlayers || n > MaxPlayers {
		return configErrorf("between %d and %d players are required, got %d", MinPlayers, MaxPlayers, n)
	}
	for i, name := range config.PlayerNames {
		if strings.TrimSpace(name) == "" {
			return configErrorf("player %d has an empty name", i+1)
		}
	}
	for _, id := range config.Expansions {
		if _, ok := GetExpansion(id); !ok {
			return configErrorf("unknown expansion %q", id)
		}
	}
	return ValidateCatalog(config.Definitions)
}

// LoadCatalogFile reads and validates a catalog JSON file
func LoadCatalogFile(filename string) (*CatalogFile, error) {
	// Support CATALOG_DIR for relative "catalogs/..." paths
	path := filename
	if dir := os.Getenv("CATALOG_DIR"); dir != "" && strings.HasPrefix(filename, "catalogs/") {
		path = filepath.Join(dir, strings.TrimPrefix(filename, "catalogs/"))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f CatalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file '%s': %v", filename, err)
	}

	if err := ValidateCatalogFile(&f); err != nil {
		return nil, err
	}

	return &f, nil
}
