package engine

import "testing"

func placementFixture() (*Board, Catalog) {
	capDef := startWith(cityCapTile("cap", 2))
	end := roadEndTile("end", 2, false)
	catalog := NewCatalog([]*TileDefinition{capDef, end})
	board := NewBoard().withTile(&PlacedTile{Coordinate: StartingCoordinate, DefinitionID: "cap"})
	return board, catalog
}

func TestIsValidPlacementEmptyBoard(t *testing.T) {
	_, catalog := placementFixture()
	board := NewBoard()
	tile := TileInstance{DefinitionID: "cap"}

	if !IsValidPlacement(board, catalog, tile, StartingCoordinate) {
		t.Error("Expected starting coordinate to be valid on an empty board")
	}
	if IsValidPlacement(board, catalog, tile, Coordinate{X: 1, Y: 0}) {
		t.Error("Expected any other cell to be invalid on an empty board")
	}
}

func TestIsValidPlacementRules(t *testing.T) {
	board, catalog := placementFixture()

	tests := []struct {
		name  string
		tile  TileInstance
		coord Coordinate
		want  bool
	}{
		{"occupied", TileInstance{DefinitionID: "cap"}, Coordinate{0, 0}, false},
		{"isolated", TileInstance{DefinitionID: "cap"}, Coordinate{5, 5}, false},
		{"diagonal only", TileInstance{DefinitionID: "cap"}, Coordinate{1, 1}, false},
		{"city meets city", TileInstance{DefinitionID: "cap", Rotation: 180}, Coordinate{0, -1}, true},
		{"field meets city", TileInstance{DefinitionID: "cap"}, Coordinate{0, -1}, false},
		{"field meets field", TileInstance{DefinitionID: "cap"}, Coordinate{1, 0}, true},
		{"road meets field", TileInstance{DefinitionID: "end", Rotation: 90}, Coordinate{1, 0}, false},
		{"field side of road tile", TileInstance{DefinitionID: "end"}, Coordinate{1, 0}, true},
		{"unknown definition", TileInstance{DefinitionID: "zz"}, Coordinate{1, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidPlacement(board, catalog, tt.tile, tt.coord); got != tt.want {
				t.Errorf("IsValidPlacement(%+v, %+v) = %v, want %v", tt.tile, tt.coord, got, tt.want)
			}
		})
	}
}

func TestGetValidPositionsAreOnFrontier(t *testing.T) {
	board, catalog := placementFixture()
	positions := GetValidPositions(board, catalog, TileInstance{DefinitionID: "cap"})

	// South is ruled out: the unrotated cap would face its city at a field
	if len(positions) != 2 {
		t.Errorf("Expected 2 positions (east, west), got %v", positions)
	}
	for _, c := range positions {
		adjacent := false
		for _, d := range Directions {
			if board.Occupied(Neighbor(c, d)) {
				adjacent = true
			}
		}
		if !adjacent {
			t.Errorf("Position %+v is not next to an occupied cell", c)
		}
	}
}

func TestGetValidRotations(t *testing.T) {
	board, catalog := placementFixture()

	rotations := GetValidRotations(board, catalog, TileInstance{DefinitionID: "cap"}, Coordinate{X: 0, Y: -1})
	if len(rotations) != 1 || rotations[0] != 180 {
		t.Errorf("Expected only 180 north of the city, got %v", rotations)
	}

	// A field neighbour accepts any rotation that does not show the city west
	rotations = GetValidRotations(board, catalog, TileInstance{DefinitionID: "cap"}, Coordinate{X: 1, Y: 0})
	if len(rotations) != 3 {
		t.Errorf("Expected 3 rotations east of the start, got %v", rotations)
	}
}

func TestGetAllPotentialPlacements(t *testing.T) {
	board, catalog := placementFixture()
	placements := GetAllPotentialPlacements(board, catalog, TileInstance{DefinitionID: "cap"})

	if len(placements) != 4 {
		t.Fatalf("Expected all 4 frontier cells to accept a cap, got %d", len(placements))
	}
	if !HasAnyValidPlacement(board, catalog, TileInstance{DefinitionID: "cap"}) {
		t.Error("Expected HasAnyValidPlacement to be true")
	}
}
