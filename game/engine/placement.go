package engine

// Placement pairs a cell with the rotations legal there
type Placement struct {
	Coordinate Coordinate `json:"coordinate"`
	Rotations  []Rotation `json:"rotations"`
}

// StartingCoordinate is the only legal cell on an empty board
var StartingCoordinate = Coordinate{X: StartingCoordX, Y: StartingCoordY}

// IsValidPlacement checks whether tile can occupy c at its current rotation
func IsValidPlacement(board *Board, catalog Catalog, tile TileInstance, c Coordinate) bool {
	def, ok := catalog[tile.DefinitionID]
	if !ok {
		return false
	}

	if board.Len() == 0 {
		return c == StartingCoordinate
	}

	if board.Occupied(c) {
		return false
	}

	hasNeighbor := false
	for _, dir := range Directions {
		neighbor := board.Get(Neighbor(c, dir))
		if neighbor == nil {
			continue
		}
		hasNeighbor = true

		neighborDef, ok := catalog[neighbor.DefinitionID]
		if !ok {
			return false
		}

		mine := GetEdge(def, tile.Rotation, dir)
		theirs := GetEdge(neighborDef, neighbor.Rotation, OppositeDirection(dir))
		if mine == "" || mine != theirs {
			return false
		}
	}

	return hasNeighbor
}

// frontier returns the empty cells orthogonally next to an occupied cell
func frontier(board *Board) []Coordinate {
	seen := make(map[string]bool)
	var cells []Coordinate

	for _, c := range board.Coordinates() {
		for _, dir := range Directions {
			candidate := Neighbor(c, dir)
			key := CoordKey(candidate)
			if seen[key] || board.Occupied(candidate) {
				continue
			}
			seen[key] = true
			cells = append(cells, candidate)
		}
	}

	return cells
}

// GetValidPositions returns the frontier cells where tile fits at its current rotation
func GetValidPositions(board *Board, catalog Catalog, tile TileInstance) []Coordinate {
	if board.Len() == 0 {
		if IsValidPlacement(board, catalog, tile, StartingCoordinate) {
			return []Coordinate{StartingCoordinate}
		}
		return nil
	}

	var valid []Coordinate
	for _, c := range frontier(board) {
		if IsValidPlacement(board, catalog, tile, c) {
			valid = append(valid, c)
		}
	}
	return valid
}

// GetValidRotations returns the rotations under which tile fits at c
func GetValidRotations(board *Board, catalog Catalog, tile TileInstance, c Coordinate) []Rotation {
	var valid []Rotation
	for _, r := range Rotations {
		candidate := TileInstance{DefinitionID: tile.DefinitionID, Rotation: r}
		if IsValidPlacement(board, catalog, candidate, c) {
			valid = append(valid, r)
		}
	}
	return valid
}

// HasAnyValidPlacement reports whether tile fits anywhere under any rotation
func HasAnyValidPlacement(board *Board, catalog Catalog, tile TileInstance) bool {
	if board.Len() == 0 {
		return true
	}
	for _, c := range frontier(board) {
		if len(GetValidRotations(board, catalog, tile, c)) > 0 {
			return true
		}
	}
	return false
}

// GetAllPotentialPlacements lists every frontier cell with at least one
// legal rotation
func GetAllPotentialPlacements(board *Board, catalog Catalog, tile TileInstance) []Placement {
	var placements []Placement
	for _, c := range frontier(board) {
		if rotations := GetValidRotations(board, catalog, tile, c); len(rotations) > 0 {
			placements = append(placements, Placement{Coordinate: c, Rotations: rotations})
		}
	}
	return placements
}
