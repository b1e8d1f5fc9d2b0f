package engine

import "strings"

// DirectionDelta maps a side to the neighbouring cell offset. Y grows southwards.
var DirectionDelta = map[Direction]Coordinate{
	North: {X: 0, Y: -1},
	East:  {X: 1, Y: 0},
	South: {X: 0, Y: 1},
	West:  {X: -1, Y: 0},
}

// directionIndex returns the clockwise index of d, or -1
func directionIndex(d Direction) int {
	for i, dir := range Directions {
		if dir == d {
			return i
		}
	}
	return -1
}

// normalizeRotation folds any multiple of 90 into 0..270
func normalizeRotation(r Rotation) Rotation {
	n := int(r) % 360
	if n < 0 {
		n += 360
	}
	return Rotation(n)
}

// NextRotation returns r turned a further 90 degrees clockwise
func NextRotation(r Rotation) Rotation {
	return normalizeRotation(r + 90)
}

// RotateDirection maps a logical side to the physical side it faces after a
// clockwise rotation.
func RotateDirection(d Direction, r Rotation) Direction {
	idx := directionIndex(d)
	if idx < 0 {
		return d
	}
	steps := int(normalizeRotation(r)) / 90
	return Directions[(idx+steps)%4]
}

// UnrotateDirection is the exact inverse of RotateDirection
func UnrotateDirection(d Direction, r Rotation) Direction {
	return RotateDirection(d, normalizeRotation(360-normalizeRotation(r)))
}

// OppositeDirection returns the side facing d
func OppositeDirection(d Direction) Direction {
	return RotateDirection(d, 180)
}

// splitEdgePosition breaks NORTH_LEFT into (NORTH, "LEFT")
func splitEdgePosition(p EdgePosition) (Direction, string) {
	dir, side, ok := strings.Cut(string(p), "_")
	if !ok {
		return Direction(p), ""
	}
	return Direction(dir), side
}

// Direction returns the compass side a sub-position belongs to
func (p EdgePosition) Direction() Direction {
	dir, _ := splitEdgePosition(p)
	return dir
}

// EdgePositionsFor returns the LEFT, CENTER and RIGHT sub-positions of a side
func EdgePositionsFor(d Direction) []EdgePosition {
	return []EdgePosition{
		EdgePosition(string(d) + "_LEFT"),
		EdgePosition(string(d) + "_CENTER"),
		EdgePosition(string(d) + "_RIGHT"),
	}
}

// RotateEdgePosition rotates the side of a sub-position and keeps its
// LEFT/CENTER/RIGHT slot: NORTH_LEFT at 90 becomes EAST_LEFT.
func RotateEdgePosition(p EdgePosition, r Rotation) EdgePosition {
	dir, side := splitEdgePosition(p)
	return EdgePosition(string(RotateDirection(dir, r)) + "_" + side)
}

// UnrotateEdgePosition is the exact inverse of RotateEdgePosition
func UnrotateEdgePosition(p EdgePosition, r Rotation) EdgePosition {
	dir, side := splitEdgePosition(p)
	return EdgePosition(string(UnrotateDirection(dir, r)) + "_" + side)
}

// MirrorPosition returns the sub-position on the neighbouring tile that
// touches p across the shared edge. LEFT and RIGHT swap because each tile
// names its slots clockwise.
func MirrorPosition(p EdgePosition) EdgePosition {
	dir, side := splitEdgePosition(p)
	switch side {
	case "LEFT":
		side = "RIGHT"
	case "RIGHT":
		side = "LEFT"
	}
	return EdgePosition(string(OppositeDirection(dir)) + "_" + side)
}

// GetSegmentAtEdgePosition returns the local segment id physically at p
// once the definition is rotated by r.
func GetSegmentAtEdgePosition(def *TileDefinition, r Rotation, p EdgePosition) string {
	return def.EdgePositionToSegment[UnrotateEdgePosition(p, r)]
}

// GetEdge returns the terrain physically facing d after rotation, read from
// the CENTER sub-position of that side.
func GetEdge(def *TileDefinition, r Rotation, d Direction) SegmentType {
	logical := UnrotateDirection(d, r)
	segID := def.EdgePositionToSegment[EdgePosition(string(logical)+"_CENTER")]
	seg := def.Segment(segID)
	if seg == nil {
		return ""
	}
	return seg.Type
}

// PhysicalPositions lists the sub-positions a segment occupies after rotation
func PhysicalPositions(def *TileDefinition, r Rotation, segmentID string) []EdgePosition {
	var positions []EdgePosition
	for _, logical := range AllEdgePositions {
		if def.EdgePositionToSegment[logical] == segmentID {
			positions = append(positions, RotateEdgePosition(logical, r))
		}
	}
	return positions
}

// Neighbor returns the cell next to c on side d
func Neighbor(c Coordinate, d Direction) Coordinate {
	delta := DirectionDelta[d]
	return Coordinate{X: c.X + delta.X, Y: c.Y + delta.Y}
}
