package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CoordKey formats a board key "x,y"
func CoordKey(c Coordinate) string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

// NodeKey formats a feature node key "x,y:segmentId"
func NodeKey(c Coordinate, segmentID string) string {
	return CoordKey(c) + ":" + segmentID
}

// ParseCoordKey parses a key produced by CoordKey
func ParseCoordKey(key string) (Coordinate, error) {
	xs, ys, ok := strings.Cut(key, ",")
	if !ok {
		return Coordinate{}, fmt.Errorf("invalid coordinate key %q", key)
	}
	x, err := strconv.Atoi(xs)
	if err != nil {
		return Coordinate{}, fmt.Errorf("invalid coordinate key %q: %w", key, err)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return Coordinate{}, fmt.Errorf("invalid coordinate key %q: %w", key, err)
	}
	return Coordinate{X: x, Y: y}, nil
}

// ParseNodeKey splits a node key into its coordinate and segment id
func ParseNodeKey(key string) (Coordinate, string, error) {
	coordPart, segmentID, ok := strings.Cut(key, ":")
	if !ok || segmentID == "" {
		return Coordinate{}, "", fmt.Errorf("invalid node key %q", key)
	}
	c, err := ParseCoordKey(coordPart)
	if err != nil {
		return Coordinate{}, "", err
	}
	return c, segmentID, nil
}

// NewBoard returns an empty board
func NewBoard() *Board {
	return &Board{Tiles: make(map[string]*PlacedTile)}
}

// Get returns the tile at c, or nil
func (b *Board) Get(c Coordinate) *PlacedTile {
	if b == nil {
		return nil
	}
	return b.Tiles[CoordKey(c)]
}

// Occupied reports whether a tile sits at c
func (b *Board) Occupied(c Coordinate) bool {
	return b.Get(c) != nil
}

// Len returns the number of placed tiles
func (b *Board) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Tiles)
}

// Coordinates returns the occupied cells sorted by row then column
func (b *Board) Coordinates() []Coordinate {
	coords := make([]Coordinate, 0, b.Len())
	for _, t := range b.Tiles {
		coords = append(coords, t.Coordinate)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Y != coords[j].Y {
			return coords[i].Y < coords[j].Y
		}
		return coords[i].X < coords[j].X
	})
	return coords
}

// withTile returns a shallow copy of the board with t added and the bounds
// widened. Placed tiles already on the board are shared.
func (b *Board) withTile(t *PlacedTile) *Board {
	next := &Board{
		Tiles: make(map[string]*PlacedTile, len(b.Tiles)+1),
		MinX:  b.MinX,
		MaxX:  b.MaxX,
		MinY:  b.MinY,
		MaxY:  b.MaxY,
	}
	for k, v := range b.Tiles {
		next.Tiles[k] = v
	}
	if len(b.Tiles) == 0 {
		next.MinX, next.MaxX = t.Coordinate.X, t.Coordinate.X
		next.MinY, next.MaxY = t.Coordinate.Y, t.Coordinate.Y
	} else {
		next.MinX = min(next.MinX, t.Coordinate.X)
		next.MaxX = max(next.MaxX, t.Coordinate.X)
		next.MinY = min(next.MinY, t.Coordinate.Y)
		next.MaxY = max(next.MaxY, t.Coordinate.Y)
	}
	next.Tiles[CoordKey(t.Coordinate)] = t
	return next
}

// withMeeples returns a copy of the board where the listed cells carry a
// fresh copy of their tile, ready for meeple edits.
func (b *Board) withMeeples(edit map[string]func(map[string]MeeplePlacement)) *Board {
	next := &Board{
		Tiles: make(map[string]*PlacedTile, len(b.Tiles)),
		MinX:  b.MinX,
		MaxX:  b.MaxX,
		MinY:  b.MinY,
		MaxY:  b.MaxY,
	}
	for k, v := range b.Tiles {
		next.Tiles[k] = v
	}
	for key, fn := range edit {
		tile, ok := next.Tiles[key]
		if !ok {
			continue
		}
		copied := *tile
		copied.Meeples = make(map[string]MeeplePlacement, len(tile.Meeples)+1)
		for seg, m := range tile.Meeples {
			copied.Meeples[seg] = m
		}
		fn(copied.Meeples)
		next.Tiles[key] = &copied
	}
	return next
}

// clonePlayers deep-copies the players slice
func clonePlayers(players []Player) []Player {
	out := make([]Player, len(players))
	for i, p := range players {
		out[i] = p
		out[i].Meeples.Available = make(map[MeepleKind]int, len(p.Meeples.Available))
		for k, v := range p.Meeples.Available {
			out[i].Meeples.Available[k] = v
		}
		out[i].Meeples.OnBoard = append([]string(nil), p.Meeples.OnBoard...)
		if p.Commodities != nil {
			out[i].Commodities = make(map[Commodity]int, len(p.Commodities))
			for k, v := range p.Commodities {
				out[i].Commodities[k] = v
			}
		}
	}
	return out
}

// cloneMeeples copies the board meeple map
func cloneMeeples(m map[string]MeeplePlacement) map[string]MeeplePlacement {
	out := make(map[string]MeeplePlacement, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// playerIndex returns the seat index of id, or -1
func playerIndex(players []Player, id string) int {
	for i := range players {
		if players[i].ID == id {
			return i
		}
	}
	return -1
}

// removeString drops the first occurrence of s
func removeString(list []string, s string) []string {
	for i, v := range list {
		if v == s {
			out := append([]string(nil), list[:i]...)
			return append(out, list[i+1:]...)
		}
	}
	return list
}

// containsString reports whether s is in list
func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
