package engine

import "sort"

// FeatureNode is one segment of one placed tile
type FeatureNode struct {
	Coordinate Coordinate `json:"coordinate"`
	SegmentID  string     `json:"segment_id"`
}

// FeatureMeeple is a meeple sitting somewhere on a feature
type FeatureMeeple struct {
	NodeKey  string     `json:"node_key"`
	PlayerID string     `json:"player_id"`
	Kind     MeepleKind `json:"kind"`
}

// Feature is the aggregate data of one union-find class
type Feature struct {
	ID             string            `json:"id"` // node key of the root
	Type           SegmentType       `json:"type"`
	Nodes          []FeatureNode     `json:"nodes"`
	Meeples        []FeatureMeeple   `json:"meeples"`
	TileCount      int               `json:"tile_count"`
	PennantCount   int               `json:"pennant_count"`
	OpenEdges      int               `json:"open_edges"`
	HasInn         bool              `json:"has_inn,omitempty"`
	HasCathedral   bool              `json:"has_cathedral,omitempty"`
	Commodities    map[Commodity]int `json:"commodities,omitempty"`
	TouchingCities []string          `json:"touching_cities,omitempty"`
	Complete       bool              `json:"complete"`
	Scored         bool              `json:"scored"`
}

// Tiles returns the distinct coordinates the feature covers, sorted
func (f *Feature) Tiles() []Coordinate {
	seen := make(map[string]bool, len(f.Nodes))
	var tiles []Coordinate
	for _, n := range f.Nodes {
		key := CoordKey(n.Coordinate)
		if !seen[key] {
			seen[key] = true
			tiles = append(tiles, n.Coordinate)
		}
	}
	sort.Slice(tiles, func(i, j int) bool {
		if tiles[i].Y != tiles[j].Y {
			return tiles[i].Y < tiles[j].Y
		}
		return tiles[i].X < tiles[j].X
	})
	return tiles
}

func (f *Feature) clone() *Feature {
	c := *f
	c.Nodes = append([]FeatureNode(nil), f.Nodes...)
	c.Meeples = append([]FeatureMeeple(nil), f.Meeples...)
	c.TouchingCities = append([]string(nil), f.TouchingCities...)
	if f.Commodities != nil {
		c.Commodities = make(map[Commodity]int, len(f.Commodities))
		for k, v := range f.Commodities {
			c.Commodities[k] = v
		}
	}
	return &c
}

// FeatureTracker is a disjoint-set over node keys "x,y:segmentId" with an
// arena of parent/rank slots and feature data held only at roots.
type FeatureTracker struct {
	Index  map[string]int   `json:"index"`
	Keys   []string         `json:"keys"`
	Parent []int            `json:"parent"`
	Rank   []int            `json:"rank"`
	Data   map[int]*Feature `json:"data"`

	// features already copied by this working tracker
	owned map[int]bool
}

// NewFeatureTracker returns an empty tracker
func NewFeatureTracker() *FeatureTracker {
	return &FeatureTracker{
		Index: make(map[string]int),
		Data:  make(map[int]*Feature),
	}
}

// working returns a copy whose structure may be modified freely. Feature
// values stay shared until mutable is called on them.
func (t *FeatureTracker) working() *FeatureTracker {
	w := &FeatureTracker{
		Index:  make(map[string]int, len(t.Index)),
		Keys:   append([]string(nil), t.Keys...),
		Parent: append([]int(nil), t.Parent...),
		Rank:   append([]int(nil), t.Rank...),
		Data:   make(map[int]*Feature, len(t.Data)),
		owned:  make(map[int]bool),
	}
	for k, v := range t.Index {
		w.Index[k] = v
	}
	for k, v := range t.Data {
		w.Data[k] = v
	}
	return w
}

// mutable returns the feature at root, copying it on first write
func (t *FeatureTracker) mutable(root int) *Feature {
	f := t.Data[root]
	if f == nil {
		return nil
	}
	if !t.owned[root] {
		f = f.clone()
		t.Data[root] = f
		t.owned[root] = true
	}
	return f
}

// find resolves the root slot of i with path halving. Only used on working copies.
func (t *FeatureTracker) find(i int) int {
	for t.Parent[i] != i {
		t.Parent[i] = t.Parent[t.Parent[i]]
		i = t.Parent[i]
	}
	return i
}

// root resolves the root slot of i without touching the structure
func (t *FeatureTracker) root(i int) int {
	for t.Parent[i] != i {
		i = t.Parent[i]
	}
	return i
}

// Has reports whether key has a node
func (t *FeatureTracker) Has(key string) bool {
	_, ok := t.Index[key]
	return ok
}

// Find returns the root node key of the feature containing key, or "" when unknown
func (t *FeatureTracker) Find(key string) string {
	i, ok := t.Index[key]
	if !ok {
		return ""
	}
	return t.Keys[t.root(i)]
}

// Feature returns the feature containing key, or nil
func (t *FeatureTracker) Feature(key string) *Feature {
	i, ok := t.Index[key]
	if !ok {
		return nil
	}
	return t.Data[t.root(i)]
}

// Features returns every feature ordered by id
func (t *FeatureTracker) Features() []*Feature {
	features := make([]*Feature, 0, len(t.Data))
	for _, f := range t.Data {
		features = append(features, f)
	}
	sort.Slice(features, func(i, j int) bool { return features[i].ID < features[j].ID })
	return features
}

// Len returns the number of distinct features
func (t *FeatureTracker) Len() int {
	return len(t.Data)
}

func (t *FeatureTracker) makeSet(key string, f *Feature) int {
	i := len(t.Keys)
	t.Index[key] = i
	t.Keys = append(t.Keys, key)
	t.Parent = append(t.Parent, i)
	t.Rank = append(t.Rank, 0)
	f.ID = key
	t.Data[i] = f
	t.owned[i] = true
	return i
}

// union merges the classes of a and b. acrossEdge marks a join over a
// board edge, which closes one open sub-position on each side.
func (t *FeatureTracker) union(a, b int, acrossEdge bool) int {
	ra, rb := t.find(a), t.find(b)

	if ra == rb {
		if acrossEdge {
			f := t.mutable(ra)
			f.OpenEdges -= 2
			f.Complete = isComplete(f)
		}
		return ra
	}

	if t.Rank[ra] < t.Rank[rb] {
		ra, rb = rb, ra
	}
	t.Parent[rb] = ra
	if t.Rank[ra] == t.Rank[rb] {
		t.Rank[ra]++
	}

	keep := t.mutable(ra)
	gone := t.Data[rb]
	delete(t.Data, rb)
	delete(t.owned, rb)

	keep.Nodes = append(keep.Nodes, gone.Nodes...)
	keep.Meeples = append(keep.Meeples, gone.Meeples...)
	keep.PennantCount += gone.PennantCount
	keep.OpenEdges += gone.OpenEdges
	if acrossEdge {
		keep.OpenEdges -= 2
	}
	keep.HasInn = keep.HasInn || gone.HasInn
	keep.HasCathedral = keep.HasCathedral || gone.HasCathedral
	for c, n := range gone.Commodities {
		if keep.Commodities == nil {
			keep.Commodities = make(map[Commodity]int)
		}
		keep.Commodities[c] += n
	}
	for _, city := range gone.TouchingCities {
		if !containsString(keep.TouchingCities, city) {
			keep.TouchingCities = append(keep.TouchingCities, city)
		}
	}
	keep.Scored = keep.Scored || gone.Scored
	keep.TileCount = len(keep.Tiles())
	keep.ID = t.Keys[ra]
	keep.Complete = isComplete(keep)

	return ra
}

// isComplete applies the completion rule for roads and cities. Fields never
// complete and cloisters are maintained by updateCloister.
func isComplete(f *Feature) bool {
	switch f.Type {
	case City, Road:
		return f.OpenEdges <= 0
	default:
		return false
	}
}

// AddTile registers the segments of a just-placed tile and joins them with
// the neighbours already on board. board must already contain placed. It
// returns the new tracker and the ids of features completed by this tile.
func (t *FeatureTracker) AddTile(board *Board, catalog Catalog, placed *PlacedTile) (*FeatureTracker, []string) {
	w := t.working()
	def, ok := catalog[placed.DefinitionID]
	if !ok {
		return t, nil
	}
	c := placed.Coordinate

	local := make(map[string]int, len(def.Segments))
	for _, seg := range def.Segments {
		if seg.Type == Cloister {
			continue
		}
		f := &Feature{
			Type:         seg.Type,
			Nodes:        []FeatureNode{{Coordinate: c, SegmentID: seg.ID}},
			TileCount:    1,
			PennantCount: boolToInt(seg.HasPennant),
			OpenEdges:    len(PhysicalPositions(def, placed.Rotation, seg.ID)),
			HasInn:       seg.HasInn,
			HasCathedral: seg.HasCathedral,
		}
		if seg.Commodity != "" {
			f.Commodities = map[Commodity]int{seg.Commodity: 1}
		}
		local[seg.ID] = w.makeSet(NodeKey(c, seg.ID), f)
	}

	// Intra-tile pairs: same terrain joins, field next to city is remembered
	for _, pair := range def.Adjacencies {
		a, b := def.Segment(pair[0]), def.Segment(pair[1])
		if a == nil || b == nil || a.Type == Cloister || b.Type == Cloister {
			continue
		}
		switch {
		case a.Type == b.Type:
			w.union(local[a.ID], local[b.ID], false)
		case a.Type == Field && b.Type == City:
			w.touch(local[a.ID], NodeKey(c, b.ID))
		case a.Type == City && b.Type == Field:
			w.touch(local[b.ID], NodeKey(c, a.ID))
		}
	}

	for _, dir := range Directions {
		nc := Neighbor(c, dir)
		neighbor := board.Get(nc)
		if neighbor == nil {
			continue
		}
		neighborDef, ok := catalog[neighbor.DefinitionID]
		if !ok {
			continue
		}
		for _, pos := range EdgePositionsFor(dir) {
			mine := GetSegmentAtEdgePosition(def, placed.Rotation, pos)
			theirs := GetSegmentAtEdgePosition(neighborDef, neighbor.Rotation, MirrorPosition(pos))
			mi, ok1 := w.Index[NodeKey(c, mine)]
			ti, ok2 := w.Index[NodeKey(nc, theirs)]
			if !ok1 || !ok2 {
				continue
			}
			w.union(mi, ti, true)
		}
	}

	var completed []string
	seen := make(map[int]bool)
	for _, i := range local {
		r := w.find(i)
		if seen[r] {
			continue
		}
		seen[r] = true
		if f := w.Data[r]; f.Complete && !f.Scored {
			completed = append(completed, f.ID)
		}
	}
	sort.Strings(completed)

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			at := Coordinate{X: c.X + dx, Y: c.Y + dy}
			if id, done := w.updateCloister(board, catalog, at); done {
				completed = append(completed, id)
			}
		}
	}

	return w, completed
}

// touch records that the field at slot i borders the city node cityKey
func (t *FeatureTracker) touch(i int, cityKey string) {
	f := t.mutable(t.find(i))
	if !containsString(f.TouchingCities, cityKey) {
		f.TouchingCities = append(f.TouchingCities, cityKey)
	}
}

// updateCloister creates or refreshes the cloister nodes of the tile at c.
// It reports the id of a cloister that became complete.
func (t *FeatureTracker) updateCloister(board *Board, catalog Catalog, c Coordinate) (string, bool) {
	tile := board.Get(c)
	if tile == nil {
		return "", false
	}
	def, ok := catalog[tile.DefinitionID]
	if !ok {
		return "", false
	}

	around := CountSurroundingTiles(board, c)
	var completedID string
	for _, seg := range def.Segments {
		if seg.Type != Cloister {
			continue
		}
		key := NodeKey(c, seg.ID)
		i, exists := t.Index[key]
		if !exists {
			t.makeSet(key, &Feature{
				Type:      Cloister,
				Nodes:     []FeatureNode{{Coordinate: c, SegmentID: seg.ID}},
				TileCount: around + 1,
				OpenEdges: CloisterRing - around,
				Complete:  around == CloisterRing,
			})
			if around == CloisterRing {
				completedID = key
			}
			continue
		}

		f := t.mutable(t.find(i))
		was := f.Complete
		f.TileCount = around + 1
		f.OpenEdges = CloisterRing - around
		f.Complete = around == CloisterRing
		if !was && f.Complete && !f.Scored {
			completedID = f.ID
		}
	}
	return completedID, completedID != ""
}

// CountSurroundingTiles counts the occupied cells among the 8 around c
func CountSurroundingTiles(board *Board, c Coordinate) int {
	count := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if board.Occupied(Coordinate{X: c.X + dx, Y: c.Y + dy}) {
				count++
			}
		}
	}
	return count
}

// edit returns a tracker where fn has been applied to the feature holding key
func (t *FeatureTracker) edit(key string, fn func(*Feature)) *FeatureTracker {
	i, ok := t.Index[key]
	if !ok {
		return t
	}
	w := t.working()
	fn(w.mutable(w.find(i)))
	return w
}

// attachMeeple records m on the feature holding its node
func (t *FeatureTracker) attachMeeple(m FeatureMeeple) *FeatureTracker {
	return t.edit(m.NodeKey, func(f *Feature) {
		f.Meeples = append(f.Meeples, m)
	})
}

// settle marks the features holding keys as scored and lifts their meeples
func (t *FeatureTracker) settle(keys []string) *FeatureTracker {
	if len(keys) == 0 {
		return t
	}
	w := t.working()
	for _, key := range keys {
		i, ok := w.Index[key]
		if !ok {
			continue
		}
		f := w.mutable(w.find(i))
		f.Scored = true
		f.Meeples = nil
	}
	return w
}

// AdjacentCompletedCities counts the distinct complete cities a field touches
func (t *FeatureTracker) AdjacentCompletedCities(f *Feature) int {
	roots := make(map[string]bool)
	for _, cityKey := range f.TouchingCities {
		city := t.Feature(cityKey)
		if city != nil && city.Complete {
			roots[city.ID] = true
		}
	}
	return len(roots)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
