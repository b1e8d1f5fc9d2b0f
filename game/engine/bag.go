package engine

import (
	"crypto/rand"
	"math/big"
)

// RandomSource yields uniform integers in [0, n)
type RandomSource interface {
	Intn(n int) int
}

// CryptoSource draws from crypto/rand so bag order cannot be predicted
type CryptoSource struct{}

// Intn returns a uniform value in [0, n)
func (CryptoSource) Intn(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand.Reader does not fail on supported platforms
		panic(err)
	}
	return int(v.Int64())
}

// Bag is the ordered supply of undrawn tiles; index 0 is drawn next
type Bag []TileInstance

// NewTileBag expands definitions into instances at rotation 0, pulls out the
// first starting-tile copy and shuffles the rest together with extra.
func NewTileBag(defs []*TileDefinition, extra []TileInstance, source RandomSource) (Bag, TileInstance, error) {
	var pool []TileInstance
	var starting *TileInstance

	for _, def := range defs {
		for i := 0; i < def.Count; i++ {
			inst := TileInstance{DefinitionID: def.ID}
			if def.StartingTile && starting == nil {
				starting = &inst
				continue
			}
			pool = append(pool, inst)
		}
	}

	if starting == nil {
		return nil, TileInstance{}, &ConfigurationError{Reason: "tile catalog has no starting tile"}
	}

	pool = append(pool, extra...)

	if source == nil {
		source = CryptoSource{}
	}
	shuffle(pool, source)

	return Bag(pool), *starting, nil
}

// shuffle is a Fisher-Yates pass driven by source
func shuffle(tiles []TileInstance, source RandomSource) {
	for i := len(tiles) - 1; i > 0; i-- {
		j := source.Intn(i + 1)
		tiles[i], tiles[j] = tiles[j], tiles[i]
	}
}

// Draw returns the head tile and the remaining bag. ok is false on an empty
// bag. The receiver is not modified.
func (b Bag) Draw() (tile TileInstance, remaining Bag, ok bool) {
	if len(b) == 0 {
		return TileInstance{}, b, false
	}
	rest := make(Bag, len(b)-1)
	copy(rest, b[1:])
	return b[0], rest, true
}

// Peek returns the head tile without drawing it
func (b Bag) Peek() (TileInstance, bool) {
	if len(b) == 0 {
		return TileInstance{}, false
	}
	return b[0], true
}

// Len returns the number of undrawn tiles
func (b Bag) Len() int {
	return len(b)
}
