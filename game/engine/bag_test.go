package engine

import (
	"errors"
	"testing"
)

// scripted replays fixed answers for Intn
type scripted struct {
	answers []int
	calls   int
}

func (s *scripted) Intn(n int) int {
	v := s.answers[s.calls%len(s.answers)] % n
	s.calls++
	return v
}

func TestNewTileBagReservesStartingTile(t *testing.T) {
	defs := []*TileDefinition{
		cityCapTile("cap", 3),
		startWith(roadEndTile("end", 2, false)),
	}

	bag, start, err := NewTileBag(defs, nil, keepOrder{})
	if err != nil {
		t.Fatalf("NewTileBag failed: %v", err)
	}
	if start.DefinitionID != "end" || start.Rotation != 0 {
		t.Errorf("Expected starting tile end@0, got %+v", start)
	}
	if bag.Len() != 4 {
		t.Fatalf("Expected 4 tiles in bag, got %d", bag.Len())
	}

	want := []string{"cap", "cap", "cap", "end"}
	for i, tile := range bag {
		if tile.DefinitionID != want[i] {
			t.Errorf("bag[%d] = %s, want %s", i, tile.DefinitionID, want[i])
		}
	}
}

func TestNewTileBagExtraInstances(t *testing.T) {
	defs := []*TileDefinition{startWith(cityCapTile("cap", 1))}
	extra := []TileInstance{{DefinitionID: "cap", Rotation: 90}}

	bag, _, err := NewTileBag(defs, extra, keepOrder{})
	if err != nil {
		t.Fatalf("NewTileBag failed: %v", err)
	}
	if bag.Len() != 1 || bag[0].Rotation != 90 {
		t.Errorf("Expected the extra instance in the bag, got %+v", bag)
	}
}

func TestNewTileBagShufflesWithSource(t *testing.T) {
	defs := []*TileDefinition{
		startWith(cityCapTile("start", 1)),
		cityCapTile("a", 1),
		cityCapTile("b", 1),
		cityCapTile("c", 1),
	}

	// Always swapping with index 0 rotates the pool
	bag, _, err := NewTileBag(defs, nil, &scripted{answers: []int{0}})
	if err != nil {
		t.Fatalf("NewTileBag failed: %v", err)
	}
	got := []string{bag[0].DefinitionID, bag[1].DefinitionID, bag[2].DefinitionID}
	want := []string{"b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected order %v, got %v", want, got)
		}
	}
}

func TestNewTileBagWithoutStartingTile(t *testing.T) {
	_, _, err := NewTileBag([]*TileDefinition{cityCapTile("cap", 2)}, nil, keepOrder{})
	if err == nil {
		t.Fatal("Expected error without a starting tile")
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("Expected *ConfigurationError, got %T", err)
	}
}

func TestBagDrawDoesNotMutate(t *testing.T) {
	bag := Bag{{DefinitionID: "a"}, {DefinitionID: "b"}}

	tile, rest, ok := bag.Draw()
	if !ok || tile.DefinitionID != "a" {
		t.Fatalf("Expected to draw a, got %+v ok=%v", tile, ok)
	}
	if rest.Len() != 1 || rest[0].DefinitionID != "b" {
		t.Errorf("Expected remaining [b], got %+v", rest)
	}
	if bag.Len() != 2 || bag[0].DefinitionID != "a" {
		t.Errorf("Expected original bag untouched, got %+v", bag)
	}

	if peek, ok := rest.Peek(); !ok || peek.DefinitionID != "b" {
		t.Errorf("Expected peek b, got %+v", peek)
	}

	var empty Bag
	if _, _, ok := empty.Draw(); ok {
		t.Error("Expected empty draw to report !ok")
	}
}

func TestCryptoSourceRange(t *testing.T) {
	src := CryptoSource{}
	for i := 0; i < 100; i++ {
		if v := src.Intn(5); v < 0 || v >= 5 {
			t.Fatalf("Intn(5) returned %d", v)
		}
	}
	if v := src.Intn(1); v != 0 {
		t.Errorf("Intn(1) = %d, want 0", v)
	}
}
