package main

import (
	"errors"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/krueger80/carcassonne-ai-sub001/api"
	"github.com/krueger80/carcassonne-ai-sub001/game/config"
	"github.com/krueger80/carcassonne-ai-sub001/game/engine"
	"github.com/krueger80/carcassonne-ai-sub001/game/service"
	"github.com/krueger80/carcassonne-ai-sub001/game/session"
)

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	catalogs, err := config.NewManager("../../catalogs")
	if err != nil {
		t.Fatalf("Failed to create catalog manager: %v", err)
	}
	svc := service.NewGameService(session.NewManager(), catalogs)
	ts := httptest.NewServer(api.NewServer(svc, nil))
	t.Cleanup(ts.Close)
	return ts
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"Ada", []string{"Ada"}},
		{" Ada , Grace,, ", []string{"Ada", "Grace"}},
	}
	for _, tt := range tests {
		if got := splitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestChoosePlacement(t *testing.T) {
	board := engine.NewBoard()
	board.Tiles = map[string]*engine.PlacedTile{
		"0,0": {Coordinate: engine.Coordinate{X: 0, Y: 0}},
		"1,1": {Coordinate: engine.Coordinate{X: 1, Y: 1}},
	}
	state := &engine.GameState{Board: board}

	placements := []engine.Placement{
		{Coordinate: engine.Coordinate{X: -1, Y: 0}, Rotations: []engine.Rotation{90}},
		{Coordinate: engine.Coordinate{X: 1, Y: 0}, Rotations: []engine.Rotation{180, 270}},
	}

	coord, rotation := choosePlacement(state, placements)
	if coord != (engine.Coordinate{X: 1, Y: 0}) || rotation != 180 {
		t.Errorf("Expected (1,0) at 180, got %v at %d", coord, rotation)
	}
}

func TestChooseMeeple(t *testing.T) {
	state := func(available int) *engine.GameState {
		return &engine.GameState{
			Players: []engine.Player{{ID: "p1", Meeples: engine.PlayerMeeples{
				Available: map[engine.MeepleKind]int{engine.NormalMeeple: available},
			}}},
		}
	}
	options := []engine.MeepleOption{
		{SegmentID: "field0", Type: engine.Field, Kinds: []engine.MeepleKind{engine.NormalMeeple}},
		{SegmentID: "road0", Type: engine.Road, Kinds: []engine.MeepleKind{engine.NormalMeeple}},
		{SegmentID: "city0", Type: engine.City, Kinds: []engine.MeepleKind{engine.NormalMeeple, engine.BigMeeple}},
	}

	tests := []struct {
		name      string
		available int
		options   []engine.MeepleOption
		wantOK    bool
		wantSeg   string
	}{
		{"prefers city", 5, options, true, "city0"},
		{"keeps reserve", 1, options, false, ""},
		{"never farms", 5, options[:1], false, ""},
		{"nothing offered", 5, nil, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, kind, ok := chooseMeeple(state(tt.available), tt.options, 1)
			if ok != tt.wantOK {
				t.Fatalf("Expected ok=%t, got %t", tt.wantOK, ok)
			}
			if ok && (opt.SegmentID != tt.wantSeg || kind != engine.NormalMeeple) {
				t.Errorf("Expected %s with a normal meeple, got %s with %s", tt.wantSeg, opt.SegmentID, kind)
			}
		})
	}
}

func TestClient_ErrorResponses(t *testing.T) {
	ts := startServer(t)
	client := NewClient(ts.URL + "/")

	client.sessionID = "ghost"
	if _, err := client.GetState(); err == nil {
		t.Error("Expected an error for an unknown session")
	}

	if _, err := client.CreateSession(service.CreateSessionRequest{Players: []string{"Solo"}}); err == nil {
		t.Error("Expected an error for a one-player match")
	}
}

func TestClient_RejectedAction(t *testing.T) {
	ts := startServer(t)
	client := NewClient(ts.URL)

	if _, err := client.CreateSession(service.CreateSessionRequest{Players: []string{"Ada", "Grace"}}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	result, err := client.Act("end-turn", nil)
	if !errors.Is(err, service.ErrActionRejected) {
		t.Fatalf("Expected a rejected action, got %v", err)
	}
	if result == nil || result.Accepted {
		t.Errorf("Expected the rejected result to be returned, got %+v", result)
	}
}

func TestPlayTurn(t *testing.T) {
	ts := startServer(t)
	client := NewClient(ts.URL)

	state, err := client.CreateSession(service.CreateSessionRequest{Players: []string{"Ada", "Grace"}})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	state, err = PlayTurn(client, state, 1)
	if err != nil {
		t.Fatalf("PlayTurn failed: %v", err)
	}
	if state.Board.Len() != 2 {
		t.Errorf("Expected 2 tiles on the board, got %d", state.Board.Len())
	}
	if state.CurrentPlayerIndex != 1 || state.TurnPhase != engine.TurnDrawTile {
		t.Errorf("Expected seat 2 to draw next, got seat %d in %s", state.CurrentPlayerIndex+1, state.TurnPhase)
	}
}

func TestPlayMatch(t *testing.T) {
	ts := startServer(t)
	client := NewClient(ts.URL)

	state, err := client.CreateSession(service.CreateSessionRequest{
		Players:    []string{"Ada", "Grace", "Linus"},
		Expansions: []string{engine.InnsCathedrals},
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	final, turns, err := PlayMatch(client, state, 500, 1, false)
	if err != nil {
		t.Fatalf("PlayMatch failed: %v", err)
	}
	if final.Phase != engine.PhaseEnd {
		t.Fatalf("Expected the match to end, got phase %s", final.Phase)
	}
	if turns+len(final.DiscardedTiles) != state.Bag.Len() {
		t.Errorf("Expected every tile to be drawn: %d turns, %d discarded, %d in bag",
			turns, len(final.DiscardedTiles), state.Bag.Len())
	}

	total := 0
	for _, p := range final.Players {
		total += p.Score
	}
	if total == 0 {
		t.Error("Expected some points after a full match")
	}
}

func TestPlayMatch_TurnLimitEndsGame(t *testing.T) {
	ts := startServer(t)
	client := NewClient(ts.URL)

	state, err := client.CreateSession(service.CreateSessionRequest{Players: []string{"Ada", "Grace"}})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	final, turns, err := PlayMatch(client, state, 3, 1, false)
	if err != nil {
		t.Fatalf("PlayMatch failed: %v", err)
	}
	if turns != 3 || final.Phase != engine.PhaseEnd {
		t.Errorf("Expected the match closed after 3 turns, got %d turns in %s", turns, final.Phase)
	}
	if left := final.Bag.Len() + len(final.DiscardedTiles); left != 68 {
		t.Errorf("Expected 68 tiles undrawn or discarded, got %d", left)
	}

	state, err = client.Reset()
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if state.Phase != engine.PhasePlaying || state.Bag.Len() != 71 {
		t.Errorf("Expected a fresh match after reset, got %s with %d tiles", state.Phase, state.Bag.Len())
	}
}
