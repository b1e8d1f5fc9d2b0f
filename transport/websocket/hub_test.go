package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/krueger80/carcassonne-ai-sub001/game/engine"
)

func testState(phase engine.GamePhase) *engine.GameState {
	return &engine.GameState{
		Phase:     phase,
		TurnPhase: engine.TurnDrawTile,
		Players: []engine.Player{
			{ID: "player_0", Name: "Ada", Score: 4},
			{ID: "player_1", Name: "Grace", Score: 9},
		},
		LastScoreEvents: []engine.ScoreEvent{
			{FeatureID: "0,0:road0", FeatureType: engine.Road, Scores: map[string]int{"player_0": 4}},
		},
	}
}

func newTestClient(hub *Hub, sessionID string) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, 256),
	}
}

func receive(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		return message
	case <-time.After(time.Second):
		t.Fatal("No message received within timeout")
	}
	return Message{}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Error("Hub channels are not initialized")
	}
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	sessionID := "multi-client-session"

	client1 := newTestClient(hub, sessionID)
	client2 := newTestClient(hub, sessionID)

	hub.registerClient(client1)
	hub.registerClient(client2)
	if hub.ClientCount(sessionID) != 2 {
		t.Errorf("Expected 2 clients in session, got %d", hub.ClientCount(sessionID))
	}

	hub.unregisterClient(client1)
	if hub.ClientCount(sessionID) != 1 || !hub.sessions[sessionID][client2] {
		t.Error("Expected only client2 to remain")
	}

	// Unregistering twice must not close the channel again
	hub.unregisterClient(client1)

	hub.unregisterClient(client2)
	if _, exists := hub.sessions[sessionID]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
}

func TestHubBroadcastToSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	client := newTestClient(hub, "broadcast-test")
	other := newTestClient(hub, "other-session")
	hub.registerClient(client)
	hub.registerClient(other)

	hub.BroadcastToSession("broadcast-test", testState(engine.PhasePlaying))

	message := receive(t, client)
	if message.SessionID != "broadcast-test" {
		t.Errorf("Expected sessionID broadcast-test, got %s", message.SessionID)
	}
	if message.Event != EventStateUpdate {
		t.Errorf("Expected event %s, got %s", EventStateUpdate, message.Event)
	}
	if message.GameState == nil || len(message.GameState.Players) != 2 {
		t.Fatal("GameState not correctly transmitted")
	}
	if len(message.ScoreEvents) != 1 || message.ScoreEvents[0].Scores["player_0"] != 4 {
		t.Errorf("Expected the score event to ride along, got %+v", message.ScoreEvents)
	}

	select {
	case <-other.send:
		t.Error("Other session should not receive the broadcast")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubBroadcastGameOver(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	client := newTestClient(hub, "final")
	hub.registerClient(client)

	hub.BroadcastToSession("final", testState(engine.PhaseEnd))

	if m := receive(t, client); m.Event != EventStateUpdate {
		t.Errorf("Expected state update first, got %s", m.Event)
	}
	m := receive(t, client)
	if m.Event != EventGameOver {
		t.Fatalf("Expected %s, got %s", EventGameOver, m.Event)
	}
	standings, ok := m.Data.([]any)
	if !ok || len(standings) != 2 {
		t.Fatalf("Expected standings data, got %#v", m.Data)
	}
	if leader := standings[0].(map[string]any)["name"]; leader != "Grace" {
		t.Errorf("Expected Grace to lead, got %v", leader)
	}
}

func TestHubBroadcastEvent(t *testing.T) {
	hub := NewHub()

	go hub.BroadcastEvent("event-test", "custom-event", "test-data")

	select {
	case message := <-hub.broadcast:
		if message.SessionID != "event-test" || message.Event != "custom-event" || message.Data != "test-data" {
			t.Errorf("Unexpected message %+v", message)
		}
	case <-time.After(time.Second):
		t.Error("No broadcast message received within timeout")
	}
}

func TestHubStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := newTestClient(hub, "s")
	hub.registerClient(client)
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, ok := <-client.send; ok {
		t.Error("Expected client channel to be closed")
	}

	// Broadcasting after stop must not block
	done := make(chan struct{})
	go func() {
		hub.BroadcastToSession("s", testState(engine.PhasePlaying))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Broadcast blocked after hub stopped")
	}
}

func TestWebSocketRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	initial := testState(engine.PhasePlaying)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("sessionId"), initial)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?sessionId=ws-test"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	read := func() Message {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read WebSocket message: %v", err)
		}
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		return m
	}

	// The current state arrives on connect
	if m := read(); m.Event != EventStateUpdate || m.GameState == nil {
		t.Fatalf("Expected initial state, got %+v", m)
	}

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount("ws-test") != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount("ws-test") != 1 {
		t.Fatalf("Expected 1 client in session, got %d", hub.ClientCount("ws-test"))
	}

	next := testState(engine.PhasePlaying)
	next.CurrentPlayerIndex = 1
	hub.BroadcastToSession("ws-test", next)

	if m := read(); m.GameState == nil || m.GameState.CurrentPlayerIndex != 1 {
		t.Errorf("Expected the broadcast state, got %+v", m.GameState)
	}

	conn.Close()
	deadline = time.Now().Add(time.Second)
	for hub.ClientCount("ws-test") != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount("ws-test") != 0 {
		t.Error("Session should have been cleaned up after WebSocket close")
	}
}
