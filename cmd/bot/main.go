// Command bot plays a full match against the REST API with a greedy policy.
// Every seat is driven by the same bot, which makes it handy for smoke
// testing a deployed server.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/krueger80/carcassonne-ai-sub001/game/engine"
	"github.com/krueger80/carcassonne-ai-sub001/game/service"
)

// Client talks to one match on the REST API
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// do sends a request and decodes a 2xx answer into out
func (c *Client) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s response: %w", path, err)
	}
	return nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + c.sessionID + suffix
}

func (c *Client) CreateSession(req service.CreateSessionRequest) (*engine.GameState, error) {
	var info service.SessionInfo
	if err := c.do("POST", "/api/sessions", req, &info); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = info.ID
	return info.GameState, nil
}

func (c *Client) GetState() (*engine.GameState, error) {
	var state engine.GameState
	if err := c.do("GET", c.sessionPath("/state"), nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

type ResetResponse struct {
	Message string            `json:"message"`
	State   *engine.GameState `json:"state"`
}

func (c *Client) Reset() (*engine.GameState, error) {
	var resp ResetResponse
	if err := c.do("POST", c.sessionPath("/reset"), nil, &resp); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return resp.State, nil
}

// Act posts a turn action. A rejected action is returned together with an
// error wrapping service.ErrActionRejected.
func (c *Client) Act(action string, body any) (*service.ActionResult, error) {
	var result service.ActionResult
	if err := c.do("POST", c.sessionPath("/"+action), body, &result); err != nil {
		return nil, err
	}
	return &result, result.Err()
}

func (c *Client) Placements() ([]engine.Placement, error) {
	var resp struct {
		Placements []engine.Placement `json:"placements"`
	}
	if err := c.do("GET", c.sessionPath("/placements"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Placements, nil
}

func (c *Client) MeepleOptions() ([]engine.MeepleOption, error) {
	var resp struct {
		Options []engine.MeepleOption `json:"options"`
	}
	if err := c.do("GET", c.sessionPath("/meeple-options"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Options, nil
}

// choosePlacement prefers the cell with the most occupied neighbours, which
// keeps the board compact and closes features sooner
func choosePlacement(state *engine.GameState, placements []engine.Placement) (engine.Coordinate, engine.Rotation) {
	best, bestScore := 0, -1
	for i, p := range placements {
		score := 0
		for _, dir := range engine.Directions {
			if state.Board.Occupied(engine.Neighbor(p.Coordinate, dir)) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return placements[best].Coordinate, placements[best].Rotations[0]
}

var claimOrder = map[engine.SegmentType]int{
	engine.Cloister: 3,
	engine.City:     2,
	engine.Road:     1,
}

// chooseMeeple keeps a reserve of normal meeples and never farms
func chooseMeeple(state *engine.GameState, options []engine.MeepleOption, reserve int) (engine.MeepleOption, engine.MeepleKind, bool) {
	player := state.CurrentPlayer()
	if player == nil || player.Meeples.Available[engine.NormalMeeple] <= reserve {
		return engine.MeepleOption{}, "", false
	}

	var pick engine.MeepleOption
	rank := 0
	for _, opt := range options {
		if claimOrder[opt.Type] > rank && hasKind(opt.Kinds, engine.NormalMeeple) {
			pick, rank = opt, claimOrder[opt.Type]
		}
	}
	if rank == 0 {
		return engine.MeepleOption{}, "", false
	}
	return pick, engine.NormalMeeple, true
}

func hasKind(kinds []engine.MeepleKind, kind engine.MeepleKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// PlayTurn runs draw, place, claim and end-turn for the seat on move
func PlayTurn(c *Client, state *engine.GameState, reserve int) (*engine.GameState, error) {
	result, err := c.Act("draw", nil)
	if err != nil {
		return state, err
	}
	state = result.GameState
	if state.IsOver() {
		return state, nil
	}

	placements, err := c.Placements()
	if err != nil {
		return state, err
	}
	if len(placements) == 0 {
		return state, fmt.Errorf("no placement for %s", state.CurrentTile.DefinitionID)
	}
	coord, rotation := choosePlacement(state, placements)
	if result, err = c.Act("place", service.PlaceTileRequest{X: coord.X, Y: coord.Y, Rotation: &rotation}); err != nil {
		return state, err
	}
	state = result.GameState

	options, err := c.MeepleOptions()
	if err != nil {
		return state, err
	}
	if opt, kind, ok := chooseMeeple(state, options, reserve); ok {
		result, err = c.Act("meeple", service.PlaceMeepleRequest{SegmentID: opt.SegmentID, Kind: kind})
	} else {
		result, err = c.Act("skip-meeple", nil)
	}
	if err != nil {
		return state, err
	}

	if result, err = c.Act("end-turn", nil); err != nil {
		return state, err
	}
	return result.GameState, nil
}

// PlayMatch plays until the bag runs out or maxTurns is reached, in which
// case the match is closed with end-game
func PlayMatch(c *Client, state *engine.GameState, maxTurns, reserve int, verbose bool) (*engine.GameState, int, error) {
	turns := 0
	for !state.IsOver() {
		if turns >= maxTurns {
			result, err := c.Act("end-game", nil)
			if err != nil {
				return state, turns, err
			}
			return result.GameState, turns, nil
		}

		next, err := PlayTurn(c, state, reserve)
		if err != nil {
			return next, turns, fmt.Errorf("turn %d: %w", turns+1, err)
		}
		state = next
		if state.IsOver() {
			// the bag ran out on the draw
			break
		}
		turns++

		if verbose && len(state.LastScoreEvents) > 0 {
			for _, ev := range state.LastScoreEvents {
				log.Printf("Scored %s %s: %v", ev.FeatureType, ev.FeatureID, ev.Scores)
			}
		}
	}
	return state, turns, nil
}

func main() {
	_ = godotenv.Load()

	serverURL := flag.String("url", "http://localhost:8080", "Game server URL")
	catalogID := flag.String("catalog", "", "Tile catalog (default: server default)")
	players := flag.String("players", "Red,Blue", "Comma-separated player names")
	expansions := flag.String("expansions", "", "Comma-separated expansion ids")
	continueSession := flag.String("continue", "", "Resume playing an existing session by ID")
	maxTurns := flag.Int("max-turns", 200, "Close the match after this many turns")
	reserve := flag.Int("reserve", 1, "Normal meeples to keep in hand")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	log.Printf("Connecting to game server at %s", *serverURL)
	client := NewClient(*serverURL)

	var state *engine.GameState
	var err error
	if *continueSession != "" {
		client.sessionID = *continueSession
		log.Printf("Resuming session: %s", client.sessionID)
		if state, err = client.GetState(); err != nil {
			log.Fatalf("Failed to resume session: %v", err)
		}
		if state.IsOver() {
			log.Printf("Match already over, resetting")
			if state, err = client.Reset(); err != nil {
				log.Fatalf("Failed to reset: %v", err)
			}
		}
	} else {
		req := service.CreateSessionRequest{
			CatalogID:  *catalogID,
			Players:    splitList(*players),
			Expansions: splitList(*expansions),
		}
		if state, err = client.CreateSession(req); err != nil {
			log.Fatalf("Failed to create session: %v", err)
		}
		log.Printf("Session created: %s (%d tiles in bag)", client.sessionID, state.Bag.Len())
	}

	final, turns, err := PlayMatch(client, state, *maxTurns, *reserve, *verbose)
	if err != nil {
		log.Printf("Match stopped: %v", err)
		log.Printf("Session: %s", client.sessionID)
		os.Exit(1)
	}

	log.Printf("Match over after %d turns, %d tiles discarded", turns, len(final.DiscardedTiles))
	for i, p := range engine.Standings(final) {
		log.Printf("%d. %s - %d", i+1, p.Name, p.Score)
	}
	log.Printf("Session: %s", client.sessionID)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
