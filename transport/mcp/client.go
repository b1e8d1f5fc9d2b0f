package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/krueger80/carcassonne-ai-sub001/game/engine"
	"github.com/krueger80/carcassonne-ai-sub001/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Carcassonne Match Server",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Carcassonne Match Server - MCP Interface

This is a thin client that proxies all requests to the REST API server.

TURN LOOP:
draw_tile -> (rotate_tile)* -> place_tile -> place_meeple | skip_meeple -> end_turn

AVAILABLE TOOLS:
- create_match: Start a match for 2-6 players
- game_state: Board, scores, current tile and phase
- valid_placements: Legal coordinates and rotations for the drawn tile
- meeple_options: Segments of the placed tile open for a meeple
- draw_tile, rotate_tile, place_tile, place_meeple, skip_meeple, end_turn, end_game
- action_history: Past actions with pagination
- list_sessions, get_session, list_catalogs
- game_instructions: Full rules and scoring

A rejected action is not an error: the tool reports REJECTED and the state is unchanged.`),
	)

	c.registerTools()
}

func sessionOnly(description string) mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"session_id": map[string]interface{}{
				"type":        "string",
				"description": description,
			},
		},
		Required: []string{"session_id"},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_match",
		Description: "Create a new match. Players are seated in the given order; the first player starts.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"players": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Player names, 2 to 6",
				},
				"catalog_id": map[string]interface{}{
					"type":        "string",
					"description": "Tile catalog (see list_catalogs). Defaults to base.",
				},
				"expansions": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Expansion ids such as inns-cathedrals or traders-builders",
				},
			},
			Required: []string{"players"},
		},
	}, c.handleCreateMatch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List active matches, most recently played first",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get match details and standings",
		InputSchema: sessionOnly("Session ID"),
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the board, scores, remaining meeples, the drawn tile and the turn phase",
		InputSchema: sessionOnly("Session ID"),
	}, c.handleGameState)

	// Turn actions
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "draw_tile",
		Description: "Draw the next tile from the bag. Tiles with no legal spot are discarded automatically.",
		InputSchema: sessionOnly("Session ID"),
	}, c.handleAction("draw"))

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "rotate_tile",
		Description: "Rotate the drawn tile 90 degrees clockwise",
		InputSchema: sessionOnly("Session ID"),
	}, c.handleAction("rotate"))

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place_tile",
		Description: "Place the drawn tile. Use valid_placements first; y grows southwards.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Column of the target cell",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Row of the target cell",
				},
				"rotation": map[string]interface{}{
					"type":        "integer",
					"enum":        []int{0, 90, 180, 270},
					"description": "Optional rotation to apply before placing",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handlePlaceTile)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place_meeple",
		Description: "Put a meeple on a segment of the tile just placed. Use meeple_options first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"segment_id": map[string]interface{}{
					"type":        "string",
					"description": "Segment id from meeple_options",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"enum":        []string{string(engine.NormalMeeple), string(engine.BigMeeple), string(engine.Pig)},
					"description": "Meeple kind, defaults to NORMAL",
				},
			},
			Required: []string{"session_id", "segment_id"},
		},
	}, c.handlePlaceMeeple)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "skip_meeple",
		Description: "Place no meeple this turn",
		InputSchema: sessionOnly("Session ID"),
	}, c.handleAction("skip-meeple"))

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "end_turn",
		Description: "Score completed features, return meeples and pass to the next player",
		InputSchema: sessionOnly("Session ID"),
	}, c.handleAction("end-turn"))

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "end_game",
		Description: "Stop the match now and run final scoring",
		InputSchema: sessionOnly("Session ID"),
	}, c.handleAction("end-game"))

	// Queries
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "valid_placements",
		Description: "List the coordinates where the drawn tile fits, with the rotations that work there",
		InputSchema: sessionOnly("Session ID"),
	}, c.handleValidPlacements)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "meeple_options",
		Description: "List the segments of the placed tile that can take a meeple",
		InputSchema: sessionOnly("Session ID"),
	}, c.handleMeepleOptions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "action_history",
		Description: "Get the match action log with pagination",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number (default 1)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Entries per page (default 20, max 100)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Sort order (default desc)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleActionHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_catalogs",
		Description: "List the tile catalogs the server can start matches with",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListCatalogs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules, the turn loop and the scoring table",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func sessionPath(args map[string]interface{}, suffix string) (string, error) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix, nil
}

func stringList(v interface{}) []string {
	raw, _ := v.([]interface{})
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// Tool handlers

func (c *Client) handleCreateMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	body := service.CreateSessionRequest{
		Players:    stringList(args["players"]),
		Expansions: stringList(args["expansions"]),
	}
	body.CatalogID, _ = args["catalog_id"].(string)

	var info service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created match: %s\nCatalog: %s\n", info.ID, info.CatalogID)
	if info.GameState != nil {
		result += fmt.Sprintf("Players: %s\nTiles in bag: %d\n", playerNames(info.GameState.Players), info.GameState.Bag.Len())
	}
	result += "Next: draw_tile"
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Matches (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		phase := ""
		if s.GameState != nil {
			phase = string(s.GameState.Phase)
		}
		fmt.Fprintf(&b, "- %s (Catalog: %s, %s, Created: %s)\n",
			s.ID, s.CatalogID, phase, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGameState(&state)), nil
}

// handleAction builds the handler of a body-less turn action
func (c *Client) handleAction(route string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := sessionPath(arguments(request), "/"+route)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return c.postAction(ctx, path, nil)
	}
}

func (c *Client) postAction(ctx context.Context, path string, body interface{}) (*mcp.CallToolResult, error) {
	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handlePlaceTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/place")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required integers"), nil
	}
	body := service.PlaceTileRequest{X: x, Y: y}
	if r, ok := intArg(args, "rotation"); ok {
		rotation := engine.Rotation(r)
		body.Rotation = &rotation
	}
	return c.postAction(ctx, path, body)
}

func (c *Client) handlePlaceMeeple(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/meeple")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := service.PlaceMeepleRequest{}
	body.SegmentID, _ = args["segment_id"].(string)
	if kind, _ := args["kind"].(string); kind != "" {
		body.Kind = engine.MeepleKind(strings.ToUpper(kind))
	}
	if body.SegmentID == "" {
		return mcp.NewToolResultError("segment_id is required"), nil
	}
	return c.postAction(ctx, path, body)
}

func (c *Client) handleValidPlacements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/placements")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Placements []engine.Placement `json:"placements"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatPlacements(response.Placements)), nil
}

func (c *Client) handleMeepleOptions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/meeple-options")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Options []engine.MeepleOption `json:"options"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMeepleOptions(response.Options)), nil
}

func (c *Client) handleActionHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/history")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		query.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", fmt.Sprint(limit))
	}
	if order, _ := args["order"].(string); order != "" {
		query.Set("order", order)
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListCatalogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var catalogs []service.CatalogInfo
	if err := c.apiCall(ctx, "GET", "/api/catalogs", nil, &catalogs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Catalogs:\n\n")
	for _, cat := range catalogs {
		fmt.Fprintf(&b, "- %s: %s (%d tile types, %d tiles)", cat.CatalogID, cat.Name, cat.TileTypes, cat.TotalTiles)
		if cat.Expansion != "" {
			fmt.Fprintf(&b, " [expansion %s]", cat.Expansion)
		}
		b.WriteString("\n")
		if cat.Description != "" {
			fmt.Fprintf(&b, "  %s\n", cat.Description)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Carcassonne - Complete Instructions

GAME OBJECTIVE:
Score the most points by building roads, cities and cloisters and by farming
the fields between them. The match ends when the bag is empty.

TURN LOOP:
1. draw_tile - take the next tile. A tile that fits nowhere is discarded and
   the next one is drawn for you.
2. rotate_tile - optional, 90 degrees clockwise per call. Or pass rotation to
   place_tile.
3. place_tile - the tile must touch the board orthogonally and every shared
   edge must match (road to road, city to city, field to field).
4. place_meeple or skip_meeple - a meeple may only go on a segment whose
   whole feature is unclaimed.
5. end_turn - completed features score and their meeples come home.

BOARD:
The starting tile sits at (0,0). x grows eastwards, y grows southwards.

SCORING:
- Road: 1 point per tile (2 with an inn when complete, 0 with an inn when not)
- City: 2 points per tile and pennant when complete, 1 each at game end
  (a cathedral makes it 3 each, or 0 if unfinished)
- Cloister: 1 point for itself and each of the 8 surrounding tiles
- Field: 3 points per completed city it touches, scored at game end only
Ties for a feature's majority all score in full.

MEEPLES:
Each player has 7 meeples. Inns & Cathedrals adds one BIG meeple (counts as
two). Traders & Builders adds a PIG: a field you farm with it pays 4 per city
instead of 3. Its goods tokens go to whoever completes a city carrying them,
and the majority of each good earns 10 points at game end.

TIPS:
- Always call valid_placements before place_tile.
- Call meeple_options before place_meeple; only listed segments are legal.
- A REJECTED response means the state did not change. Check the phase.

Good luck, and keep an eye on those fields!`

// Formatting helpers

func playerNames(players []engine.Player) string {
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

func formatSessionInfo(info *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Match: %s\nCatalog: %s\nCreated: %s\nLast Accessed: %s\n",
		info.ID, info.CatalogID,
		info.CreatedAt.Format("2006-01-02 15:04:05"),
		info.LastAccessedAt.Format("2006-01-02 15:04:05"))
	if len(info.Standings) > 0 {
		b.WriteString("\nStandings:\n")
		for i, p := range info.Standings {
			fmt.Fprintf(&b, "%d. %s - %d\n", i+1, p.Name, p.Score)
		}
	}
	return b.String()
}

func formatGameState(state *engine.GameState) string {
	var b strings.Builder

	if state.IsOver() {
		b.WriteString("🏁 GAME OVER\n\n")
	} else if p := state.CurrentPlayer(); p != nil {
		fmt.Fprintf(&b, "Turn: %s (%s)\nPhase: %s\n", p.Name, p.ID, state.TurnPhase)
	}
	fmt.Fprintf(&b, "Tiles in bag: %d\nTiles on board: %d\n", state.Bag.Len(), state.Board.Len())
	if state.CurrentTile != nil {
		fmt.Fprintf(&b, "Current tile: %s rotated %d\n", state.CurrentTile.DefinitionID, state.CurrentTile.Rotation)
	}
	if state.LastPlacedCoord != nil {
		fmt.Fprintf(&b, "Last placed: (%d,%d)\n", state.LastPlacedCoord.X, state.LastPlacedCoord.Y)
	}

	b.WriteString("\nPlayers:\n")
	for i, p := range state.Players {
		marker := " "
		if i == state.CurrentPlayerIndex && !state.IsOver() {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s %s: %d points, meeples %s\n", marker, p.Name, p.Score, formatMeeples(p.Meeples))
	}

	if state.Board.Len() > 0 {
		b.WriteString("\nBoard:\n")
		b.WriteString(formatBoard(state))
	}

	if len(state.LastScoreEvents) > 0 {
		b.WriteString("\nLast scoring:\n")
		b.WriteString(formatScoreEvents(state.LastScoreEvents, state.Players))
	}
	return b.String()
}

func formatMeeples(m engine.PlayerMeeples) string {
	parts := []string{fmt.Sprintf("%d", m.Available[engine.NormalMeeple])}
	if n := m.Available[engine.BigMeeple]; n > 0 {
		parts = append(parts, fmt.Sprintf("big %d", n))
	}
	if n := m.Available[engine.Pig]; n > 0 {
		parts = append(parts, fmt.Sprintf("pig %d", n))
	}
	return strings.Join(parts, ", ")
}

// formatBoard draws occupied cells as #, the last placed tile as @ and
// meeple-carrying tiles as M
func formatBoard(state *engine.GameState) string {
	board := state.Board
	var b strings.Builder
	fmt.Fprintf(&b, "x %d..%d, y %d..%d\n", board.MinX, board.MaxX, board.MinY, board.MaxY)
	for y := board.MinY; y <= board.MaxY; y++ {
		for x := board.MinX; x <= board.MaxX; x++ {
			c := engine.Coordinate{X: x, Y: y}
			tile := board.Get(c)
			switch {
			case tile == nil:
				b.WriteByte('.')
			case state.LastPlacedCoord != nil && *state.LastPlacedCoord == c:
				b.WriteByte('@')
			case len(tile.Meeples) > 0:
				b.WriteByte('M')
			default:
				b.WriteByte('#')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func formatScoreEvents(events []engine.ScoreEvent, players []engine.Player) string {
	names := make(map[string]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}

	var b strings.Builder
	for _, e := range events {
		scores := make([]string, 0, len(e.Scores))
		for _, p := range players {
			if pts, ok := e.Scores[p.ID]; ok {
				scores = append(scores, fmt.Sprintf("%s +%d", names[p.ID], pts))
			}
		}
		fmt.Fprintf(&b, "- %s %s (%d tiles): %s\n", e.FeatureType, e.FeatureID, len(e.Tiles), strings.Join(scores, ", "))
	}
	return b.String()
}

func formatActionResult(result *service.ActionResult) string {
	var b strings.Builder
	if result.Accepted {
		fmt.Fprintf(&b, "✓ %s\n", result.Message)
	} else {
		fmt.Fprintf(&b, "✗ REJECTED: %s\n", result.Message)
	}

	state := result.GameState
	if state == nil {
		return b.String()
	}
	if len(result.ScoreEvents) > 0 {
		b.WriteString("\nScored:\n")
		b.WriteString(formatScoreEvents(result.ScoreEvents, state.Players))
	}
	if len(result.Placements) > 0 {
		b.WriteString("\n")
		b.WriteString(formatPlacements(result.Placements))
	}
	if len(result.Options) > 0 {
		b.WriteString("\n")
		b.WriteString(formatMeepleOptions(result.Options))
	}

	if state.IsOver() {
		b.WriteString("\n🏁 GAME OVER\nFinal standings:\n")
		for i, p := range engine.Standings(state) {
			fmt.Fprintf(&b, "%d. %s - %d\n", i+1, p.Name, p.Score)
		}
		return b.String()
	}
	fmt.Fprintf(&b, "\nPhase: %s | Bag: %d", state.TurnPhase, state.Bag.Len())
	if p := state.CurrentPlayer(); p != nil {
		fmt.Fprintf(&b, " | To play: %s", p.Name)
	}
	b.WriteString("\n")
	return b.String()
}

func formatPlacements(placements []engine.Placement) string {
	if len(placements) == 0 {
		return "No legal placements (draw a tile first)\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Legal placements (%d):\n", len(placements))
	for _, p := range placements {
		rotations := make([]string, len(p.Rotations))
		for i, r := range p.Rotations {
			rotations[i] = fmt.Sprint(int(r))
		}
		fmt.Fprintf(&b, "- (%d,%d) rotations %s\n", p.Coordinate.X, p.Coordinate.Y, strings.Join(rotations, "/"))
	}
	return b.String()
}

func formatMeepleOptions(options []engine.MeepleOption) string {
	if len(options) == 0 {
		return "No segment can take a meeple; use skip_meeple\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Meeple options (%d):\n", len(options))
	for _, o := range options {
		kinds := make([]string, len(o.Kinds))
		for i, k := range o.Kinds {
			kinds[i] = string(k)
		}
		fmt.Fprintf(&b, "- %s (%s): %s\n", o.SegmentID, o.Type, strings.Join(kinds, ", "))
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Action History (Page %d/%d, Total: %d actions)\n\n",
		history.Page, history.TotalPages, history.TotalActions)
	for _, a := range history.Actions {
		status := "✓"
		if !a.Accepted {
			status = "✗"
		}
		fmt.Fprintf(&b, "#%d %s %s by %s during %s", a.ActionNumber, status, a.Action, a.PlayerID, a.TurnPhase)
		if a.Detail != "" {
			fmt.Fprintf(&b, " [%s]", a.Detail)
		}
		if len(a.ScoreEvents) > 0 {
			fmt.Fprintf(&b, " scored %d feature(s)", len(a.ScoreEvents))
		}
		b.WriteString("\n")
	}
	if history.HasNext {
		fmt.Fprintf(&b, "\nMore: page=%d\n", history.Page+1)
	}
	return b.String()
}
