// Package mcp exposes matches to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool calls the REST API and turns the
// JSON answer into text an agent can read. It holds no game state of its own.
//
// MCP Tools:
//   - create_match, list_sessions, get_session, list_catalogs
//   - game_state: board map, scores, meeples, drawn tile and turn phase
//   - valid_placements, meeple_options: what the current phase allows
//   - draw_tile, rotate_tile, place_tile, place_meeple, skip_meeple,
//     end_turn, end_game: one tool per turn action
//   - action_history: paginated action log
//   - game_instructions: rules and scoring
//
// A move the rules refuse comes back as normal text marked REJECTED.
// Transport and lookup failures come back as tool errors.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
