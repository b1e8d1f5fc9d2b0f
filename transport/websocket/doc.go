// Package websocket pushes live match updates to browsers and bots.
//
// A central Hub tracks the clients subscribed to each session. Each
// connection gets a read goroutine, which only watches for disconnects, and
// a write goroutine that drains a buffered queue and sends pings.
//
// Message Protocol:
//
// Every frame is one JSON Message:
//   - state_update: the full GameState after an accepted action, with the
//     score events that action produced
//   - game_over: the final standings, sent after the last state_update
//
// Clients subscribe with GET /ws?session=<id> and receive the current state
// immediately. Actions themselves go through the REST API.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	hub.ServeWS(w, r, sessionID, state)
//	hub.BroadcastToSession(sessionID, newState)
//
// A client whose queue fills up is dropped rather than allowed to stall the
// hub. Cancelling the Run context closes every connection.
package websocket
