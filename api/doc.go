// Package api exposes matches over a REST API built on gorilla/mux.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a match {catalog_id, players, expansions}
//   - GET /api/sessions - List matches (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Session info with standings
//   - DELETE /api/sessions/{id} - Delete a match
//   - GET /api/sessions/{id}/state - Full game state
//
// Turn actions (POST, all answer an ActionResult):
//   - /api/sessions/{id}/draw
//   - /api/sessions/{id}/rotate
//   - /api/sessions/{id}/place {x, y, rotation}
//   - /api/sessions/{id}/meeple {segment_id, kind}
//   - /api/sessions/{id}/skip-meeple
//   - /api/sessions/{id}/end-turn
//   - /api/sessions/{id}/end-game
//   - /api/sessions/{id}/reset
//
// Queries:
//   - GET /api/sessions/{id}/placements - Legal coordinates with their rotations
//   - GET /api/sessions/{id}/meeple-options - Segments open for a meeple
//   - GET /api/sessions/{id}/history - Action log (?page=&limit=&order=)
//   - GET /api/sessions/{id}/qr - PNG QR code of the spectator link
//
// Catalogs:
//   - GET /api/catalogs
//   - GET /api/catalogs/{name}
//   - POST /api/catalogs
//
// A move the rules refuse is not a transport error. It answers 200 with
// accepted=false and the unchanged state. Unknown sessions answer 404,
// configuration errors 400:
//
//	{
//	  "error": "session not found: session not found"
//	}
//
// Accepted actions are pushed to WebSocket subscribers of GET /ws?session=<id>.
package api
