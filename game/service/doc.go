// Package service provides the business logic layer for tile-laying matches.
//
// The service package implements:
//   - Multi-session match management
//   - Tile catalog and expansion resolution
//   - Turn action dispatch and reporting
//   - Action history pagination
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level match operations.
// SessionManager handles session creation, retrieval, and persistence.
// CatalogManager loads tile catalogs from disk.
//
// The service sits between the transports (HTTP, WebSocket, MCP) and the
// engine. Every turn action returns an ActionResult; a rejected action is
// reported with Accepted=false and the unchanged state rather than an error.
//
// Usage:
//
//	sessions := session.NewManager()
//	catalogs := config.NewManager("catalogs")
//	svc := service.NewGameService(sessions, catalogs)
//
//	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{
//		Players:    []string{"Ada", "Grace"},
//		Expansions: []string{"inns-cathedrals"},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := svc.DrawTile(ctx, info.ID)
package service
