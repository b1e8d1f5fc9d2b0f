// Package session keeps running matches in memory and persists them.
//
// Manager stores sessions keyed by a case-insensitive ID. Generated IDs are
// the first eight hex characters of a random UUID. Each session owns its own
// engine, so matches never share state.
//
// Persistence is pluggable through SessionPersistence:
//   - FilePersistence writes one JSON file per session
//   - DBPersistence stores rows in Postgres through gorm
//
// Both store the full game state and the action history. The state embeds
// the tile catalog it was dealt from, so a session restores even if the
// catalog files change later.
//
// Usage:
//
//	store, err := session.NewFilePersistence("sessions")
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(store)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		log.Printf("Warning: %v", err)
//	}
//
//	sess, err := manager.Create("", "base", config)
//
// To use Postgres instead, set DB_HOST and friends:
//
//	cfg, ok := session.DBConfigFromEnv()
//	db, err := session.OpenPostgres(cfg)
//	store, err := session.NewDBPersistence(db)
package session
