package session

import (
	"fmt"
	"time"

	"github.com/krueger80/carcassonne-ai-sub001/game/engine"
	"github.com/krueger80/carcassonne-ai-sub001/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists reports whether a session is stored. An error means the store
	// could not be asked, not that the session is absent.
	Exists(id string) (bool, error)
}

// persistFormat is bumped whenever the stored match layout changes
const persistFormat = 1

// PersistedSessionData is the stored form of a session. The state embeds
// its tile catalog, so a session restores without the catalog files.
// Records written before the format field existed read back as format 0.
type PersistedSessionData struct {
	Format         int                  `json:"format"`
	ID             string               `json:"id"`
	CatalogID      string               `json:"catalog_id"`
	CreatedAt      time.Time            `json:"created_at"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
	GameState      *engine.GameState    `json:"game_state"`
	History        []engine.ActionEntry `json:"history"`
}

func toPersisted(session *service.Session) PersistedSessionData {
	return PersistedSessionData{
		Format:         persistFormat,
		ID:             session.ID,
		CatalogID:      session.CatalogID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccess(),
		GameState:      session.Engine.GetState(),
		History:        session.Engine.GetHistory(),
	}
}

func (d *PersistedSessionData) restore() (*service.Session, error) {
	if d.Format > persistFormat {
		return nil, fmt.Errorf("match %s uses format %d, newer than %d", d.ID, d.Format, persistFormat)
	}
	if d.GameState == nil {
		return nil, fmt.Errorf("match %s has no game state", d.ID)
	}
	eng, err := engine.RestoreEngine(d.GameState, d.History)
	if err != nil {
		return nil, fmt.Errorf("failed to restore game state: %w", err)
	}
	return &service.Session{
		ID:             d.ID,
		Engine:         eng,
		CatalogID:      d.CatalogID,
		CreatedAt:      d.CreatedAt,
		LastAccessedAt: d.LastAccessedAt,
	}, nil
}
