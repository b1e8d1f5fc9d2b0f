package service

import (
	"context"
	"sync"
	"time"

	"github.com/krueger80/carcassonne-ai-sub001/game/engine"
)

// GameService defines all match-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Turn Operations
	DrawTile(ctx context.Context, sessionID string) (*ActionResult, error)
	RotateTile(ctx context.Context, sessionID string) (*ActionResult, error)
	PlaceTile(ctx context.Context, sessionID string, req PlaceTileRequest) (*ActionResult, error)
	PlaceMeeple(ctx context.Context, sessionID string, req PlaceMeepleRequest) (*ActionResult, error)
	SkipMeeple(ctx context.Context, sessionID string) (*ActionResult, error)
	EndTurn(ctx context.Context, sessionID string) (*ActionResult, error)
	EndGame(ctx context.Context, sessionID string) (*ActionResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Match State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	ValidPlacements(ctx context.Context, sessionID string) ([]engine.Placement, error)
	MeepleOptions(ctx context.Context, sessionID string) ([]engine.MeepleOption, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Catalogs
	ListCatalogs(ctx context.Context) ([]*CatalogInfo, error)
	LoadCatalog(ctx context.Context, name string) (*engine.CatalogFile, error)
	SaveCatalog(ctx context.Context, name string, catalog *engine.CatalogFile) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, catalogID string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// CatalogManager handles tile catalog loading
type CatalogManager interface {
	LoadCatalog(name string) (*engine.CatalogFile, error)
	ListCatalogs() ([]*CatalogInfo, error)
	GetDefault() *engine.CatalogFile
	SaveCatalog(name string, catalog *engine.CatalogFile) error
}

// Session represents an active match. LastAccessedAt is written by Touch
// while the session is shared, so concurrent readers go through LastAccess.
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	CatalogID      string
	CreatedAt      time.Time
	LastAccessedAt time.Time

	accessMu sync.Mutex
}

// Touch records an access and returns its time
func (s *Session) Touch() time.Time {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	s.LastAccessedAt = time.Now()
	return s.LastAccessedAt
}

func (s *Session) LastAccess() time.Time {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	return s.LastAccessedAt
}
