package session

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/krueger80/carcassonne-ai-sub001/game/engine"
	"github.com/krueger80/carcassonne-ai-sub001/game/service"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// sessionIDLength is how much of a UUID is kept as the session ID
const sessionIDLength = 8

// Manager keeps live matches in memory, keyed by lower-cased id. With a
// persistence layer attached, matches are written on create, reloaded on a
// cache miss and written back before idle eviction. Matches whose last write
// failed are tracked in unsaved until RetryUnsaved gets them stored.
type Manager struct {
	mu          sync.RWMutex
	matches     map[string]*service.Session
	unsaved     map[string]bool
	persistence SessionPersistence
}

func NewManager() *Manager {
	return NewManagerWithPersistence(nil)
}

func NewManagerWithPersistence(persistence SessionPersistence) *Manager {
	return &Manager{
		matches:     make(map[string]*service.Session),
		unsaved:     make(map[string]bool),
		persistence: persistence,
	}
}

func key(id string) string {
	return strings.ToLower(id)
}

// markSaved records the outcome of a write. Caller holds m.mu.
func (m *Manager) markSaved(k string, err error) {
	if err == nil {
		delete(m.unsaved, k)
		return
	}
	if _, live := m.matches[k]; live {
		m.unsaved[k] = true
	}
}

// newSessionID returns the first characters of a random UUID
func newSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:sessionIDLength]
}

// Create starts a match under id, or under a generated id when id is empty
func (m *Manager) Create(id string, catalogID string, config *engine.GameConfig) (*service.Session, error) {
	if id == "" {
		id = newSessionID()
	}
	if strings.ContainsAny(id, `/\ `) {
		return nil, ErrInvalidSessionID
	}

	eng, err := engine.NewEngine(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.matches[key(id)]; taken {
		return nil, ErrSessionAlreadyExists
	}

	now := time.Now()
	match := &service.Session{
		ID:             id,
		Engine:         eng,
		CatalogID:      catalogID,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.matches[key(id)] = match

	// a failed write is retried by RetryUnsaved
	if m.persistence != nil {
		err := m.persistence.Save(match)
		if err != nil {
			log.Printf("[SESSION] failed to persist %s: %v", id, err)
		}
		m.markSaved(key(id), err)
	}
	return match, nil
}

// Get returns the match with id, reloading it from persistence if it was
// evicted
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	match, ok := m.matches[key(id)]
	m.mu.RUnlock()
	if ok {
		return match, nil
	}

	if m.persistence == nil {
		return nil, ErrSessionNotFound
	}

	loaded, err := m.persistence.Load(id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if match, ok := m.matches[key(id)]; ok {
		return match, nil
	}
	m.matches[key(id)] = loaded
	return loaded, nil
}

// List returns the in-memory matches, oldest first
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	matches := make([]*service.Session, 0, len(m.matches))
	for _, match := range m.matches {
		matches = append(matches, match)
	}
	m.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return matches
}

// Delete removes a match from memory and from persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, inMemory := m.matches[key(id)]
	delete(m.matches, key(id))
	delete(m.unsaved, key(id))

	if m.persistence == nil {
		if !inMemory {
			return ErrSessionNotFound
		}
		return nil
	}

	err := m.persistence.Delete(id)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		if !inMemory {
			return ErrSessionNotFound
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to delete persisted session: %w", err)
	}
	return nil
}

// DeleteFromMemory evicts a match but leaves its stored copy
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.matches[key(id)]; !ok {
		return ErrSessionNotFound
	}
	delete(m.matches, key(id))
	delete(m.unsaved, key(id))
	return nil
}

func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.RLock()
	match, ok := m.matches[key(id)]
	m.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	match.Touch()
	return nil
}

// Save writes one match to persistence. It is a no-op without persistence.
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	match, ok := m.matches[key(id)]
	m.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	err := m.persistence.Save(match)
	m.mu.Lock()
	m.markSaved(key(id), err)
	m.mu.Unlock()
	return err
}

// Unsaved reports whether the last write of a match failed
func (m *Manager) Unsaved(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.unsaved[key(id)]
}

// RetryUnsaved writes every match whose last write failed and returns how
// many are still unsaved
func (m *Manager) RetryUnsaved() int {
	if m.persistence == nil {
		return 0
	}

	m.mu.RLock()
	pending := make([]*service.Session, 0, len(m.unsaved))
	for k := range m.unsaved {
		if match, ok := m.matches[k]; ok {
			pending = append(pending, match)
		}
	}
	m.mu.RUnlock()

	for _, match := range pending {
		err := m.persistence.Save(match)
		if err != nil {
			log.Printf("[SESSION] retry of %s failed: %v", match.ID, err)
		}
		m.mu.Lock()
		m.markSaved(key(match.ID), err)
		m.mu.Unlock()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.unsaved)
}

// CleanupExpiredSessions evicts matches idle for longer than maxAge. Each
// one is written out first so a later Get can bring it back; a match that
// fails to save stays in memory.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	evicted := 0
	for k, match := range m.matches {
		if !match.LastAccess().Before(cutoff) {
			continue
		}
		if m.persistence != nil {
			if err := m.persistence.Save(match); err != nil {
				log.Printf("[SESSION] keeping %s in memory, save failed: %v", match.ID, err)
				m.markSaved(k, err)
				continue
			}
		}
		delete(m.matches, k)
		delete(m.unsaved, k)
		evicted++
	}
	return evicted
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.matches)
}

// LoadPersistedSessions pulls every stored match that is not already in
// memory. Unreadable records are logged and skipped.
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		if _, ok := m.matches[key(id)]; ok {
			continue
		}
		match, err := m.persistence.Load(id)
		if err != nil {
			log.Printf("[SESSION] skipping stored match %s: %v", id, err)
			continue
		}
		m.matches[key(id)] = match
		loaded++
	}

	if loaded > 0 {
		log.Printf("[SESSION] restored %d matches from storage", loaded)
	}
	return nil
}

// SaveAllSessions writes every in-memory match and reports how many failed
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	var failed []string
	for _, match := range m.List() {
		err := m.persistence.Save(match)
		if err != nil {
			log.Printf("[SESSION] failed to save %s: %v", match.ID, err)
			failed = append(failed, match.ID)
		}
		m.mu.Lock()
		m.markSaved(key(match.ID), err)
		m.mu.Unlock()
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to save %d sessions: %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}
