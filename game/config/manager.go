package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/krueger80/carcassonne-ai-sub001/game/engine"
	"github.com/krueger80/carcassonne-ai-sub001/game/service"
)

var (
	ErrCatalogNotFound = errors.New("catalog not found")
	ErrInvalidCatalog  = errors.New("invalid catalog")
)

// DefaultCatalog is the catalog preferred as the default when present
const DefaultCatalog = "base"

// Manager handles tile catalog loading and caching
type Manager struct {
	catalogDir     string
	defaultCatalog *engine.CatalogFile
	catalogs       map[string]*engine.CatalogFile
	mu             sync.RWMutex
}

// NewManager creates a new catalog manager
func NewManager(catalogDir string) (*Manager, error) {
	if _, err := os.Stat(catalogDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("catalog directory does not exist: %s", catalogDir)
	}

	m := &Manager{
		catalogDir: catalogDir,
		catalogs:   make(map[string]*engine.CatalogFile),
	}

	if err := m.loadDefaultCatalog(); err != nil {
		return nil, fmt.Errorf("failed to load default catalog: %w", err)
	}

	return m, nil
}

func catalogFilename(name string) string {
	if strings.HasSuffix(name, ".json") {
		return name
	}
	return name + ".json"
}

// LoadCatalog loads a catalog by name
func (m *Manager) LoadCatalog(name string) (*engine.CatalogFile, error) {
	name = strings.TrimSuffix(name, ".json")

	m.mu.RLock()
	if catalog, exists := m.catalogs[name]; exists {
		m.mu.RUnlock()
		return catalog, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if catalog, exists := m.catalogs[name]; exists {
		return catalog, nil
	}

	// Names are bare file stems
	if strings.ContainsAny(name, `/\`) || name == "" || name == "." || name == ".." {
		return nil, ErrCatalogNotFound
	}

	data, err := os.ReadFile(filepath.Join(m.catalogDir, catalogFilename(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCatalogNotFound
		}
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var catalog engine.CatalogFile
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	if err := engine.ValidateCatalogFile(&catalog); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	m.catalogs[name] = &catalog
	return &catalog, nil
}

// ListCatalogs returns information about all loadable catalogs
func (m *Manager) ListCatalogs() ([]*service.CatalogInfo, error) {
	entries, err := os.ReadDir(m.catalogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog directory: %w", err)
	}

	var catalogs []*service.CatalogInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")
		catalog, err := m.LoadCatalog(name)
		if err != nil {
			// Skip invalid catalogs
			continue
		}

		catalogs = append(catalogs, &service.CatalogInfo{
			Filename:    entry.Name(),
			CatalogID:   name,
			Name:        catalog.Name,
			Description: catalog.Description,
			Expansion:   catalog.Expansion,
			TileTypes:   len(catalog.Tiles),
			TotalTiles:  catalog.TotalTiles(),
		})
	}

	return catalogs, nil
}

// GetDefault returns the default catalog
func (m *Manager) GetDefault() *engine.CatalogFile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultCatalog
}

// SetDefault sets the default catalog by name. Expansion-only catalogs
// cannot start a match and are refused.
func (m *Manager) SetDefault(name string) error {
	catalog, err := m.LoadCatalog(name)
	if err != nil {
		return err
	}
	if !catalog.HasStartingTile() {
		return fmt.Errorf("%w: %s has no starting tile", ErrInvalidCatalog, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultCatalog = catalog
	return nil
}

// RefreshCache drops cached catalogs and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.catalogs = make(map[string]*engine.CatalogFile)
	m.mu.Unlock()

	return m.loadDefaultCatalog()
}

// loadDefaultCatalog picks base.json, else the first catalog with a
// starting tile, else a built-in minimal catalog
func (m *Manager) loadDefaultCatalog() error {
	catalog, err := m.LoadCatalog(DefaultCatalog)
	if err != nil || !catalog.HasStartingTile() {
		catalog = nil
		infos, listErr := m.ListCatalogs()
		if listErr == nil {
			for _, info := range infos {
				c, err := m.LoadCatalog(info.CatalogID)
				if err == nil && c.HasStartingTile() {
					catalog = c
					break
				}
			}
		}
	}
	if catalog == nil {
		catalog = minimalCatalog()
	}

	m.mu.Lock()
	m.defaultCatalog = catalog
	m.mu.Unlock()
	return nil
}

// SaveCatalog saves a catalog to disk
func (m *Manager) SaveCatalog(name string, catalog *engine.CatalogFile) error {
	if err := engine.ValidateCatalogFile(catalog); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	name = strings.TrimSuffix(name, ".json")
	if strings.ContainsAny(name, `/\`) || name == "" {
		return fmt.Errorf("%w: bad catalog name %q", ErrInvalidCatalog, name)
	}

	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.catalogDir, catalogFilename(name)), data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}

	m.mu.Lock()
	m.catalogs[name] = catalog
	m.mu.Unlock()

	return nil
}

// minimalCatalog is a road-only catalog used when the directory has nothing usable
func minimalCatalog() *engine.CatalogFile {
	edges := make(map[engine.EdgePosition]string, engine.EdgePositions)
	for i, dir := range engine.Directions {
		left, right := "field0", "field1"
		if i >= 2 {
			left, right = right, left
		}
		positions := engine.EdgePositionsFor(dir)
		switch dir {
		case engine.North, engine.South:
			edges[positions[0]] = left
			edges[positions[1]] = "road0"
			edges[positions[2]] = right
		case engine.East:
			for _, p := range positions {
				edges[p] = "field1"
			}
		default:
			for _, p := range positions {
				edges[p] = "field0"
			}
		}
	}
	return &engine.CatalogFile{
		Name:        "minimal",
		Description: "Straight roads only",
		Tiles: []*engine.TileDefinition{{
			ID:    "straight",
			Count: 12,
			Segments: []engine.Segment{
				{ID: "road0", Type: engine.Road},
				{ID: "field0", Type: engine.Field},
				{ID: "field1", Type: engine.Field},
			},
			EdgePositionToSegment: edges,
			StartingTile:          true,
		}},
	}
}

// Count returns the number of cached catalogs
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.catalogs)
}
