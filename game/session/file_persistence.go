package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/krueger80/carcassonne-ai-sub001/game/service"
)

const matchFileExt = ".json"

// FilePersistence keeps each match in <dir>/<id>.json
type FilePersistence struct {
	dir string
}

// NewFilePersistence creates dir if needed
func NewFilePersistence(dir string) (*FilePersistence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &FilePersistence{dir: dir}, nil
}

// path maps an id to its file. Ids are lower-cased and stripped of any
// directory part so a caller cannot escape dir.
func (fp *FilePersistence) path(id string) string {
	return filepath.Join(fp.dir, strings.ToLower(filepath.Base(id))+matchFileExt)
}

// Save writes the match through a temp file in the same directory and
// renames it into place
func (fp *FilePersistence) Save(session *service.Session) error {
	if session == nil || session.Engine == nil {
		return errors.New("session with an engine is required")
	}

	data, err := json.MarshalIndent(toPersisted(session), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal match %s: %w", session.ID, err)
	}

	tmp, err := os.CreateTemp(fp.dir, session.ID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write match %s: %w", session.ID, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write match %s: %w", session.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write match %s: %w", session.ID, err)
	}
	if err := os.Rename(tmp.Name(), fp.path(session.ID)); err != nil {
		return fmt.Errorf("failed to write match %s: %w", session.ID, err)
	}
	return nil
}

// Load rebuilds the engine from the stored state and action log
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	raw, err := os.ReadFile(fp.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read match %s: %w", id, err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode match %s: %w", id, err)
	}
	return data.restore()
}

func (fp *FilePersistence) Delete(id string) error {
	err := os.Remove(fp.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove match %s: %w", id, err)
	}
	return nil
}

// ListAll returns the ids of every stored match. Leftover temp files are
// not matches and are skipped.
func (fp *FilePersistence) ListAll() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(fp.dir, "*"+matchFileExt))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions directory: %w", err)
	}

	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, strings.TrimSuffix(filepath.Base(f), matchFileExt))
	}
	return ids, nil
}

func (fp *FilePersistence) Exists(id string) (bool, error) {
	info, err := os.Stat(fp.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat match %s: %w", id, err)
	}
	return !info.IsDir(), nil
}
