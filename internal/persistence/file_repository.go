package persistence

import (
	"binance-rsi-alerts/internal/models"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// DefaultStateFile is used when no path is configured.
const DefaultStateFile = "./state/saved/state.json"

// fileRepository keeps the state as a pretty-printed JSON file.
type fileRepository struct {
	path string
}

// NewFileRepository creates a repository backed by the JSON file at path.
func NewFileRepository(path string) (StateRepository, error) {
	if path == "" {
		path = DefaultStateFile
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("state path %s is a directory", path)
	}
	return &fileRepository{path: path}, nil
}

// SaveState writes the document to a temporary file in the same directory
// and renames it over the previous one, so readers see either the old or
// the new document and never a partial write.
func (r *fileRepository) SaveState(state *models.State) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	if err := renameio.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file %s: %w", r.path, err)
	}
	return nil
}

// LoadState reads the document. A missing or empty file is (nil, nil).
func (r *fileRepository) LoadState() (*models.State, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", r.path, err)
	}

	state, err := decodeState(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.path, err)
	}
	return state, nil
}

func (r *fileRepository) Close() error {
	return nil
}
