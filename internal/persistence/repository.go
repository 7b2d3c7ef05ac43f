package persistence

import (
	"binance-rsi-alerts/internal/models"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorruptState marks a stored document that exists but cannot be used.
// It is never returned for a missing document.
var ErrCorruptState = errors.New("persisted state is corrupt")

// StateRepository defines the interface for state persistence.
// It abstracts the underlying storage mechanism (a JSON file, BadgerDB)
// from the rest of the application.
type StateRepository interface {
	// SaveState atomically replaces the stored document.
	SaveState(state *models.State) error

	// LoadState loads the stored document.
	// If no document is stored it returns (nil, nil).
	LoadState() (*models.State, error)

	// Close releases the underlying storage.
	Close() error
}

// encodeState renders the document the way it is stored on disk.
func encodeState(state *models.State) ([]byte, error) {
	if state == nil {
		return nil, errors.New("cannot persist a nil state")
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return append(data, '\n'), nil
}

// decodeState parses a stored document. Empty content counts as absent.
func decodeState(data []byte) (*models.State, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var state models.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return &state, nil
}
