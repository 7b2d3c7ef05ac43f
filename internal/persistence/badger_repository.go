package persistence

import (
	"binance-rsi-alerts/internal/models"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
)

// stateKey is the single key the document lives under.
var stateKey = []byte("rsi_state")

// badgerRepository is the BadgerDB implementation of the StateRepository.
type badgerRepository struct {
	db *badger.DB
}

// NewBadgerRepository opens (or creates) a BadgerDB database in dbPath.
func NewBadgerRepository(dbPath string) (StateRepository, error) {
	return openBadger(badger.DefaultOptions(dbPath))
}

func openBadger(opts badger.Options) (StateRepository, error) {
	// Badger's own logging is disabled to keep our logs clean.
	// Errors are still returned from DB operations.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &badgerRepository{db: db}, nil
}

// SaveState replaces the document in a single transaction.
func (r *badgerRepository) SaveState(state *models.State) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(stateKey, data)
	})
}

// LoadState loads the document.
// A missing key or an empty value is (nil, nil).
func (r *badgerRepository) LoadState() (*models.State, error) {
	var data []byte

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stateKey)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state from badger: %w", err)
	}

	return decodeState(data)
}

// Close gracefully closes the connection to the database.
func (r *badgerRepository) Close() error {
	return r.db.Close()
}
