package statemanager

import (
	"binance-rsi-alerts/internal/models"
	"binance-rsi-alerts/internal/persistence"
	"binance-rsi-alerts/internal/state"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrStopped is returned when an action is dispatched to a stopped manager.
var ErrStopped = errors.New("state manager is stopped")

// Option configures a StateManager.
type Option func(*StateManager)

// WithClock overrides the time source used to stamp applied actions.
func WithClock(now func() time.Time) Option {
	return func(sm *StateManager) { sm.now = now }
}

// WithBuffer sets the capacity of the event channel.
func WithBuffer(n int) Option {
	return func(sm *StateManager) { sm.bufferSize = n }
}

// StateManager is the single owner of the State during a run.
// All mutations go through one event loop, so they are applied serially
// in the order they are received.
type StateManager struct {
	repo   persistence.StateRepository
	logger *zap.Logger
	now    func() time.Time

	mu    sync.RWMutex
	state models.State

	lifecycle  sync.RWMutex
	running    bool
	bufferSize int
	events     chan state.Action
	done       chan struct{}

	applied int
	failed  int
}

// NewStateManager creates a new StateManager.
func NewStateManager(repo persistence.StateRepository, logger *zap.Logger, opts ...Option) *StateManager {
	sm := &StateManager{
		repo:       repo,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		bufferSize: 256,
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// Initialize loads the persisted State. When none exists it applies
// INITIALIZE_STATE to an empty document. A corrupt document is returned
// as an error and the current state is left unchanged.
func (sm *StateManager) Initialize() error {
	sm.logger.Info("Initializing state...")

	loaded, err := sm.repo.LoadState()
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	var next models.State
	if loaded != nil {
		sm.logger.Info("Loaded persisted state",
			zap.Int("pairs", len(loaded.MinRSI)),
			zap.Time("lastUpdated", loaded.LastUpdated))
		next = *loaded
	} else {
		sm.logger.Info("No persisted state found, initializing new state")
		next, err = state.Apply(models.State{}, state.InitializeState{}, sm.now())
		if err != nil {
			return err
		}
	}

	sm.mu.Lock()
	sm.state = next
	sm.mu.Unlock()
	return nil
}

// Start begins the event loop. It can be called again after Stop.
func (sm *StateManager) Start() {
	sm.lifecycle.Lock()
	defer sm.lifecycle.Unlock()
	if sm.running {
		return
	}
	sm.events = make(chan state.Action, sm.bufferSize)
	sm.done = make(chan struct{})
	sm.running = true
	go sm.eventLoop(sm.events, sm.done)
	sm.logger.Debug("StateManager started.")
}

// Stop closes the event channel and waits until every dispatched action
// has been applied.
func (sm *StateManager) Stop() {
	sm.lifecycle.Lock()
	if !sm.running {
		sm.lifecycle.Unlock()
		return
	}
	sm.running = false
	close(sm.events)
	done := sm.done
	sm.lifecycle.Unlock()

	<-done
	sm.logger.Debug("StateManager stopped.",
		zap.Int("applied", sm.applied),
		zap.Int("rejected", sm.failed))
}

// Dispatch queues an action for the event loop.
func (sm *StateManager) Dispatch(ctx context.Context, action state.Action) error {
	sm.lifecycle.RLock()
	defer sm.lifecycle.RUnlock()
	if !sm.running {
		return ErrStopped
	}

	select {
	case sm.events <- action:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the current state for safe, concurrent reading.
func (sm *StateManager) Snapshot() models.State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state.Clone()
}

// Persist saves the current state through the repository.
func (sm *StateManager) Persist() error {
	snapshot := sm.Snapshot()
	if snapshot.MinRSI == nil {
		return errors.New("refusing to persist an uninitialized state")
	}
	if err := sm.repo.SaveState(&snapshot); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	sm.logger.Info("State persisted", zap.Int("pairs", len(snapshot.MinRSI)))
	return nil
}

// eventLoop is the core processing loop that handles all actions serially.
func (sm *StateManager) eventLoop(events <-chan state.Action, done chan<- struct{}) {
	defer close(done)
	for action := range events {
		sm.processAction(action)
	}
}

// processAction applies one action. A rejected action leaves the state as it was.
func (sm *StateManager) processAction(action state.Action) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	next, err := state.Apply(sm.state, action, sm.now())
	if err != nil {
		sm.failed++
		sm.logger.Warn("Rejected state action", zap.Error(err))
		return
	}
	sm.applied++

	if upd, ok := action.(state.UpdateMinRSI); ok {
		rec := next.MinRSI[upd.TradingPair]
		sm.logger.Debug("Updated min RSI",
			zap.String("pair", upd.TradingPair),
			zap.Float64("rsi", upd.RSIVal),
			zap.Float64("minRSI", rec.MinRSIValue))
	}
	sm.state = next
}
