package statemanager

import (
	"binance-rsi-alerts/internal/models"
	"binance-rsi-alerts/internal/persistence"
	"binance-rsi-alerts/internal/state"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockStateRepository is a mock implementation of the StateRepository interface for testing.
type mockStateRepository struct {
	sync.Mutex
	savedState *models.State
	saveCalls  int
	loadState  *models.State
	loadError  error
	saveError  error
}

func (m *mockStateRepository) SaveState(s *models.State) error {
	m.Lock()
	defer m.Unlock()
	m.saveCalls++
	if m.saveError != nil {
		return m.saveError
	}
	copied := s.Clone()
	m.savedState = &copied
	return nil
}

func (m *mockStateRepository) LoadState() (*models.State, error) {
	m.Lock()
	defer m.Unlock()
	if m.loadState == nil {
		return nil, m.loadError
	}
	copied := m.loadState.Clone()
	return &copied, m.loadError
}

func (m *mockStateRepository) Close() error {
	return nil
}

// tickingClock returns a clock advancing by one second on every call.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(time.Second)
		return now
	}
}

var epoch = time.Date(2022, 4, 21, 8, 0, 0, 0, time.UTC)

func newManager(repo persistence.StateRepository) *StateManager {
	return NewStateManager(repo, zap.NewNop(), WithClock(tickingClock(epoch)))
}

func TestInitializeWithoutPersistedState(t *testing.T) {
	repo := &mockStateRepository{}
	sm := newManager(repo)

	require.NoError(t, sm.Initialize())
	snapshot := sm.Snapshot()
	assert.NotNil(t, snapshot.MinRSI)
	assert.Empty(t, snapshot.MinRSI)
	assert.Equal(t, models.ActionInitializeState, snapshot.LastUpdateAction)
	assert.Equal(t, epoch, snapshot.LastUpdated)
	assert.Zero(t, repo.saveCalls, "initialization alone must not persist")
}

func TestInitializeReturnsLoadedStateVerbatim(t *testing.T) {
	loaded := models.State{
		MinRSI: map[string]models.PairRecord{
			"ETHEUR": {MinRSIValue: 25, MinRSIValueTimestamp: epoch, LastRSIValue: 25, LastRSIValueTimestamp: epoch},
		},
		LastUpdated:      epoch,
		LastUpdateAction: models.ActionUpdateMinRSI,
	}
	sm := newManager(&mockStateRepository{loadState: &loaded})

	require.NoError(t, sm.Initialize())
	first := sm.Snapshot()
	require.NoError(t, sm.Initialize())
	second := sm.Snapshot()

	assert.Equal(t, loaded, first)
	assert.Equal(t, first, second)
}

func TestInitializeSurfacesCorruption(t *testing.T) {
	repo := &mockStateRepository{loadError: fmt.Errorf("state.json: %w", persistence.ErrCorruptState)}
	sm := newManager(repo)

	err := sm.Initialize()
	assert.ErrorIs(t, err, persistence.ErrCorruptState)
	assert.Nil(t, sm.Snapshot().MinRSI)
	assert.Error(t, sm.Persist(), "an uninitialized state must never overwrite the stored one")
	assert.Zero(t, repo.saveCalls)
}

func TestInitializeIsIdempotentAcrossReloads(t *testing.T) {
	repo, err := persistence.NewFileRepository(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	sm := newManager(repo)
	require.NoError(t, sm.Initialize())
	require.NoError(t, sm.Persist())

	again := newManager(repo)
	require.NoError(t, again.Initialize())
	first := again.Snapshot()
	require.NoError(t, again.Initialize())

	assert.Equal(t, first, again.Snapshot())
	assert.Equal(t, sm.Snapshot(), first)
}

func TestDispatchFoldsSerially(t *testing.T) {
	repo := &mockStateRepository{}
	sm := newManager(repo)
	require.NoError(t, sm.Initialize())
	sm.Start()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pair := fmt.Sprintf("PAIR%02dEUR", i%10)
			assert.NoError(t, sm.Dispatch(ctx, state.UpdateMinRSI{TradingPair: pair, RSIVal: float64(20 + i)}))
		}(i)
	}
	wg.Wait()
	sm.Stop()

	snapshot := sm.Snapshot()
	require.Len(t, snapshot.MinRSI, 10)
	for i := 0; i < 10; i++ {
		rec := snapshot.MinRSI[fmt.Sprintf("PAIR%02dEUR", i)]
		assert.Equal(t, float64(20+i), rec.MinRSIValue, "the lowest reading of each pair wins")
		assert.LessOrEqual(t, rec.MinRSIValue, rec.LastRSIValue)
	}
	assert.Equal(t, models.ActionUpdateMinRSI, snapshot.LastUpdateAction)
	assert.Equal(t, 50, sm.applied)
}

func TestEndToEndScenario(t *testing.T) {
	start := models.State{
		MinRSI: map[string]models.PairRecord{
			"ETHEUR": {MinRSIValue: 25, MinRSIValueTimestamp: epoch, LastRSIValue: 25, LastRSIValueTimestamp: epoch},
		},
		LastUpdated:      epoch,
		LastUpdateAction: models.ActionUpdateMinRSI,
	}
	repo := &mockStateRepository{loadState: &start}
	sm := NewStateManager(repo, zap.NewNop(), WithClock(tickingClock(epoch.Add(time.Hour))))
	require.NoError(t, sm.Initialize())

	sm.Start()
	ctx := context.Background()
	require.NoError(t, sm.Dispatch(ctx, state.UpdateMinRSI{TradingPair: "ETHEUR", RSIVal: 22}))
	require.NoError(t, sm.Dispatch(ctx, state.UpdateMinRSI{TradingPair: "ETHEUR", RSIVal: 28}))
	sm.Stop()
	require.NoError(t, sm.Persist())

	rec := repo.savedState.MinRSI["ETHEUR"]
	assert.Equal(t, 22.0, rec.MinRSIValue)
	assert.Equal(t, epoch.Add(time.Hour), rec.MinRSIValueTimestamp)
	assert.Equal(t, 28.0, rec.LastRSIValue)
	assert.Equal(t, epoch.Add(time.Hour+time.Second), rec.LastRSIValueTimestamp)
	assert.Equal(t, rec.LastRSIValueTimestamp, repo.savedState.LastUpdated)
}

func TestRejectedActionKeepsState(t *testing.T) {
	sm := newManager(&mockStateRepository{})
	require.NoError(t, sm.Initialize())
	before := sm.Snapshot()

	sm.Start()
	require.NoError(t, sm.Dispatch(context.Background(), state.UpdateMinRSI{RSIVal: 10}))
	sm.Stop()

	assert.Equal(t, before, sm.Snapshot())
	assert.Equal(t, 1, sm.failed)
}

func TestDispatchAfterStop(t *testing.T) {
	sm := newManager(&mockStateRepository{})
	require.NoError(t, sm.Initialize())

	assert.ErrorIs(t, sm.Dispatch(context.Background(), state.InitializeState{}), ErrStopped)

	sm.Start()
	sm.Stop()
	sm.Stop() // a second stop is a no-op
	assert.ErrorIs(t, sm.Dispatch(context.Background(), state.InitializeState{}), ErrStopped)
}

func TestDispatchHonoursContext(t *testing.T) {
	sm := NewStateManager(&mockStateRepository{}, zap.NewNop(), WithBuffer(0))
	require.NoError(t, sm.Initialize())

	// hold the state lock so the event loop cannot take the first action
	sm.mu.Lock()
	sm.Start()
	require.NoError(t, sm.Dispatch(context.Background(), state.UpdateMinRSI{TradingPair: "ETHEUR", RSIVal: 30}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := sm.Dispatch(ctx, state.UpdateMinRSI{TradingPair: "BTCEUR", RSIVal: 30})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	sm.mu.Unlock()
	sm.Stop()
	assert.Contains(t, sm.Snapshot().MinRSI, "ETHEUR")
	assert.NotContains(t, sm.Snapshot().MinRSI, "BTCEUR")
}

func TestPersistReportsFailure(t *testing.T) {
	repo := &mockStateRepository{saveError: errors.New("disk full")}
	sm := newManager(repo)
	require.NoError(t, sm.Initialize())

	err := sm.Persist()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, repo.saveCalls)
}
